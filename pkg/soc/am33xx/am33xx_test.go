/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package am33xx

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-spl/pkg/board"
	"jinr.ru/greenlab/go-spl/pkg/hw"
)

// lockingSim returns a Sim whose DPLL status follows the mode register
func lockingSim(d DPLL) *hw.Sim {
	s := hw.NewSim()
	s.MapIO(d.ClkMode, nil, func(addr, value uint32) {
		s.Poke(addr, value)
		switch value & DPLLEnMask {
		case DPLLEnMNBypass:
			s.Poke(d.IdleSt, IdleStMNBypass)
		case DPLLEnLock:
			s.Poke(d.IdleSt, IdleStDPLLClk)
		}
	})
	return s
}

func TestDPLLConfigureOrder(t *testing.T) {
	d := DDRDPLL()
	s := lockingSim(d)
	require.NoError(t, d.Configure(s, hw.Poller{Limit: 4}, board.DDRPLLM400, board.OscMHz-1))

	var got []hw.Reg
	for _, a := range s.Writes() {
		got = append(got, hw.Reg{Addr: a.Addr, Value: a.Value})
	}
	want := []hw.Reg{
		{Addr: CMClkModeDPLLDDR, Value: DPLLEnMNBypass},
		{Addr: CMClkSelDPLLDDR, Value: 400<<8 | 23},
		{Addr: CMDivM2DPLLDDR, Value: 1},
		{Addr: CMClkModeDPLLDDR, Value: DPLLEnLock},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DPLL writes mismatch (-want +got):\n%s", diff)
	}
}

func TestDPLLNoLock(t *testing.T) {
	d := MPUDPLL()
	s := hw.NewSim()
	err := d.Configure(s, hw.Poller{Limit: 4}, board.MPUPLLM500, board.OscMHz-1)
	var timeout hw.ErrPollTimeout
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, uint32(CMIdleStDPLLMPU), timeout.Addr)
	// the multiplier is never changed while the DPLL is not bypassed
	assert.Len(t, s.Writes(), 1)
}

func TestProfileRegs(t *testing.T) {
	a := ProfileRegs(board.DDRIOControl, &board.ProfileA)
	b := ProfileRegs(board.DDRIOControl, &board.ProfileB)
	// DDR2 skips the ZQ configuration
	assert.Equal(t, len(a)+1, len(b))
	assert.Equal(t, hw.Reg{Addr: EMIFSDRAMConfig, Value: board.ProfileA.EMIF.SDRAMConfig}, a[len(a)-1])
	assert.Equal(t, hw.Reg{Addr: EMIFSDRAMConfig, Value: board.ProfileB.EMIF.SDRAMConfig}, b[len(b)-1])
	for _, r := range a {
		if r.Addr == DDRCmd0IOCtrl || r.Addr == DDRData1IOCtrl {
			assert.Equal(t, uint32(board.DDRIOControl), r.Value)
		}
	}
}

func TestSaveBootInfo(t *testing.T) {
	s := hw.NewSim()
	info := uint32(SRAM0Start + 0x40)
	for i := uint32(0); i < BootInfoWords; i++ {
		s.Poke(info+i*4, 0xA0+i)
	}
	saved, err := SaveBootInfo(s, info)
	require.NoError(t, err)
	assert.True(t, saved)
	for i := uint32(0); i < BootInfoWords; i++ {
		assert.Equal(t, 0xA0+i, s.Peek(SRAMScratchSpace+i*4))
	}

	// the last three words of SRAM are still inside
	saved, err = SaveBootInfo(s, SRAM0Start+SRAM0Size-BootInfoWords*4)
	require.NoError(t, err)
	assert.True(t, saved)

	s.ResetTrace()
	for _, bad := range []uint32{info + 1, info + 2, SRAM0Start - 4, SRAM0Start + SRAM0Size, SRAM0Start + SRAM0Size - 4} {
		saved, err := SaveBootInfo(s, bad)
		require.NoError(t, err)
		assert.False(t, saved, "0x%08x", bad)
	}
	assert.Empty(t, s.Trace())
}

func TestLowLevelInit(t *testing.T) {
	s := hw.NewSim()
	s.PokeControl(SCTLR, 0x00C5307F)
	require.NoError(t, LowLevelInit(s))
	assert.Equal(t, uint32(0x00C50078), s.PeekControl(SCTLR))

	writes := s.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, uint32(ICIALLU), writes[1].Addr)
}

func TestUART(t *testing.T) {
	s := hw.NewSim()
	s.MapIO(UART0Base+UARTSYSC, nil, func(addr, value uint32) {
		s.Poke(UART0Base+UARTSYSS, UARTSYSSResetDone)
	})
	var sent []byte
	s.MapIO(UART0Base+UARTTHR, nil, func(addr, value uint32) {
		if s.Peek(UART0Base+UARTLCR)&UARTLCRDivLatch == 0 {
			sent = append(sent, byte(value))
		}
	})
	s.Poke(UART0Base+UARTLSR, UARTLSRTHRE)

	u := NewUART(s, hw.Poller{Limit: 4}, UART0Base)
	require.NoError(t, u.Reset())
	require.NoError(t, u.Configure(UART0PinMux, Baud115200))
	require.NoError(t, u.Emit('>'))

	assert.Equal(t, []byte{'>'}, sent)
	assert.Equal(t, uint32(26), Baud115200.Divisor())
	assert.Equal(t, uint32(UARTLCR8N1), s.Peek(UART0Base+UARTLCR)&0xff)
	assert.Equal(t, uint32(PadPullUp|PadRxActive), s.Peek(ConfUART0RxD))
}
