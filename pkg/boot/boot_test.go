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

package boot

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-spl/pkg/board"
	"jinr.ru/greenlab/go-spl/pkg/hw"
	"jinr.ru/greenlab/go-spl/pkg/sim"
	"jinr.ru/greenlab/go-spl/pkg/soc/am33xx"
)

var (
	lowMem  = board.NewVariant("evm", false)
	highMem = board.NewVariant("bone", true)
)

func newTestSequencer(b *sim.Board) *Sequencer {
	p := hw.Poller{Limit: 16}
	return NewSequencer(b, p, am33xx.NewUART(b, p, am33xx.UART0Base), b.Running)
}

func TestBringUp(t *testing.T) {
	for _, id := range []board.Variant{lowMem, highMem} {
		t.Run(id.Name(), func(t *testing.T) {
			b := sim.NewBoard(id, sim.Options{})
			require.NoError(t, newTestSequencer(b).BringUp(id))

			assert.True(t, b.WatchdogDisarmed())
			assert.Equal(t, ">", b.Console())
			assert.NotZero(t, b.Peek(am33xx.EMIFStatus)&am33xx.EMIFStatusPHYDLLReady)
			assert.Equal(t, uint32(board.ClockFor(id).DDRMultiplier<<8|(board.OscMHz-1)),
				b.Peek(am33xx.CMClkSelDPLLDDR)&0x7ffff)
		})
	}
}

func TestWatchdogFirst(t *testing.T) {
	b := sim.NewBoard(highMem, sim.Options{})
	require.NoError(t, newTestSequencer(b).BringUp(highMem))

	trace := b.Trace()
	require.True(t, len(trace) > 4)
	want := []hw.Access{
		{Op: hw.OpWrite, Addr: am33xx.WDTWSPR, Width: hw.Width32, Value: am33xx.WDTDisableCode1},
		{Op: hw.OpRead, Addr: am33xx.WDTWWPS, Width: hw.Width32, Value: 0x10},
		{Op: hw.OpRead, Addr: am33xx.WDTWWPS, Width: hw.Width32, Value: 0},
		{Op: hw.OpWrite, Addr: am33xx.WDTWSPR, Width: hw.Width32, Value: am33xx.WDTDisableCode2},
		{Op: hw.OpRead, Addr: am33xx.WDTWWPS, Width: hw.Width32, Value: 0x10},
		{Op: hw.OpRead, Addr: am33xx.WDTWWPS, Width: hw.Width32, Value: 0},
	}
	if diff := cmp.Diff(want, trace[:len(want)]); diff != "" {
		t.Errorf("watchdog sequence mismatch (-want +got):\n%s", diff)
	}
	for _, a := range trace[len(want):] {
		assert.NotEqual(t, uint32(am33xx.WDTWSPR), a.Addr, "watchdog touched after disarm")
	}
}

// profileWrites returns the writes that hit a register of either timing
// profile, in order
func profileWrites(trace []hw.Access) []hw.Reg {
	addrs := map[uint32]bool{}
	for _, p := range []*board.TimingProfile{&board.ProfileA, &board.ProfileB} {
		for _, r := range am33xx.ProfileRegs(board.DDRIOControl, p) {
			addrs[r.Addr] = true
		}
	}
	var regs []hw.Reg
	for _, a := range trace {
		if a.Op == hw.OpWrite && addrs[a.Addr] {
			regs = append(regs, hw.Reg{Addr: a.Addr, Value: a.Value})
		}
	}
	return regs
}

func TestSingleProfile(t *testing.T) {
	for _, id := range []board.Variant{lowMem, highMem} {
		t.Run(id.Name(), func(t *testing.T) {
			b := sim.NewBoard(id, sim.Options{})
			require.NoError(t, newTestSequencer(b).BringUp(id))

			want := am33xx.ProfileRegs(board.DDRIOControl, board.ProfileFor(id))
			if diff := cmp.Diff(want, profileWrites(b.Trace())); diff != "" {
				t.Errorf("profile writes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAlreadyRunning(t *testing.T) {
	b := sim.NewBoard(highMem, sim.Options{Running: true})
	require.NoError(t, newTestSequencer(b).BringUp(highMem))
	assert.Empty(t, b.Trace())
	assert.Empty(t, b.Console())
}

func TestTrainingFailure(t *testing.T) {
	b := sim.NewBoard(lowMem, sim.Options{FailTraining: true})
	err := newTestSequencer(b).BringUp(lowMem)
	require.Error(t, err)

	var training ErrTraining
	require.True(t, errors.As(err, &training))
	assert.Equal(t, "ddr2", training.Profile)
	var timeout hw.ErrPollTimeout
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, uint32(am33xx.EMIFStatus), timeout.Addr)
	assert.Empty(t, b.Console(), "console must stay silent when memory is not usable")
}

func TestWatchdogStuck(t *testing.T) {
	b := sim.NewBoard(lowMem, sim.Options{StuckWatchdog: true})
	err := newTestSequencer(b).BringUp(lowMem)
	var wdt ErrWatchdog
	require.ErrorAs(t, err, &wdt)
	assert.Len(t, b.Writes(), 1, "second code must not be written before the first is posted")
}

func TestConsoleFailureIsNotFatal(t *testing.T) {
	b := sim.NewBoard(highMem, sim.Options{NoConsole: true})
	require.NoError(t, newTestSequencer(b).BringUp(highMem))
	assert.Empty(t, b.Console())

	// no transport at all
	b = sim.NewBoard(highMem, sim.Options{})
	require.NoError(t, NewSequencer(b, hw.Poller{Limit: 16}, nil, nil).BringUp(highMem))
	assert.Empty(t, b.Console())
}
