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

package entry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-spl/pkg/board"
	"jinr.ru/greenlab/go-spl/pkg/boot"
	"jinr.ru/greenlab/go-spl/pkg/hw"
	"jinr.ru/greenlab/go-spl/pkg/sim"
	"jinr.ru/greenlab/go-spl/pkg/soc/am33xx"
)

const bootInfoAddr = am33xx.SRAM0Start + 0x100

var bootInfo = [am33xx.BootInfoWords]uint32{0x11111111, 0x22222222, 0x33333333}

func newTestTrampoline(id board.Identity, opts sim.Options) (*Trampoline, *sim.Board) {
	b := sim.NewBoard(id, opts)
	p := hw.Poller{Limit: 16}
	seq := boot.NewSequencer(b, p, am33xx.NewUART(b, p, am33xx.UART0Base), b.Running)
	return NewTrampoline(b, seq, id, b, b), b
}

func TestMemorySize(t *testing.T) {
	assert.Equal(t, uint32(512<<20), MemorySize(board.NewVariant("bone", true)))
	assert.Equal(t, uint32(256<<20), MemorySize(board.NewVariant("evm", false)))
	assert.Equal(t, MemoryWindow{Base: 0x80000000, Size: 256 << 20}, WindowFor(board.NewVariant("evm", false)))
	assert.Equal(t, "0x80000000+512 MiB", WindowFor(board.NewVariant("bone", true)).String())
}

func TestReset(t *testing.T) {
	for _, id := range []board.Variant{board.NewVariant("evm", false), board.NewVariant("bone", true)} {
		t.Run(id.Name(), func(t *testing.T) {
			tr, b := newTestTrampoline(id, sim.Options{})
			b.LoadBootInfo(bootInfoAddr, bootInfo)

			require.NoError(t, tr.Reset(bootInfoAddr))

			assert.Equal(t, bootInfo, b.SavedBootInfo())
			sctlr := b.PeekControl(am33xx.SCTLR)
			assert.Zero(t, sctlr&(am33xx.SCTLRMMU|am33xx.SCTLRDCache|am33xx.SCTLRICache))
			assert.Equal(t, 1, b.ICacheInvalidations())
			assert.Equal(t, &sim.Handoff{Base: am33xx.DRAMBase, Size: MemorySize(id)}, b.Handoff())
			assert.Empty(t, b.Halted())
			assert.Equal(t, ">", b.Console())
		})
	}
}

func TestResetIgnoresBadBootInfo(t *testing.T) {
	for _, addr := range []uint32{
		bootInfoAddr + 2,
		am33xx.SRAM0Start - 4,
		am33xx.SRAM0Start + am33xx.SRAM0Size - 8,
		0,
	} {
		tr, b := newTestTrampoline(board.NewVariant("evm", false), sim.Options{})
		b.LoadBootInfo(addr&^3, bootInfo)

		require.NoError(t, tr.Reset(addr))
		assert.Equal(t, [am33xx.BootInfoWords]uint32{}, b.SavedBootInfo(), "0x%08x", addr)
		assert.NotNil(t, b.Handoff())
	}
}

func TestResetHaltsOnTrainingFailure(t *testing.T) {
	tr, b := newTestTrampoline(board.NewVariant("bone", true), sim.Options{FailTraining: true})

	err := tr.Reset(bootInfoAddr)
	var training boot.ErrTraining
	require.ErrorAs(t, err, &training)
	require.Len(t, b.Halted(), 1)
	assert.Contains(t, b.Halted()[0], "SDRAM training failed")
	assert.Nil(t, b.Handoff())
}
