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

// Package sim models an AM33xx board with an MPC85xx style exception unit on
// top of hw.Sim. Status registers react to the writes the boot code makes,
// so a bring-up runs to completion without hardware.
package sim

import (
	"bytes"
	"fmt"

	"jinr.ru/greenlab/go-spl/pkg/board"
	"jinr.ru/greenlab/go-spl/pkg/fault"
	"jinr.ru/greenlab/go-spl/pkg/hw"
	"jinr.ru/greenlab/go-spl/pkg/soc/am33xx"
)

const (
	// SCTLRReset is the system control register value after reset: MMU off,
	// I-cache, alignment checks and high vectors on
	SCTLRReset = 0x00C53078

	wdtPendingWSPR = 1 << 4
)

// Options selects failure modes of the simulated board
type Options struct {
	// Running makes the board report it already runs from SDRAM
	Running bool
	// FailTraining keeps the PHY DLL from ever reporting ready
	FailTraining bool
	// StuckWatchdog keeps the watchdog write posting status busy
	StuckWatchdog bool
	// NoConsole keeps the UART transmitter busy
	NoConsole bool
}

// Handoff is what the boot stage passed to the next stage
type Handoff struct {
	Base  uint32
	Size  uint32
	Flags uint32
}

// Board is a simulated target. It is a hw.Bus, a fault.Halter and the next
// boot stage at the same time.
type Board struct {
	*hw.Sim

	id   board.Identity
	opts Options

	console       bytes.Buffer
	wspr          []uint32
	invalidations int
	halted        []string
	handoff       *Handoff
}

// NewBoard ...
func NewBoard(id board.Identity, opts Options) *Board {
	b := &Board{
		Sim:  hw.NewSim(),
		id:   id,
		opts: opts,
	}
	b.mapWatchdog()
	b.mapClocks()
	b.mapEMIF()
	b.mapUART()
	b.mapCPU()
	return b
}

func (b *Board) Identity() board.Identity {
	return b.id
}

// Running reports whether the board already executes from SDRAM
func (b *Board) Running() bool {
	return b.opts.Running
}

func (b *Board) mapWatchdog() {
	b.MapIO(am33xx.WDTWSPR, nil, func(addr, value uint32) {
		b.Poke(addr, value)
		b.wspr = append(b.wspr, value)
		b.Poke(am33xx.WDTWWPS, wdtPendingWSPR)
	})
	// the posted write completes after one status read
	b.MapIO(am33xx.WDTWWPS, func(addr uint32) uint32 {
		value := b.Peek(addr)
		if !b.opts.StuckWatchdog {
			b.Poke(addr, 0)
		}
		return value
	}, nil)
}

// WatchdogDisarmed reports whether the last two WSPR writes were the
// disable sequence
func (b *Board) WatchdogDisarmed() bool {
	n := len(b.wspr)
	return n >= 2 && b.wspr[n-2] == am33xx.WDTDisableCode1 && b.wspr[n-1] == am33xx.WDTDisableCode2
}

func (b *Board) mapClocks() {
	for _, dpll := range []am33xx.DPLL{am33xx.MPUDPLL(), am33xx.CoreDPLL(), am33xx.PerDPLL(), am33xx.DDRDPLL()} {
		idleSt := dpll.IdleSt
		b.MapIO(dpll.ClkMode, nil, func(addr, value uint32) {
			b.Poke(addr, value)
			switch value & am33xx.DPLLEnMask {
			case am33xx.DPLLEnMNBypass:
				b.Poke(idleSt, am33xx.IdleStMNBypass)
			case am33xx.DPLLEnLock:
				b.Poke(idleSt, am33xx.IdleStDPLLClk)
			default:
				b.Poke(idleSt, 0)
			}
		})
		// DPLLs come out of reset locked
		b.Poke(dpll.ClkMode, am33xx.DPLLEnLock)
		b.Poke(idleSt, am33xx.IdleStDPLLClk)
	}
	b.Poke(am33xx.CMPerL3ClkStCtrl, am33xx.ClkActivityEMIFGClk)
}

func (b *Board) mapEMIF() {
	b.MapIO(am33xx.VTP0Ctrl, nil, func(addr, value uint32) {
		if value&am33xx.VTPCtrlStart != 0 && value&am33xx.VTPCtrlEnable != 0 {
			value |= am33xx.VTPCtrlReady
		}
		b.Poke(addr, value)
	})
	b.MapIO(am33xx.EMIFSDRAMConfig, nil, func(addr, value uint32) {
		b.Poke(addr, value)
		if !b.opts.FailTraining {
			b.Poke(am33xx.EMIFStatus, b.Peek(am33xx.EMIFStatus)|am33xx.EMIFStatusPHYDLLReady)
		}
	})
}

func (b *Board) mapUART() {
	base := uint32(am33xx.UART0Base)
	b.MapIO(base+am33xx.UARTSYSC, nil, func(addr, value uint32) {
		if value&am33xx.UARTSYSCSoftReset != 0 {
			value &^= am33xx.UARTSYSCSoftReset
			b.Poke(base+am33xx.UARTSYSS, am33xx.UARTSYSSResetDone)
		}
		b.Poke(addr, value)
	})
	b.MapIO(base+am33xx.UARTTHR, nil, func(addr, value uint32) {
		if b.Peek(base+am33xx.UARTLCR)&am33xx.UARTLCRDivLatch != 0 {
			b.Poke(addr, value)
			return
		}
		b.console.WriteByte(byte(value))
	})
	if !b.opts.NoConsole {
		b.Poke(base+am33xx.UARTLSR, am33xx.UARTLSRTHRE)
	}
}

func (b *Board) mapCPU() {
	b.PokeControl(am33xx.SCTLR, SCTLRReset)
	b.MapControl(am33xx.ICIALLU, nil, func(uint32, uint32) {
		b.invalidations++
	})
}

// Console returns everything transmitted on UART0
func (b *Board) Console() string {
	return b.console.String()
}

// ICacheInvalidations counts full instruction cache invalidations
func (b *Board) ICacheInvalidations() int {
	return b.invalidations
}

// LoadBootInfo places the ROM boot parameters at addr
func (b *Board) LoadBootInfo(addr uint32, words [am33xx.BootInfoWords]uint32) {
	for i, w := range words {
		b.Poke(addr+uint32(i)*4, w)
	}
}

// SavedBootInfo returns the boot parameters found in the scratch space
func (b *Board) SavedBootInfo() [am33xx.BootInfoWords]uint32 {
	var words [am33xx.BootInfoWords]uint32
	for i := range words {
		words[i] = b.Peek(am33xx.SRAMScratchSpace + uint32(i)*4)
	}
	return words
}

// SetMachineCheck loads the machine check registers a following machine
// check exception will report
func (b *Board) SetMachineCheck(mc fault.MachineCheck) {
	b.PokeControl(fault.SPRMCSR, mc.MCSR)
	b.PokeControl(fault.SPRMCSRR0, mc.MCSRR0)
	b.PokeControl(fault.SPRMCSRR1, mc.MCSRR1)
	b.PokeControl(fault.SPRMCAR, mc.MCAR)
}

// SetESR loads the exception syndrome register
func (b *Board) SetESR(esr uint32) {
	b.PokeControl(fault.SPRESR, esr)
}

// StackFrames lays out a back chain starting at sp with one frame per
// saved link register. Each caller frame sits size bytes above its callee.
func (b *Board) StackFrames(sp, size uint32, lrs ...uint32) {
	for i, lr := range lrs {
		frame := sp + uint32(i)*size
		next := frame + size
		if i == len(lrs)-1 {
			next = 0
		}
		b.Poke(frame, next)
		b.Poke(frame+4, lr)
	}
}

// Halt implements fault.Halter. The simulated core stops, it does not
// block.
func (b *Board) Halt(msg string) {
	b.halted = append(b.halted, msg)
}

// Halted returns the halt messages in order
func (b *Board) Halted() []string {
	return append([]string(nil), b.halted...)
}

// Enter records the hand-off to the next boot stage
func (b *Board) Enter(base, size, flags uint32) {
	b.handoff = &Handoff{Base: base, Size: size, Flags: flags}
}

// Handoff returns the hand-off, nil if the next stage was never entered
func (b *Board) Handoff() *Handoff {
	return b.handoff
}

func (b *Board) String() string {
	return fmt.Sprintf("sim %s", b.id.Name())
}
