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

// Package entry is the reset-time root of the boot loader
package entry

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"jinr.ru/greenlab/go-spl/pkg/board"
	"jinr.ru/greenlab/go-spl/pkg/boot"
	"jinr.ru/greenlab/go-spl/pkg/fault"
	"jinr.ru/greenlab/go-spl/pkg/hw"
	"jinr.ru/greenlab/go-spl/pkg/log"
	"jinr.ru/greenlab/go-spl/pkg/soc/am33xx"
)

const (
	HighMemorySize = 512 << 20
	LowMemorySize  = 256 << 20
)

// MemoryWindow is the trained external memory handed to the next stage
type MemoryWindow struct {
	Base uint32 `json:"base"`
	Size uint32 `json:"size"`
}

func (w MemoryWindow) String() string {
	return fmt.Sprintf("0x%08x+%s", w.Base, humanize.IBytes(uint64(w.Size)))
}

// MemorySize returns the external memory size of the board class
func MemorySize(id board.Identity) uint32 {
	if id.HighMemory() {
		return HighMemorySize
	}
	return LowMemorySize
}

// WindowFor ...
func WindowFor(id board.Identity) MemoryWindow {
	return MemoryWindow{Base: am33xx.DRAMBase, Size: MemorySize(id)}
}

// NextStage receives control once memory is usable. On hardware Enter
// never returns.
type NextStage interface {
	Enter(base, size, flags uint32)
}

// ErrBaseline returned when the CPU could not be put in its reset baseline
type ErrBaseline struct {
	Err error
}

func (e ErrBaseline) Error() string {
	return fmt.Sprintf("CPU baseline: %s", e.Err)
}

func (e ErrBaseline) Unwrap() error {
	return e.Err
}

// Trampoline runs the reset path: save the ROM boot parameters, set the CPU
// baseline, bring up the board and hand off to the next stage
type Trampoline struct {
	bus    hw.Bus
	seq    *boot.Sequencer
	id     board.Identity
	halter fault.Halter
	next   NextStage
}

// NewTrampoline ...
func NewTrampoline(b hw.Bus, seq *boot.Sequencer, id board.Identity, halter fault.Halter, next NextStage) *Trampoline {
	return &Trampoline{
		bus:    b,
		seq:    seq,
		id:     id,
		halter: halter,
		next:   next,
	}
}

// Reset is entered with the boot parameter pointer left by the ROM code.
// On hardware it never returns: control ends either in the next stage or in
// the halt facility. With simulated collaborators it returns the fatal error
// the halt was raised for, or nil after the hand-off.
func (t *Trampoline) Reset(bootInfo uint32) error {
	saved, err := am33xx.SaveBootInfo(t.bus, bootInfo)
	if err != nil {
		return t.fatal(err)
	}
	if !saved {
		log.Debug("Boot info pointer 0x%08x ignored", bootInfo)
	}

	if err := am33xx.LowLevelInit(t.bus); err != nil {
		return t.fatal(ErrBaseline{Err: err})
	}
	if err := t.seq.BringUp(t.id); err != nil {
		return t.fatal(err)
	}

	window := WindowFor(t.id)
	log.Info("Entering next stage with %s", window)
	t.next.Enter(window.Base, window.Size, 0)
	return nil
}

func (t *Trampoline) fatal(err error) error {
	msg := fmt.Sprintf("boot failed: %s", err)
	log.Error("%s", msg)
	t.halter.Halt(msg)
	return err
}
