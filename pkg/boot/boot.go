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

// Package boot brings the SoC from reset to usable external memory and a
// live console.
package boot

import (
	"jinr.ru/greenlab/go-spl/pkg/board"
	"jinr.ru/greenlab/go-spl/pkg/console"
	"jinr.ru/greenlab/go-spl/pkg/hw"
	"jinr.ru/greenlab/go-spl/pkg/log"
	"jinr.ru/greenlab/go-spl/pkg/soc/am33xx"
)

const (
	// ConfirmChar is emitted once the console is up
	ConfirmChar = '>'
)

// RunningQuery reports whether execution already happens from initialized
// external memory, e.g. after the image relocated itself
type RunningQuery func() bool

type Sequencer struct {
	bus     hw.Bus
	poller  hw.Poller
	console console.Transport
	running RunningQuery
}

// NewSequencer ...
func NewSequencer(b hw.Bus, p hw.Poller, c console.Transport, running RunningQuery) *Sequencer {
	if running == nil {
		running = func() bool { return false }
	}
	return &Sequencer{
		bus:     b,
		poller:  p,
		console: c,
		running: running,
	}
}

// BringUp disarms the watchdog, programs the clock tree, trains the memory
// controller with the profile selected by id and activates the console.
// Every step completes before the next one starts. Any returned error is
// fatal. When already running from external memory nothing is touched.
func (s *Sequencer) BringUp(id board.Identity) error {
	if s.running() {
		log.Debug("Already running from SDRAM, skipping bring-up")
		return nil
	}

	if err := am33xx.DisarmWatchdog(s.bus, s.poller); err != nil {
		return ErrWatchdog{Err: err}
	}
	log.Debug("Watchdog disarmed")

	plan := board.ClockFor(id)
	profile := board.ProfileFor(id)
	log.Info("Board %s: MPU %d MHz, DDR %d MHz, %s profile",
		id.Name(), plan.MPUMultiplier, plan.DDRMultiplier, profile.Name)

	if err := am33xx.InitClocks(s.bus, s.poller, plan); err != nil {
		return ErrClock{Err: err}
	}
	if err := am33xx.InitSDRAM(s.bus, s.poller, board.DDRIOControl, profile); err != nil {
		return ErrTraining{Profile: profile.Name, Err: err}
	}
	log.Debug("SDRAM ready")

	if err := s.activateConsole(); err != nil {
		log.Warning("Console activation failed: %s", err)
	}
	return nil
}

func (s *Sequencer) activateConsole() error {
	if s.console == nil {
		return nil
	}
	if err := s.console.Reset(); err != nil {
		return err
	}
	if err := s.console.Configure(am33xx.UART0PinMux, am33xx.Baud115200); err != nil {
		return err
	}
	return s.console.Emit(ConfirmChar)
}
