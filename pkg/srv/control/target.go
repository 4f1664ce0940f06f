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

package control

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"jinr.ru/greenlab/go-spl/pkg/board"
	"jinr.ru/greenlab/go-spl/pkg/boot"
	"jinr.ru/greenlab/go-spl/pkg/config"
	"jinr.ru/greenlab/go-spl/pkg/entry"
	"jinr.ru/greenlab/go-spl/pkg/fault"
	"jinr.ru/greenlab/go-spl/pkg/hw"
	"jinr.ru/greenlab/go-spl/pkg/link"
	"jinr.ru/greenlab/go-spl/pkg/log"
	"jinr.ru/greenlab/go-spl/pkg/sim"
	"jinr.ru/greenlab/go-spl/pkg/soc/am33xx"
)

const (
	FailTraining = "training"
	FailWatchdog = "watchdog"
	FailConsole  = "console"
)

// Target is one configured board. Boards with a debug agent are driven over
// the link, all others are simulated. All operations on a target are
// serialized.
type Target struct {
	mu sync.Mutex
	*config.BoardConfig

	poller   hw.Poller
	recovery *fault.RecoveryTable
	memEnd   uint32

	client *link.Client
	sim    *sim.Board
	bus    hw.Bus

	dispatcher *fault.Dispatcher
	report     bytes.Buffer
	halts      []string
	window     *entry.MemoryWindow
	booted     bool
}

var (
	_ fault.Halter    = &Target{}
	_ entry.NextStage = &Target{}
)

// NewTarget ...
func NewTarget(cfg *config.Config, bc *config.BoardConfig) (*Target, error) {
	recovery, err := cfg.RecoveryTable()
	if err != nil {
		return nil, err
	}
	t := &Target{
		BoardConfig: bc,
		poller:      cfg.Poller(),
		recovery:    recovery,
		memEnd:      cfg.MemEnd(),
	}
	if bc.Agent != "" {
		client, err := link.Dial(bc.Agent, link.Options{})
		if err != nil {
			return nil, err
		}
		t.client = client
		t.bus = link.NewRemoteBus(client)
		// a real board runs its own boot, traps may arrive at any time
		t.dispatcher = t.newDispatcher()
	}
	return t, nil
}

// Remote reports whether the target is reached through a debug agent
func (t *Target) Remote() bool {
	return t.client != nil
}

func (t *Target) Close() {
	if t.client != nil {
		t.client.Close()
	}
}

// Halt implements fault.Halter. The target keeps serving requests, the
// halt only ends its boot or its exception handling.
func (t *Target) Halt(msg string) {
	log.Error("Board %s halted: %s", t.Name, msg)
	t.halts = append(t.halts, msg)
}

// Enter implements entry.NextStage
func (t *Target) Enter(base, size, flags uint32) {
	log.Info("Board %s: entering next stage at 0x%08x, %d bytes, flags 0x%x", t.Name, base, size, flags)
	t.window = &entry.MemoryWindow{Base: base, Size: size}
}

func (t *Target) newDispatcher() *fault.Dispatcher {
	return fault.NewDispatcher(t.bus, &t.report, t, t.recovery, t.memEnd)
}

// SimOptions returns the simulated board options the request asks for
func SimOptions(req *BootRequest) (sim.Options, error) {
	opts := sim.Options{Running: req.Running}
	switch req.Fail {
	case "":
	case FailTraining:
		opts.FailTraining = true
	case FailWatchdog:
		opts.StuckWatchdog = true
	case FailConsole:
		opts.NoConsole = true
	default:
		return opts, fmt.Errorf("unknown failure mode: %s", req.Fail)
	}
	return opts, nil
}

// Boot runs the entry trampoline against the target. A simulated target
// is replaced by a fresh board first. The dispatcher and its tally start
// over with every boot. The returned registers are the state of the
// target after the boot.
func (t *Target) Boot(req *BootRequest) (*BootResult, []hw.Reg, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	bootInfo, err := ParseHex32(req.BootInfo)
	if err != nil {
		return nil, nil, err
	}
	id := t.Identity()
	running := boot.RunningQuery(nil)
	if !t.Remote() {
		opts, err := SimOptions(req)
		if err != nil {
			return nil, nil, err
		}
		t.sim = sim.NewBoard(id, opts)
		t.bus = t.sim
		running = t.sim.Running
	}
	t.halts = nil
	t.window = nil

	seq := boot.NewSequencer(t.bus, t.poller, am33xx.NewUART(t.bus, t.poller, am33xx.UART0Base), running)
	tr := entry.NewTrampoline(t.bus, seq, id, t, t)
	bootErr := tr.Reset(bootInfo)

	t.booted = true
	t.dispatcher = t.newDispatcher()

	result := &BootResult{
		Board:   t.Name,
		Profile: board.ProfileFor(id).Name,
	}
	if t.window != nil {
		result.Base = Hex32(t.window.Base)
		result.Size = t.window.Size
	}
	if len(t.halts) > 0 {
		result.Halted = t.halts[len(t.halts)-1]
	}
	if bootErr != nil {
		result.Error = bootErr.Error()
	}

	regs, err := t.snapshot(id)
	if err != nil {
		return nil, nil, err
	}
	if t.sim != nil {
		result.Console = t.sim.Console()
	}
	result.Registers = len(regs)
	return result, regs, nil
}

// snapshot returns the whole register file of a simulated board. A real
// board is asked for the memory controller registers only.
func (t *Target) snapshot(id board.Identity) ([]hw.Reg, error) {
	if t.sim != nil {
		return t.sim.Snapshot(), nil
	}
	var regs []hw.Reg
	for _, reg := range am33xx.ProfileRegs(board.DDRIOControl, board.ProfileFor(id)) {
		value, err := hw.Read32(t.bus, reg.Addr)
		if err != nil {
			return nil, err
		}
		regs = append(regs, hw.Reg{Addr: reg.Addr, Value: value})
	}
	return regs, nil
}

// Fault raises the exception described by req on the target. A simulated
// target gets the syndrome registers loaded first.
func (t *Target) Fault(req *FaultRequest) (*Report, error) {
	rec, err := req.Record()
	if err != nil {
		return nil, err
	}
	esr, mcsr, mcar, err := req.Syndrome()
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dispatcher == nil {
		return nil, ErrNotBooted{Board: t.Name}
	}
	if t.sim != nil {
		t.sim.SetESR(esr)
		t.sim.SetMachineCheck(fault.MachineCheck{
			MCSR:   mcsr,
			MCSRR0: rec.NIP,
			MCSRR1: rec.MSR,
			MCAR:   mcar,
		})
	}
	return t.dispatch(rec), nil
}

// Trap dispatches a record the board captured itself
func (t *Target) Trap(rec *fault.Record) (*Report, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dispatcher == nil {
		return nil, ErrNotBooted{Board: t.Name}
	}
	return t.dispatch(rec), nil
}

func (t *Target) dispatch(rec *fault.Record) *Report {
	t.report.Reset()
	nip := rec.NIP
	_, wasHalted := t.dispatcher.Halted()
	action := t.dispatcher.Dispatch(rec)

	report := &Report{
		Board:  t.Name,
		Vector: rec.Vector.String(),
		Action: action.String(),
		NIP:    Hex32(nip),
		Resume: Hex32(rec.NIP),
		Tally:  t.dispatcher.Tally(),
		Text:   t.report.String(),
		Time:   time.Now(),
	}
	if msg, ok := t.dispatcher.Halted(); ok {
		report.Halted = msg
	}
	// a halted dispatcher ignores the exception and keeps the old registers
	if _, mapped := t.recovery.Lookup(nip); rec.Vector == fault.VectorMachineCheck && !mapped && !wasHalted {
		mc := t.dispatcher.LastMachineCheck()
		report.MachineCheck = &mc
	}
	log.Debug("Board %s: %s exception at %s: %s", t.Name, report.Vector, report.NIP, report.Action)
	return report
}

// Status ...
func (t *Target) Status() *BoardStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	status := &BoardStatus{
		Name:       t.Name,
		ID:         t.ID,
		HighMemory: t.HighMemory,
		Profile:    board.ProfileFor(t.Identity()).Name,
		Agent:      t.Agent,
		Booted:     t.booted,
	}
	if t.dispatcher != nil {
		if msg, ok := t.dispatcher.Halted(); ok {
			status.Halted = msg
		}
	}
	if status.Halted == "" && len(t.halts) > 0 {
		status.Halted = t.halts[len(t.halts)-1]
	}
	return status
}
