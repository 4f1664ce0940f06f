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

package fault

import (
	"fmt"
	"io"

	"jinr.ru/greenlab/go-spl/pkg/hw"
	"jinr.ru/greenlab/go-spl/pkg/log"
)

const (
	// MachineCheckCeiling is the tally above which a machine check halts
	MachineCheckCeiling = 10
	// InsnWidth is the size of one instruction
	InsnWidth = 4
)

// Action tells the trap exit path what to do with the record
type Action int

const (
	// Resume returns to rec.NIP
	Resume Action = iota
	// Halt means the halt facility has been invoked
	Halt
)

func (a Action) String() string {
	switch a {
	case Resume:
		return "resume"
	case Halt:
		return "halt"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Halter stops the processor. On hardware Halt never returns.
type Halter interface {
	Halt(msg string)
}

// HaltFunc adapts a function to Halter
type HaltFunc func(msg string)

func (f HaltFunc) Halt(msg string) { f(msg) }

// Dispatcher classifies exception records and applies the recover or halt
// policy. It owns the machine check tally. A Dispatcher is not safe for
// concurrent use.
type Dispatcher struct {
	bus      hw.Bus
	out      io.Writer
	halter   Halter
	recovery *RecoveryTable
	memEnd   uint32

	tally  Tally
	last   MachineCheck
	halted string
}

// NewDispatcher returns a dispatcher with a zero tally. Reports are written
// to out and stack frames are read through b up to memEnd.
func NewDispatcher(b hw.Bus, out io.Writer, halter Halter, recovery *RecoveryTable, memEnd uint32) *Dispatcher {
	return &Dispatcher{
		bus:      b,
		out:      out,
		halter:   halter,
		recovery: recovery,
		memEnd:   memEnd,
	}
}

func (d *Dispatcher) Tally() Tally {
	return d.tally
}

// LastMachineCheck returns the registers captured by the most recent
// unmapped machine check
func (d *Dispatcher) LastMachineCheck() MachineCheck {
	return d.last
}

// Halted reports whether the halt facility has been invoked and with which
// message
func (d *Dispatcher) Halted() (string, bool) {
	return d.halted, d.halted != ""
}

// Dispatch runs the handler selected by rec.Vector. Handlers may adjust
// rec.NIP before a Resume.
func (d *Dispatcher) Dispatch(rec *Record) Action {
	if msg, ok := d.Halted(); ok {
		log.Warning("Dispatcher already halted (%s), ignoring %s exception", msg, rec.Vector)
		return Halt
	}
	log.Debug("Dispatching %s exception at 0x%08x", rec.Vector, rec.NIP)

	switch rec.Vector {
	case VectorCriticalInput:
		return d.criticalInput(rec)
	case VectorMachineCheck:
		return d.machineCheck(rec)
	case VectorAlignment:
		return d.alignment(rec)
	case VectorProgram:
		return d.programCheck(rec)
	case VectorPIT:
		return d.pit(rec)
	case VectorDebug:
		return d.debug(rec)
	default:
		return d.unknown(rec)
	}
}

func (d *Dispatcher) halt(msg string) Action {
	log.Error("Halting: %s", msg)
	d.halted = msg
	d.halter.Halt(msg)
	return Halt
}

func (d *Dispatcher) readSPR(reg hw.Control) uint32 {
	value, err := d.bus.ReadControl(reg)
	if err != nil {
		log.Error("Error while reading SPR 0x%03x: %s", uint32(reg), err)
		return 0
	}
	return value
}

func (d *Dispatcher) backtrace(rec *Record) {
	Backtrace(d.out, d.bus, rec.SP(), d.memEnd)
}

func (d *Dispatcher) unknown(rec *Record) Action {
	fmt.Fprintf(d.out, "Bad trap at PC: %x, SR: %x, vector=%x\n", rec.NIP, rec.MSR, uint32(rec.Vector))
	ShowRegs(d.out, rec)
	d.backtrace(rec)
	return d.halt(fmt.Sprintf("Exception in kernel pc %x signal %d", rec.NIP, 0))
}

func (d *Dispatcher) criticalInput(rec *Record) Action {
	ShowRegs(d.out, rec)
	return d.halt("Critical Input Exception")
}

func (d *Dispatcher) alignment(rec *Record) Action {
	ShowRegs(d.out, rec)
	d.backtrace(rec)
	return d.halt("Alignment Exception")
}

// ProgramCheckKind classifies the syndrome of a program check
func ProgramCheckKind(esr uint32) string {
	switch {
	case esr&ESRPIL != 0:
		return "Illegal Instruction"
	case esr&ESRPPR != 0:
		return "Privileged Instruction"
	case esr&ESRPTR != 0:
		return "Trap Instruction"
	}
	return ""
}

func (d *Dispatcher) programCheck(rec *Record) Action {
	ShowRegs(d.out, rec)
	if kind := ProgramCheckKind(d.readSPR(SPRESR)); kind != "" {
		fmt.Fprintf(d.out, "** %s **\n", kind)
	}
	d.backtrace(rec)
	return d.halt("Program Check Exception")
}

func (d *Dispatcher) pit(rec *Record) Action {
	if err := d.bus.WriteControl(SPRTSR, TSRPITAck); err != nil {
		log.Error("Error while acknowledging PIT: %s", err)
	}
	return Resume
}

func (d *Dispatcher) debug(rec *Record) Action {
	fmt.Fprintf(d.out, "Debugger trap at @ %x\n", rec.NIP)
	ShowRegs(d.out, rec)
	return Resume
}

func (d *Dispatcher) machineCheck(rec *Record) Action {
	if resume, ok := d.recovery.Lookup(rec.NIP); ok {
		log.Debug("Machine check at 0x%08x recovered to 0x%08x", rec.NIP, resume)
		rec.NIP = resume
		return Resume
	}

	mc := MachineCheck{
		MCSRR0: d.readSPR(SPRMCSRR0),
		MCSRR1: d.readSPR(SPRMCSRR1),
		MCSR:   d.readSPR(SPRMCSR),
		MCAR:   d.readSPR(SPRMCAR),
	}
	d.last = mc
	count := d.tally.record()

	fmt.Fprintln(d.out, "Machine check in kernel mode.")
	fmt.Fprint(d.out, "Caused by (from mcsr): ")
	fmt.Fprintf(d.out, "mcsr = 0x%08x\n", mc.MCSR)
	for _, cause := range Causes(mc.MCSR) {
		fmt.Fprintln(d.out, cause)
	}
	ShowRegs(d.out, rec)
	fmt.Fprintf(d.out, "MCSR=0x%08x\tMCSRR0=0x%08x\nMCSRR1=0x%08x\tMCAR=0x%08x\n",
		mc.MCSR, mc.MCSRR0, mc.MCSRR1, mc.MCAR)
	d.backtrace(rec)

	switch {
	case count > MachineCheckCeiling:
		return d.halt("machine check count too high")
	case count > 1:
		rec.NIP += InsnWidth
		fmt.Fprintf(d.out, "Skipping current instr, Returning to 0x%08x\n", rec.NIP)
		log.Warning("Machine check #%d, skipping to 0x%08x", count, rec.NIP)
	default:
		fmt.Fprintf(d.out, "Returning back to 0x%08x\n", rec.NIP)
		log.Warning("Machine check #%d, retrying 0x%08x", count, rec.NIP)
	}
	return Resume
}
