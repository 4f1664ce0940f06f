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

package hw

import (
	"fmt"
	"sort"
)

// Op is the kind of a traced access
type Op int

const (
	OpRead Op = iota
	OpWrite
	OpReadControl
	OpWriteControl
)

func (op Op) String() string {
	switch op {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpReadControl:
		return "read-ctl"
	case OpWriteControl:
		return "write-ctl"
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// Access is one traced bus access. For control register accesses Addr holds
// the control register number.
type Access struct {
	Op    Op
	Addr  uint32
	Width Width
	Value uint32
}

func (a Access) String() string {
	return fmt.Sprintf("%s %s 0x%08x = 0x%08x", a.Op, a.Width, a.Addr, a.Value)
}

// IsWrite reports whether the access modified state
func (a Access) IsWrite() bool {
	return a.Op == OpWrite || a.Op == OpWriteControl
}

type ioRegion struct {
	onRead  func(addr uint32) uint32
	onWrite func(addr uint32, value uint32)
}

// Sim is a simulated register file implementing Bus. Plain addresses behave
// as memory, addresses mapped with MapIO call back into the owner so status
// registers can react to writes. Every access through the Bus interface is
// appended to the trace. Sim is not safe for concurrent use.
type Sim struct {
	words   map[uint32]uint32
	control map[Control]uint32
	io      map[uint32]ioRegion
	ctlIO   map[Control]ioRegion
	trace   []Access
}

var _ Bus = &Sim{}

// NewSim ...
func NewSim() *Sim {
	return &Sim{
		words:   map[uint32]uint32{},
		control: map[Control]uint32{},
		io:      map[uint32]ioRegion{},
		ctlIO:   map[Control]ioRegion{},
	}
}

// MapIO installs callbacks for the word at addr. A nil onRead returns the
// stored word, a nil onWrite stores the written word.
func (s *Sim) MapIO(addr uint32, onRead func(addr uint32) uint32, onWrite func(addr uint32, value uint32)) {
	s.io[addr&^3] = ioRegion{onRead: onRead, onWrite: onWrite}
}

// MapControl installs callbacks for a control register
func (s *Sim) MapControl(reg Control, onRead func(addr uint32) uint32, onWrite func(addr uint32, value uint32)) {
	s.ctlIO[reg] = ioRegion{onRead: onRead, onWrite: onWrite}
}

func check(addr uint32, width Width) error {
	if !width.Valid() {
		return ErrWidth{Width: width}
	}
	if addr%uint32(width) != 0 {
		return ErrUnaligned{Addr: addr, Width: width}
	}
	return nil
}

func lane(addr uint32, width Width) (shift uint32, mask uint32) {
	shift = (addr & 3) * 8
	return shift, width.Mask() << shift
}

func (s *Sim) Read(addr uint32, width Width) (uint32, error) {
	if err := check(addr, width); err != nil {
		return 0, err
	}
	word := addr &^ 3
	var value uint32
	if region, ok := s.io[word]; ok && region.onRead != nil {
		value = region.onRead(word)
	} else {
		value = s.words[word]
	}
	shift, mask := lane(addr, width)
	value = (value & mask) >> shift
	s.trace = append(s.trace, Access{Op: OpRead, Addr: addr, Width: width, Value: value})
	return value, nil
}

func (s *Sim) Write(addr uint32, width Width, value uint32) error {
	if err := check(addr, width); err != nil {
		return err
	}
	value &= width.Mask()
	s.trace = append(s.trace, Access{Op: OpWrite, Addr: addr, Width: width, Value: value})
	word := addr &^ 3
	shift, mask := lane(addr, width)
	merged := (s.words[word] &^ mask) | (value << shift)
	if region, ok := s.io[word]; ok && region.onWrite != nil {
		region.onWrite(word, merged)
		return nil
	}
	s.words[word] = merged
	return nil
}

func (s *Sim) ReadControl(reg Control) (uint32, error) {
	var value uint32
	if region, ok := s.ctlIO[reg]; ok && region.onRead != nil {
		value = region.onRead(uint32(reg))
	} else {
		value = s.control[reg]
	}
	s.trace = append(s.trace, Access{Op: OpReadControl, Addr: uint32(reg), Width: Width32, Value: value})
	return value, nil
}

func (s *Sim) WriteControl(reg Control, value uint32) error {
	s.trace = append(s.trace, Access{Op: OpWriteControl, Addr: uint32(reg), Width: Width32, Value: value})
	if region, ok := s.ctlIO[reg]; ok && region.onWrite != nil {
		region.onWrite(uint32(reg), value)
		return nil
	}
	s.control[reg] = value
	return nil
}

// Peek returns the stored word at addr without tracing or callbacks
func (s *Sim) Peek(addr uint32) uint32 {
	return s.words[addr&^3]
}

// Poke stores a word at addr without tracing or callbacks
func (s *Sim) Poke(addr uint32, value uint32) {
	s.words[addr&^3] = value
}

// PeekControl ...
func (s *Sim) PeekControl(reg Control) uint32 {
	return s.control[reg]
}

// PokeControl ...
func (s *Sim) PokeControl(reg Control, value uint32) {
	s.control[reg] = value
}

// Trace returns a copy of the accesses made so far
func (s *Sim) Trace() []Access {
	trace := make([]Access, len(s.trace))
	copy(trace, s.trace)
	return trace
}

// Writes returns only the accesses that modified state
func (s *Sim) Writes() []Access {
	var writes []Access
	for _, a := range s.trace {
		if a.IsWrite() {
			writes = append(writes, a)
		}
	}
	return writes
}

// ResetTrace drops the recorded accesses
func (s *Sim) ResetTrace() {
	s.trace = nil
}

// Snapshot returns all stored words sorted by address
func (s *Sim) Snapshot() []Reg {
	regs := make([]Reg, 0, len(s.words))
	for addr, value := range s.words {
		regs = append(regs, Reg{Addr: addr, Value: value})
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].Addr < regs[j].Addr })
	return regs
}
