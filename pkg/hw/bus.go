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

// Package hw is the register access primitive: ordered, uncached reads and
// writes of fixed-width values at absolute physical addresses and of
// privileged CPU control registers.
package hw

import (
	"fmt"
)

// Width is the access size in bytes
type Width uint8

const (
	Width8  Width = 1
	Width16 Width = 2
	Width32 Width = 4
)

// Mask returns the value mask for the width
func (w Width) Mask() uint32 {
	switch w {
	case Width8:
		return 0xff
	case Width16:
		return 0xffff
	default:
		return 0xffffffff
	}
}

func (w Width) String() string {
	return fmt.Sprintf("%d-bit", int(w)*8)
}

// Valid reports whether w is one of the supported access sizes
func (w Width) Valid() bool {
	return w == Width8 || w == Width16 || w == Width32
}

// Control identifies a privileged CPU control register, e.g. a special
// purpose register number or a coprocessor register encoding.
type Control uint32

// Bus gives access to the physical address space and to the control
// registers of one processor. Every call completes before it returns and
// calls are never reordered. A Bus is used from a single thread of execution.
type Bus interface {
	Read(addr uint32, width Width) (uint32, error)
	Write(addr uint32, width Width, value uint32) error
	ReadControl(reg Control) (uint32, error)
	WriteControl(reg Control, value uint32) error
}

// Read32 ...
func Read32(b Bus, addr uint32) (uint32, error) {
	return b.Read(addr, Width32)
}

// Write32 ...
func Write32(b Bus, addr uint32, value uint32) error {
	return b.Write(addr, Width32, value)
}

// Update32 performs a read-modify-write clearing the bits in clear and then
// setting the bits in set
func Update32(b Bus, addr uint32, clear, set uint32) error {
	value, err := b.Read(addr, Width32)
	if err != nil {
		return err
	}
	return b.Write(addr, Width32, (value&^clear)|set)
}

// WriteAll writes a sequence of 32-bit registers in the given order
func WriteAll(b Bus, regs []Reg) error {
	for _, r := range regs {
		if err := b.Write(r.Addr, Width32, r.Value); err != nil {
			return err
		}
	}
	return nil
}

// Reg is an address/value pair
type Reg struct {
	Addr  uint32
	Value uint32
}

// Hex returns address and value as hexadecimal strings
func (r Reg) Hex() (string, string) {
	return fmt.Sprintf("0x%08x", r.Addr), fmt.Sprintf("0x%08x", r.Value)
}
