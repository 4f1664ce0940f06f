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
	"strconv"

	"jinr.ru/greenlab/go-spl/pkg/hw"
)

// Vector is the exception vector offset the hardware trap mechanism stores
// in the record. It selects the handler.
type Vector uint32

const (
	VectorCriticalInput Vector = 0x0100
	VectorMachineCheck  Vector = 0x0200
	VectorAlignment     Vector = 0x0600
	VectorProgram       Vector = 0x0700
	VectorPIT           Vector = 0x1000
	VectorDebug         Vector = 0x2000
)

// Vectors lists the handled vectors in address order
var Vectors = []Vector{
	VectorCriticalInput,
	VectorMachineCheck,
	VectorAlignment,
	VectorProgram,
	VectorPIT,
	VectorDebug,
}

var vectorNames = map[Vector]string{
	VectorCriticalInput: "critical-input",
	VectorMachineCheck:  "machine-check",
	VectorAlignment:     "alignment",
	VectorProgram:       "program",
	VectorPIT:           "pit",
	VectorDebug:         "debug",
}

func (v Vector) String() string {
	if name, ok := vectorNames[v]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%04x)", uint32(v))
}

// ParseVector accepts a vector name or a numeric offset
func ParseVector(s string) (Vector, error) {
	for v, name := range vectorNames {
		if name == s {
			return v, nil
		}
	}
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown exception vector %q", s)
	}
	return Vector(n), nil
}

// Special purpose registers read and written by the handlers
const (
	SPRESR    hw.Control = 0x03E
	SPRTSR    hw.Control = 0x150
	SPRMCSRR0 hw.Control = 0x23A
	SPRMCSRR1 hw.Control = 0x23B
	SPRMCSR   hw.Control = 0x23C
	SPRMCAR   hw.Control = 0x23D
)

// Exception syndrome register bits
const (
	ESRMCI = 0x80000000
	ESRPIL = 0x08000000 // illegal instruction
	ESRPPR = 0x04000000 // privileged instruction
	ESRPTR = 0x02000000 // trap instruction
	ESRDST = 0x00800000
	ESRDIZ = 0x00400000
	ESRU0F = 0x00008000
)

const (
	// TSRPITAck clears the pending PIT status in TSR
	TSRPITAck = 0x0C000000
)

// Machine state register bits
const (
	MSREE = 1 << 15
	MSRPR = 1 << 14
	MSRFP = 1 << 13
	MSRME = 1 << 12
	MSRIR = 1 << 5
	MSRDR = 1 << 4
)

// Cause maps one machine check syndrome bit to its description
type Cause struct {
	Bit  uint32
	Text string
}

// MachineCheckCauses lists the MCSR bits in report order
var MachineCheckCauses = []Cause{
	{0x80000000, "Machine check input pin"},
	{0x40000000, "Instruction cache parity error"},
	{0x20000000, "Data cache push parity error"},
	{0x10000000, "Data cache parity error"},
	{0x00000080, "Bus instruction address error"},
	{0x00000040, "Bus Read address error"},
	{0x00000020, "Bus Write address error"},
	{0x00000010, "Bus Instruction data bus error"},
	{0x00000008, "Bus Read data bus error"},
	{0x00000004, "Bus Write bus error"},
	{0x00000002, "Bus Instruction parity error"},
	{0x00000001, "Bus Read parity error"},
}

// Causes returns the description of every cause bit set in mcsr
func Causes(mcsr uint32) []string {
	var causes []string
	for _, c := range MachineCheckCauses {
		if mcsr&c.Bit != 0 {
			causes = append(causes, c.Text)
		}
	}
	return causes
}
