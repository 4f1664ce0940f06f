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

package am33xx

import (
	"jinr.ru/greenlab/go-spl/pkg/hw"
)

// CP15 returns the control register encoding of a coprocessor 15 register
func CP15(crn, opc1, crm, opc2 uint32) hw.Control {
	return hw.Control(15<<24 | crn<<16 | opc1<<12 | crm<<8 | opc2)
}

var (
	// SCTLR is the system control register
	SCTLR = CP15(1, 0, 0, 0)
	// ICIALLU invalidates the whole instruction cache
	ICIALLU = CP15(7, 0, 5, 0)
)

const (
	SCTLRMMU      = 1 << 0
	SCTLRAlign    = 1 << 1
	SCTLRDCache   = 1 << 2
	SCTLRICache   = 1 << 12
	SCTLRHighVecs = 1 << 13
)

// LowLevelInit puts the core in its cache and MMU off baseline
func LowLevelInit(b hw.Bus) error {
	sctlr, err := b.ReadControl(SCTLR)
	if err != nil {
		return err
	}
	sctlr &^= SCTLRMMU | SCTLRAlign | SCTLRDCache | SCTLRICache | SCTLRHighVecs
	if err := b.WriteControl(SCTLR, sctlr); err != nil {
		return err
	}
	return b.WriteControl(ICIALLU, 0)
}

// SaveBootInfo copies the boot parameters the ROM code passed at info into
// the SRAM scratch space. A pointer that is not word aligned or does not
// lie within SRAM0 is ignored and false is returned. The upper bound leaves
// room for all BootInfoWords words, so no read runs past the end of SRAM0.
func SaveBootInfo(b hw.Bus, info uint32) (bool, error) {
	if info&0x3 != 0 {
		return false, nil
	}
	if info < SRAM0Start || info > SRAM0Start+SRAM0Size-BootInfoWords*4 {
		return false, nil
	}
	for i := uint32(0); i < BootInfoWords; i++ {
		value, err := hw.Read32(b, info+i*4)
		if err != nil {
			return false, err
		}
		if err := hw.Write32(b, SRAMScratchSpace+i*4, value); err != nil {
			return false, err
		}
	}
	return true, nil
}
