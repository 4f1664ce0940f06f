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

package board

import (
	"fmt"
)

// Identity is the board classification resolved from straps and fuses at
// reset. It never changes while the boot loader runs.
type Identity interface {
	Name() string
	// HighMemory is true for the board class fitted with DDR3 and 512 MiB
	HighMemory() bool
}

// Variant is a fixed Identity
type Variant struct {
	name       string
	highMemory bool
}

var _ Identity = Variant{}

// NewVariant ...
func NewVariant(name string, highMemory bool) Variant {
	return Variant{name: name, highMemory: highMemory}
}

func (v Variant) Name() string {
	return v.name
}

func (v Variant) HighMemory() bool {
	return v.highMemory
}

func (v Variant) String() string {
	return fmt.Sprintf("%s (%s)", v.name, ProfileFor(v).Name)
}

// ClockPlan is the DPLL programming target for a board class
type ClockPlan struct {
	// OscMHz is the reference oscillator frequency
	OscMHz uint32
	// MPUMultiplier is the MPU DPLL multiplier (M), output in MHz
	MPUMultiplier uint32
	// DDRMultiplier is the DDR DPLL multiplier (M), output in MHz
	DDRMultiplier uint32
}

const (
	OscMHz     = 24
	MPUPLLM500 = 500
	DDRPLLM400 = 400
	DDRPLLM266 = 266
)

// ClockFor selects the clock plan. The DDR3 board runs its memory clock at
// 400 MHz, the DDR2 board at 266 MHz.
func ClockFor(id Identity) ClockPlan {
	if id.HighMemory() {
		return ClockPlan{OscMHz: OscMHz, MPUMultiplier: MPUPLLM500, DDRMultiplier: DDRPLLM400}
	}
	return ClockPlan{OscMHz: OscMHz, MPUMultiplier: MPUPLLM500, DDRMultiplier: DDRPLLM266}
}

// ProfileFor selects the memory timing profile: profile B (DDR3) for the
// high-memory board class, profile A (DDR2) otherwise.
func ProfileFor(id Identity) *TimingProfile {
	if id.HighMemory() {
		return &ProfileB
	}
	return &ProfileA
}
