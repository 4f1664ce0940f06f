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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelection(t *testing.T) {
	tests := []struct {
		id      Identity
		profile *TimingProfile
		ddrM    uint32
	}{
		{NewVariant("evm", false), &ProfileA, DDRPLLM266},
		{NewVariant("bone", true), &ProfileB, DDRPLLM400},
	}
	for _, tt := range tests {
		t.Run(tt.id.Name(), func(t *testing.T) {
			assert.Same(t, tt.profile, ProfileFor(tt.id))
			plan := ClockFor(tt.id)
			assert.Equal(t, uint32(OscMHz), plan.OscMHz)
			assert.Equal(t, uint32(MPUPLLM500), plan.MPUMultiplier)
			assert.Equal(t, tt.ddrM, plan.DDRMultiplier)
		})
	}
}

func TestProfiles(t *testing.T) {
	assert.Equal(t, "ddr2", ProfileA.Name)
	assert.Equal(t, "ddr3", ProfileB.Name)
	assert.Zero(t, ProfileA.EMIF.ZQConfig, "DDR2 has no ZQ calibration")
	assert.NotZero(t, ProfileB.EMIF.ZQConfig)
	assert.NotEqual(t, ProfileA.EMIF, ProfileB.EMIF)
	assert.Equal(t, uint32(0x81204812), laneRatio(0x12))
	assert.Equal(t, laneRatio(0x12), ProfileA.PHY.ReadSlaveRatio)
	assert.Equal(t, "bone (ddr3)", NewVariant("bone", true).String())
}
