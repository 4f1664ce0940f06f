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

const (
	// DDRIOControl is the DDR I/O control value shared by both memory
	// technologies
	DDRIOControl = 0x18B
)

// CmdControl holds the command macro settings. The controller has three
// command macros, each with its own slave ratio, DLL lock difference and
// clock-out inversion.
type CmdControl struct {
	SlaveRatio  [3]uint32
	DLLLockDiff [3]uint32
	InvertClk   [3]uint32
}

// EMIFRegs holds the memory controller timing registers
type EMIFRegs struct {
	ReadLatency  uint32
	Timing1      uint32
	Timing2      uint32
	Timing3      uint32
	ZQConfig     uint32 // zero when the technology has no ZQ calibration
	SDRAMConfig  uint32
	SDRAMConfig2 uint32
	RefreshCtrl  uint32
}

// PHYData holds the data macro delay calibration ratios for rank 0
type PHYData struct {
	ReadSlaveRatio   uint32
	WriteDQSRatio    uint32
	WriteLevelRatio  uint32
	GateLevelRatio   uint32
	FIFOWESlaveRatio uint32
	WriteSlaveRatio  uint32
	UseRank0Delay    uint32
	DLLLockDiff      uint32
}

// TimingProfile is the complete register set for one memory technology
type TimingProfile struct {
	Name string
	Cmd  CmdControl
	EMIF EMIFRegs
	PHY  PHYData
}

// laneRatio replicates a 10-bit ratio into the four byte-lane fields of a
// PHY ratio register. The top lane only keeps its two low bits.
func laneRatio(v uint32) uint32 {
	return v<<30 | v<<20 | v<<10 | v
}

const (
	ddr2ReadDQS      = 0x12
	ddr2PHYFIFOWE    = 0x80
	ddr2WriteDQS     = 0x00
	ddr2PHYWriteLvl  = 0x00
	ddr2PHYGateLvl   = 0x00
	ddr2PHYWriteData = 0x40
)

// ProfileA is the DDR2 profile
var ProfileA = TimingProfile{
	Name: "ddr2",
	Cmd: CmdControl{
		SlaveRatio:  [3]uint32{0x80, 0x80, 0x80},
		DLLLockDiff: [3]uint32{0x0, 0x0, 0x0},
		InvertClk:   [3]uint32{0x0, 0x0, 0x0},
	},
	EMIF: EMIFRegs{
		ReadLatency:  0x100005,
		Timing1:      0x0666B3C9,
		Timing2:      0x243631CA,
		Timing3:      0x0000033F,
		SDRAMConfig:  0x41805332,
		SDRAMConfig2: 0x41805332,
		RefreshCtrl:  0x0000081A,
	},
	PHY: PHYData{
		ReadSlaveRatio:   laneRatio(ddr2ReadDQS),
		WriteDQSRatio:    laneRatio(ddr2WriteDQS),
		WriteLevelRatio:  laneRatio(ddr2PHYWriteLvl),
		GateLevelRatio:   laneRatio(ddr2PHYGateLvl),
		FIFOWESlaveRatio: laneRatio(ddr2PHYFIFOWE),
		WriteSlaveRatio:  laneRatio(ddr2PHYWriteData),
		UseRank0Delay:    0x01,
		DLLLockDiff:      0x0,
	},
}

// ProfileB is the DDR3 profile
var ProfileB = TimingProfile{
	Name: "ddr3",
	Cmd: CmdControl{
		SlaveRatio:  [3]uint32{0x80, 0x80, 0x80},
		DLLLockDiff: [3]uint32{0x1, 0x1, 0x1},
		InvertClk:   [3]uint32{0x0, 0x0, 0x0},
	},
	EMIF: EMIFRegs{
		ReadLatency:  0x100007,
		Timing1:      0x0AAAD4DB,
		Timing2:      0x266B7FDA,
		Timing3:      0x501F867F,
		ZQConfig:     0x50074BE4,
		SDRAMConfig:  0x61C05332,
		SDRAMConfig2: 0x0,
		RefreshCtrl:  0xC30,
	},
	PHY: PHYData{
		ReadSlaveRatio:   0x38,
		WriteDQSRatio:    0x44,
		FIFOWESlaveRatio: 0x94,
		WriteSlaveRatio:  0x7D,
		UseRank0Delay:    0x01,
		DLLLockDiff:      0x0,
	},
}
