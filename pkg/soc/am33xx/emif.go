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
	"jinr.ru/greenlab/go-spl/pkg/board"
	"jinr.ru/greenlab/go-spl/pkg/hw"
	"jinr.ru/greenlab/go-spl/pkg/log"
)

// EnableEMIFClocks turns on the EMIF and EMIF firewall modules and waits
// until the EMIF functional clock is active
func EnableEMIFClocks(b hw.Bus, p hw.Poller) error {
	if err := hw.Write32(b, CMPerEMIFFWClkCtrl, ModuleModeEnable); err != nil {
		return err
	}
	if err := hw.Write32(b, CMPerEMIFClkCtrl, ModuleModeEnable); err != nil {
		return err
	}
	if err := p.Until(b, CMPerEMIFClkCtrl, hw.Width32, ModuleIdleStMask, 0); err != nil {
		return err
	}
	return p.UntilSet(b, CMPerL3ClkStCtrl, ClkActivityEMIFGClk)
}

// CalibrateVTP runs the DDR pad impedance calibration
func CalibrateVTP(b hw.Bus, p hw.Poller) error {
	if err := hw.Write32(b, VTP0Ctrl, 0); err != nil {
		return err
	}
	if err := hw.Update32(b, VTP0Ctrl, 0, VTPCtrlEnable); err != nil {
		return err
	}
	if err := hw.Update32(b, VTP0Ctrl, VTPCtrlStart, 0); err != nil {
		return err
	}
	if err := hw.Update32(b, VTP0Ctrl, 0, VTPCtrlStart); err != nil {
		return err
	}
	return p.UntilSet(b, VTP0Ctrl, VTPCtrlReady)
}

func cmdControlRegs(cmd *board.CmdControl) []hw.Reg {
	var regs []hw.Reg
	for i := 0; i < len(cmd.SlaveRatio); i++ {
		offset := uint32(i) * DDRPHYCmdStride
		regs = append(regs,
			hw.Reg{Addr: DDRPHYCmd0SlaveRatio + offset, Value: cmd.SlaveRatio[i]},
			hw.Reg{Addr: DDRPHYCmd0DLLLockDiff + offset, Value: cmd.DLLLockDiff[i]},
			hw.Reg{Addr: DDRPHYCmd0InvertClkout + offset, Value: cmd.InvertClk[i]},
		)
	}
	return regs
}

func phyDataRegs(phy *board.PHYData) []hw.Reg {
	var regs []hw.Reg
	for i := 0; i < DDRPHYDataMacros; i++ {
		offset := uint32(i) * DDRPHYDataStride
		regs = append(regs,
			hw.Reg{Addr: DDRPHYData0RdDQSSlaveRatio + offset, Value: phy.ReadSlaveRatio},
			hw.Reg{Addr: DDRPHYData0WrDQSSlaveRatio + offset, Value: phy.WriteDQSRatio},
			hw.Reg{Addr: DDRPHYData0WrLvlInitRatio + offset, Value: phy.WriteLevelRatio},
			hw.Reg{Addr: DDRPHYData0GateLvlInitRatio + offset, Value: phy.GateLevelRatio},
			hw.Reg{Addr: DDRPHYData0FIFOWESlaveRatio + offset, Value: phy.FIFOWESlaveRatio},
			hw.Reg{Addr: DDRPHYData0WrDataSlaveRatio + offset, Value: phy.WriteSlaveRatio},
			hw.Reg{Addr: DDRPHYData0UseRank0Delays + offset, Value: phy.UseRank0Delay},
			hw.Reg{Addr: DDRPHYData0DLLLockDiff + offset, Value: phy.DLLLockDiff},
		)
	}
	return regs
}

func ioControlRegs(ioctrl uint32) []hw.Reg {
	return []hw.Reg{
		{Addr: DDRCmd0IOCtrl, Value: ioctrl},
		{Addr: DDRCmd1IOCtrl, Value: ioctrl},
		{Addr: DDRCmd2IOCtrl, Value: ioctrl},
		{Addr: DDRData0IOCtrl, Value: ioctrl},
		{Addr: DDRData1IOCtrl, Value: ioctrl},
	}
}

// emifRegs returns the timing registers in programming order. Writing
// SDRAM_CONFIG starts the controller initialization, so it comes last.
func emifRegs(emif *board.EMIFRegs) []hw.Reg {
	regs := []hw.Reg{
		{Addr: EMIFDDRPHYCtrl1, Value: emif.ReadLatency},
		{Addr: EMIFDDRPHYCtrl1Shdw, Value: emif.ReadLatency},
		{Addr: EMIFSDRAMTim1, Value: emif.Timing1},
		{Addr: EMIFSDRAMTim1Shdw, Value: emif.Timing1},
		{Addr: EMIFSDRAMTim2, Value: emif.Timing2},
		{Addr: EMIFSDRAMTim2Shdw, Value: emif.Timing2},
		{Addr: EMIFSDRAMTim3, Value: emif.Timing3},
		{Addr: EMIFSDRAMTim3Shdw, Value: emif.Timing3},
	}
	if emif.ZQConfig != 0 {
		regs = append(regs, hw.Reg{Addr: EMIFZQConfig, Value: emif.ZQConfig})
	}
	return append(regs,
		hw.Reg{Addr: EMIFSDRAMRefCtrl, Value: emif.RefreshCtrl},
		hw.Reg{Addr: EMIFSDRAMRefCtrlShdw, Value: emif.RefreshCtrl},
		hw.Reg{Addr: EMIFSDRAMConfig2, Value: emif.SDRAMConfig2},
		hw.Reg{Addr: ControlSecureEMIFSDRAMConfig, Value: emif.SDRAMConfig},
		hw.Reg{Addr: EMIFSDRAMConfig, Value: emif.SDRAMConfig},
	)
}

// ProfileRegs returns every register write that applies a timing profile,
// in programming order
func ProfileRegs(ioctrl uint32, profile *board.TimingProfile) []hw.Reg {
	var regs []hw.Reg
	regs = append(regs, cmdControlRegs(&profile.Cmd)...)
	regs = append(regs, phyDataRegs(&profile.PHY)...)
	regs = append(regs, ioControlRegs(ioctrl)...)
	return append(regs, emifRegs(&profile.EMIF)...)
}

// InitSDRAM programs the DDR PHY and the EMIF with one timing profile and
// waits for the PHY DLL to report ready
func InitSDRAM(b hw.Bus, p hw.Poller, ioctrl uint32, profile *board.TimingProfile) error {
	log.Debug("Initializing SDRAM with %s profile", profile.Name)
	if err := EnableEMIFClocks(b, p); err != nil {
		return err
	}
	if err := CalibrateVTP(b, p); err != nil {
		return err
	}
	if err := hw.WriteAll(b, cmdControlRegs(&profile.Cmd)); err != nil {
		return err
	}
	if err := hw.WriteAll(b, phyDataRegs(&profile.PHY)); err != nil {
		return err
	}
	if err := hw.WriteAll(b, ioControlRegs(ioctrl)); err != nil {
		return err
	}
	if err := hw.Update32(b, DDRIOCtrl, DDRIOCtrlMDDRSel, 0); err != nil {
		return err
	}
	if err := hw.Write32(b, DDRCKECtrl, 1); err != nil {
		return err
	}
	if err := hw.WriteAll(b, emifRegs(&profile.EMIF)); err != nil {
		return err
	}
	return p.UntilSet(b, EMIFStatus, EMIFStatusPHYDLLReady)
}
