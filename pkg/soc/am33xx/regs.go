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

// Package am33xx drives the clock, watchdog, memory controller and UART
// blocks of the AM33xx SoC through a hw.Bus.
package am33xx

// Register addresses are from the AM335x technical reference manual

const (
	// Watchdog timer 1
	WDT1Base = 0x44E35000
	WDTWWPS  = WDT1Base + 0x34 // write posting status
	WDTWSPR  = WDT1Base + 0x48 // start/stop

	WDTDisableCode1 = 0xAAAA
	WDTDisableCode2 = 0x5555
)

const (
	CMPerBase  = 0x44E00000
	CMWkupBase = 0x44E00400

	CMPerL3ClkStCtrl   = CMPerBase + 0x0C
	CMPerEMIFClkCtrl   = CMPerBase + 0x28
	CMPerEMIFFWClkCtrl = CMPerBase + 0xD0

	CMIdleStDPLLMPU    = CMWkupBase + 0x20
	CMClkSelDPLLMPU    = CMWkupBase + 0x2C
	CMIdleStDPLLDDR    = CMWkupBase + 0x34
	CMClkSelDPLLDDR    = CMWkupBase + 0x40
	CMIdleStDPLLCore   = CMWkupBase + 0x5C
	CMClkSelDPLLCore   = CMWkupBase + 0x68
	CMIdleStDPLLPer    = CMWkupBase + 0x70
	CMDivM4DPLLCore    = CMWkupBase + 0x80
	CMDivM5DPLLCore    = CMWkupBase + 0x84
	CMClkModeDPLLMPU   = CMWkupBase + 0x88
	CMClkModeDPLLPer   = CMWkupBase + 0x8C
	CMClkModeDPLLCore  = CMWkupBase + 0x90
	CMClkModeDPLLDDR   = CMWkupBase + 0x94
	CMClkSelDPLLPer    = CMWkupBase + 0x9C
	CMDivM2DPLLDDR     = CMWkupBase + 0xA0
	CMDivM2DPLLMPU     = CMWkupBase + 0xA8
	CMDivM2DPLLPer     = CMWkupBase + 0xAC
	CMWkupUART0ClkCtrl = CMWkupBase + 0xB4
	CMDivM6DPLLCore    = CMWkupBase + 0xD8

	// CM_CLKMODE_DPLL_x.DPLL_EN
	DPLLEnMask     = 0x7
	DPLLEnMNBypass = 0x4
	DPLLEnLock     = 0x7

	// CM_IDLEST_DPLL_x
	IdleStDPLLClk  = 1 << 0
	IdleStMNBypass = 1 << 8

	// CM_x_CLKCTRL
	ModuleModeEnable = 0x2
	ModuleIdleStMask = 0x3 << 16

	// CM_PER_L3_CLKSTCTRL
	ClkActivityEMIFGClk = 1 << 2
)

const (
	ControlBase = 0x44E10000

	ControlSecureEMIFSDRAMConfig = ControlBase + 0x110
	ConfUART0RxD                 = ControlBase + 0x970
	ConfUART0TxD                 = ControlBase + 0x974
	VTP0Ctrl                     = ControlBase + 0xE0C
	DDRIOCtrl                    = ControlBase + 0xE04
	DDRCKECtrl                   = ControlBase + 0x131C
	DDRCmd0IOCtrl                = ControlBase + 0x1404
	DDRCmd1IOCtrl                = ControlBase + 0x1408
	DDRCmd2IOCtrl                = ControlBase + 0x140C
	DDRData0IOCtrl               = ControlBase + 0x1440
	DDRData1IOCtrl               = ControlBase + 0x1444

	VTPCtrlStart  = 1 << 0
	VTPCtrlReady  = 1 << 5
	VTPCtrlEnable = 1 << 6

	DDRIOCtrlMDDRSel = 1 << 28

	PadPullUp   = 1 << 4
	PadRxActive = 1 << 5
)

const (
	DDRPHYBase = 0x44E12000

	// command macros, CMD1 and CMD2 repeat CMD0 at DDRPHYCmdStride
	DDRPHYCmd0SlaveRatio   = DDRPHYBase + 0x01C
	DDRPHYCmd0DLLLockDiff  = DDRPHYBase + 0x028
	DDRPHYCmd0InvertClkout = DDRPHYBase + 0x02C
	DDRPHYCmdStride        = 0x34

	// data macros, DATA1 repeats DATA0 at DDRPHYDataStride
	DDRPHYData0RdDQSSlaveRatio  = DDRPHYBase + 0x0C8
	DDRPHYData0WrDQSSlaveRatio  = DDRPHYBase + 0x0DC
	DDRPHYData0WrLvlInitRatio   = DDRPHYBase + 0x0F0
	DDRPHYData0GateLvlInitRatio = DDRPHYBase + 0x0FC
	DDRPHYData0FIFOWESlaveRatio = DDRPHYBase + 0x108
	DDRPHYData0WrDataSlaveRatio = DDRPHYBase + 0x120
	DDRPHYData0UseRank0Delays   = DDRPHYBase + 0x134
	DDRPHYData0DLLLockDiff      = DDRPHYBase + 0x138
	DDRPHYDataStride            = 0xA4
	DDRPHYDataMacros            = 2
)

const (
	EMIFBase = 0x4C000000

	EMIFStatus           = EMIFBase + 0x04
	EMIFSDRAMConfig      = EMIFBase + 0x08
	EMIFSDRAMConfig2     = EMIFBase + 0x0C
	EMIFSDRAMRefCtrl     = EMIFBase + 0x10
	EMIFSDRAMRefCtrlShdw = EMIFBase + 0x14
	EMIFSDRAMTim1        = EMIFBase + 0x18
	EMIFSDRAMTim1Shdw    = EMIFBase + 0x1C
	EMIFSDRAMTim2        = EMIFBase + 0x20
	EMIFSDRAMTim2Shdw    = EMIFBase + 0x24
	EMIFSDRAMTim3        = EMIFBase + 0x28
	EMIFSDRAMTim3Shdw    = EMIFBase + 0x2C
	EMIFZQConfig         = EMIFBase + 0xC8
	EMIFDDRPHYCtrl1      = EMIFBase + 0xE4
	EMIFDDRPHYCtrl1Shdw  = EMIFBase + 0xE8

	EMIFStatusPHYDLLReady = 1 << 2
)

const (
	UART0Base = 0x44E09000

	UARTTHR  = 0x00
	UARTDLL  = 0x00
	UARTDLH  = 0x04
	UARTIER  = 0x04
	UARTFCR  = 0x08
	UARTLCR  = 0x0C
	UARTMCR  = 0x10
	UARTLSR  = 0x14
	UARTMDR1 = 0x20
	UARTSYSC = 0x54
	UARTSYSS = 0x58

	UARTSYSCSoftReset = 1 << 1
	UARTSYSSResetDone = 1 << 0
	UARTLSRTHRE       = 1 << 5
	UARTLCRDivLatch   = 1 << 7
	UARTLCR8N1        = 0x03
	UARTFCRFIFOReset  = 0x07
	UARTMCRDTRRTS     = 0x03
	UARTMDR1Disable   = 0x07
	UARTMDR1Mode16x   = 0x00

	UARTClockHz = 48000000
)

const (
	// SRAM0Start is the start of the public on-chip SRAM the ROM code
	// hands over to the boot loader
	SRAM0Start = 0x402F0400
	SRAM0Size  = 0x20000
	// SRAMScratchSpace holds data saved across the boot stages
	SRAMScratchSpace = 0x4030B800
	// BootInfoWords is the number of words of ROM boot parameters saved
	BootInfoWords = 3
)

const (
	// DRAMBase is where the EMIF maps external memory
	DRAMBase = 0x80000000
)
