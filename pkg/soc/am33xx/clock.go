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

const (
	corePLLM = 1000
	coreM4   = 10
	coreM5   = 8
	coreM6   = 4
	perPLLM  = 960
	perM2    = 5
)

// DPLL describes the registers of one digital PLL
type DPLL struct {
	Name    string
	ClkMode uint32
	IdleSt  uint32
	ClkSel  uint32
	// Dividers lists post-divider register/value pairs
	Dividers []hw.Reg
}

// Configure relocks the DPLL with multiplier m and pre-divider n. The DPLL
// is put in MN bypass before the multiplier changes and only used again
// once it reports lock.
func (d DPLL) Configure(b hw.Bus, p hw.Poller, m, n uint32) error {
	log.Debug("Configuring %s DPLL: M=%d N=%d", d.Name, m, n)
	if err := hw.Update32(b, d.ClkMode, DPLLEnMask, DPLLEnMNBypass); err != nil {
		return err
	}
	if err := p.UntilSet(b, d.IdleSt, IdleStMNBypass); err != nil {
		return err
	}
	if err := hw.Update32(b, d.ClkSel, 0x7ffff, (m<<8)|n); err != nil {
		return err
	}
	if err := hw.WriteAll(b, d.Dividers); err != nil {
		return err
	}
	if err := hw.Update32(b, d.ClkMode, DPLLEnMask, DPLLEnLock); err != nil {
		return err
	}
	return p.UntilSet(b, d.IdleSt, IdleStDPLLClk)
}

// MPUDPLL ...
func MPUDPLL() DPLL {
	return DPLL{
		Name:     "MPU",
		ClkMode:  CMClkModeDPLLMPU,
		IdleSt:   CMIdleStDPLLMPU,
		ClkSel:   CMClkSelDPLLMPU,
		Dividers: []hw.Reg{{Addr: CMDivM2DPLLMPU, Value: 1}},
	}
}

// CoreDPLL ...
func CoreDPLL() DPLL {
	return DPLL{
		Name:    "Core",
		ClkMode: CMClkModeDPLLCore,
		IdleSt:  CMIdleStDPLLCore,
		ClkSel:  CMClkSelDPLLCore,
		Dividers: []hw.Reg{
			{Addr: CMDivM4DPLLCore, Value: coreM4},
			{Addr: CMDivM5DPLLCore, Value: coreM5},
			{Addr: CMDivM6DPLLCore, Value: coreM6},
		},
	}
}

// PerDPLL ...
func PerDPLL() DPLL {
	return DPLL{
		Name:     "Per",
		ClkMode:  CMClkModeDPLLPer,
		IdleSt:   CMIdleStDPLLPer,
		ClkSel:   CMClkSelDPLLPer,
		Dividers: []hw.Reg{{Addr: CMDivM2DPLLPer, Value: perM2}},
	}
}

// DDRDPLL ...
func DDRDPLL() DPLL {
	return DPLL{
		Name:     "DDR",
		ClkMode:  CMClkModeDPLLDDR,
		IdleSt:   CMIdleStDPLLDDR,
		ClkSel:   CMClkSelDPLLDDR,
		Dividers: []hw.Reg{{Addr: CMDivM2DPLLDDR, Value: 1}},
	}
}

// InitClocks programs the MPU, core, peripheral and DDR DPLLs from plan
func InitClocks(b hw.Bus, p hw.Poller, plan board.ClockPlan) error {
	n := plan.OscMHz - 1
	if err := MPUDPLL().Configure(b, p, plan.MPUMultiplier, n); err != nil {
		return err
	}
	if err := CoreDPLL().Configure(b, p, corePLLM, n); err != nil {
		return err
	}
	if err := PerDPLL().Configure(b, p, perPLLM, n); err != nil {
		return err
	}
	return DDRDPLL().Configure(b, p, plan.DDRMultiplier, n)
}
