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

package control

import (
	"fmt"
	"strconv"
	"time"

	"jinr.ru/greenlab/go-spl/pkg/fault"
	"jinr.ru/greenlab/go-spl/pkg/hw"
)

// RegHex ...
type RegHex struct {
	Addr  string `json:"addr"`  // hexadecimal
	Value string `json:"value"` // hexadecimal
}

func NewRegHex(reg hw.Reg) *RegHex {
	addr, value := reg.Hex()
	return &RegHex{Addr: addr, Value: value}
}

// Hex32 formats a word the way the API reports addresses and values
func Hex32(v uint32) string {
	return fmt.Sprintf("0x%08x", v)
}

// ParseHex32 parses an API address or value. An empty string is zero.
func ParseHex32(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// BootRequest ...
type BootRequest struct {
	// BootInfo is the ROM boot parameter pointer, hexadecimal
	BootInfo string `json:"bootInfo,omitempty"`
	// Fail selects a simulated failure: training, watchdog or console
	Fail string `json:"fail,omitempty"`
	// Running boots a simulated board that already runs from SDRAM
	Running bool `json:"running,omitempty"`
}

// BootResult ...
type BootResult struct {
	Board     string `json:"board"`
	Profile   string `json:"profile"`
	Base      string `json:"base,omitempty"`
	Size      uint32 `json:"size,omitempty"`
	Console   string `json:"console,omitempty"`
	Halted    string `json:"halted,omitempty"`
	Registers int    `json:"registers"`
	Error     string `json:"error,omitempty"`
}

// FaultRequest describes an exception to raise on a board. Register values
// are hexadecimal.
type FaultRequest struct {
	Vector string `json:"vector"`
	NIP    string `json:"nip"`
	LR     string `json:"lr,omitempty"`
	MSR    string `json:"msr,omitempty"`
	DAR    string `json:"dar,omitempty"`
	SP     string `json:"sp,omitempty"`
	// ESR and the machine check registers are loaded into a simulated
	// board before the dispatch
	ESR  string `json:"esr,omitempty"`
	MCSR string `json:"mcsr,omitempty"`
	MCAR string `json:"mcar,omitempty"`
}

// Record builds the exception record for the request
func (r *FaultRequest) Record() (*fault.Record, error) {
	vector, err := fault.ParseVector(r.Vector)
	if err != nil {
		return nil, err
	}
	rec := &fault.Record{Vector: vector}
	for _, f := range []struct {
		s string
		v *uint32
	}{
		{r.NIP, &rec.NIP},
		{r.LR, &rec.LR},
		{r.MSR, &rec.MSR},
		{r.DAR, &rec.DAR},
		{r.SP, &rec.GPR[1]},
	} {
		if *f.v, err = ParseHex32(f.s); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Syndrome parses the ESR and machine check registers of the request
func (r *FaultRequest) Syndrome() (esr, mcsr, mcar uint32, err error) {
	if esr, err = ParseHex32(r.ESR); err != nil {
		return 0, 0, 0, fmt.Errorf("esr: %w", err)
	}
	if mcsr, err = ParseHex32(r.MCSR); err != nil {
		return 0, 0, 0, fmt.Errorf("mcsr: %w", err)
	}
	if mcar, err = ParseHex32(r.MCAR); err != nil {
		return 0, 0, 0, fmt.Errorf("mcar: %w", err)
	}
	return esr, mcsr, mcar, nil
}

// Report is the outcome of one dispatched exception
type Report struct {
	Board        string              `json:"board"`
	Vector       string              `json:"vector"`
	Action       string              `json:"action"`
	NIP          string              `json:"nip"`
	Resume       string              `json:"resume"`
	Halted       string              `json:"halted,omitempty"`
	Tally        fault.Tally         `json:"tally"`
	MachineCheck *fault.MachineCheck `json:"machineCheck,omitempty"`
	Text         string              `json:"text"`
	Time         time.Time           `json:"time"`
}

// BoardStatus ...
type BoardStatus struct {
	Name       string `json:"name"`
	ID         uint16 `json:"id"`
	HighMemory bool   `json:"highMemory"`
	Profile    string `json:"profile"`
	Agent      string `json:"agent,omitempty"`
	Booted     bool   `json:"booted"`
	Halted     string `json:"halted,omitempty"`
}
