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

// NumGPR is the number of general purpose registers in a record
const NumGPR = 32

// Record is the register save area the trap entry code fills in before a
// handler runs. Handlers may only change NIP.
type Record struct {
	GPR    [NumGPR]uint32 `json:"gpr"`
	NIP    uint32         `json:"nip"`
	XER    uint32         `json:"xer"`
	LR     uint32         `json:"lr"`
	MSR    uint32         `json:"msr"`
	Vector Vector         `json:"vector"`
	DAR    uint32         `json:"dar"`
}

// SP returns the stack pointer (r1)
func (r *Record) SP() uint32 {
	return r.GPR[1]
}

// MachineCheck holds the machine check registers captured by the handler
type MachineCheck struct {
	MCSR   uint32 `json:"mcsr"`
	MCSRR0 uint32 `json:"mcsrr0"`
	MCSRR1 uint32 `json:"mcsrr1"`
	MCAR   uint32 `json:"mcar"`
}

// Tally counts machine checks for the lifetime of the dispatcher. It only
// grows.
type Tally struct {
	Count    int  `json:"count"`
	Occurred bool `json:"occurred"`
}

func (t *Tally) record() int {
	t.Count++
	t.Occurred = true
	return t.Count
}
