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
	"sort"

	"github.com/hashicorp/go-multierror"
)

// Fixup pairs an instruction expected to fault with the address execution
// continues at
type Fixup struct {
	Insn   uint32
	Resume uint32
}

// RecoveryTable is the sorted set of known faulting instructions
type RecoveryTable struct {
	entries []Fixup
}

// NewRecoveryTable sorts entries by instruction address. Duplicate
// instructions and zero addresses are rejected.
func NewRecoveryTable(entries []Fixup) (*RecoveryTable, error) {
	sorted := make([]Fixup, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Insn < sorted[j].Insn })

	var result *multierror.Error
	for i, e := range sorted {
		if e.Insn == 0 {
			result = multierror.Append(result, fmt.Errorf("entry %d: zero instruction address", i))
		}
		if e.Resume == 0 {
			result = multierror.Append(result, fmt.Errorf("entry 0x%08x: zero resume address", e.Insn))
		}
		if i > 0 && sorted[i-1].Insn == e.Insn {
			result = multierror.Append(result, fmt.Errorf("entry 0x%08x: duplicate instruction address", e.Insn))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &RecoveryTable{entries: sorted}, nil
}

// Lookup returns the resume address for an exact match on nip
func (t *RecoveryTable) Lookup(nip uint32) (uint32, bool) {
	if t == nil {
		return 0, false
	}
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].Insn >= nip })
	if i < len(t.entries) && t.entries[i].Insn == nip {
		return t.entries[i].Resume, true
	}
	return 0, false
}

func (t *RecoveryTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns a copy of the table in lookup order
func (t *RecoveryTable) Entries() []Fixup {
	if t == nil {
		return nil
	}
	out := make([]Fixup, len(t.entries))
	copy(out, t.entries)
	return out
}
