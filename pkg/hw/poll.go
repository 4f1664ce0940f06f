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

package hw

import (
	"time"
)

const (
	// DefaultPollLimit bounds a busy-poll loop when no limit is configured
	DefaultPollLimit = 1 << 20
)

// Poller busy-polls status registers. There is no scheduler at this stage,
// so a poll never sleeps or yields: it spins until the register reaches the
// wanted state or the budget runs out.
type Poller struct {
	// Limit is the maximum number of reads, DefaultPollLimit if zero
	Limit int
	// Timeout additionally bounds the loop by elapsed time when non-zero
	Timeout time.Duration
	// Now is the clock used with Timeout, time.Now if nil
	Now func() time.Time
}

// Until reads addr until (value & mask) == want
func (p Poller) Until(b Bus, addr uint32, width Width, mask, want uint32) error {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultPollLimit
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	var deadline time.Time
	if p.Timeout > 0 {
		deadline = now().Add(p.Timeout)
	}

	var value uint32
	var err error
	for i := 1; i <= limit; i++ {
		value, err = b.Read(addr, width)
		if err != nil {
			return err
		}
		if value&mask == want {
			return nil
		}
		if !deadline.IsZero() && now().After(deadline) {
			return ErrPollTimeout{Addr: addr, Mask: mask, Want: want, Last: value, Polls: i}
		}
	}
	return ErrPollTimeout{Addr: addr, Mask: mask, Want: want, Last: value, Polls: limit}
}

// UntilClear reads addr until all bits in mask are zero
func (p Poller) UntilClear(b Bus, addr uint32, mask uint32) error {
	return p.Until(b, addr, Width32, mask, 0)
}

// UntilSet reads addr until all bits in mask are set
func (p Poller) UntilSet(b Bus, addr uint32, mask uint32) error {
	return p.Until(b, addr, Width32, mask, mask)
}
