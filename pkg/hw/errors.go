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
	"fmt"
)

// ErrUnaligned returned when an address is not a multiple of the access width
type ErrUnaligned struct {
	Addr  uint32
	Width Width
}

func (e ErrUnaligned) Error() string {
	return fmt.Sprintf("Unaligned %s access at 0x%08x", e.Width, e.Addr)
}

// ErrWidth returned for an access size the bus does not support
type ErrWidth struct {
	Width Width
}

func (e ErrWidth) Error() string {
	return fmt.Sprintf("Unsupported access width: %d bytes", int(e.Width))
}

// ErrPollTimeout returned when a polled register does not reach the expected
// state within the poll budget
type ErrPollTimeout struct {
	Addr  uint32
	Mask  uint32
	Want  uint32
	Last  uint32
	Polls int
}

func (e ErrPollTimeout) Error() string {
	return fmt.Sprintf("Timeout polling 0x%08x: (value & 0x%08x) != 0x%08x after %d polls, last value 0x%08x",
		e.Addr, e.Mask, e.Want, e.Polls, e.Last)
}
