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

package boot

import (
	"fmt"
)

// ErrWatchdog returned when the watchdog does not acknowledge the disable sequence
type ErrWatchdog struct {
	Err error
}

func (e ErrWatchdog) Error() string {
	return fmt.Sprintf("Watchdog disarm failed: %s", e.Err)
}

func (e ErrWatchdog) Unwrap() error {
	return e.Err
}

// ErrClock returned when a DPLL does not relock
type ErrClock struct {
	Err error
}

func (e ErrClock) Error() string {
	return fmt.Sprintf("Clock programming failed: %s", e.Err)
}

func (e ErrClock) Unwrap() error {
	return e.Err
}

// ErrTraining returned when the memory controller fails to come up. Memory
// is unusable after this error.
type ErrTraining struct {
	Profile string
	Err     error
}

func (e ErrTraining) Error() string {
	return fmt.Sprintf("SDRAM training failed with %s profile: %s", e.Profile, e.Err)
}

func (e ErrTraining) Unwrap() error {
	return e.Err
}
