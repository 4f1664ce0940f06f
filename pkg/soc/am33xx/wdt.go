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
	"jinr.ru/greenlab/go-spl/pkg/hw"
)

// DisarmWatchdog stops WDT1, which the ROM code leaves running. The timer
// only accepts the second code after the write of the first one has been
// posted, so each write is followed by a poll of the posting status.
func DisarmWatchdog(b hw.Bus, p hw.Poller) error {
	if err := hw.Write32(b, WDTWSPR, WDTDisableCode1); err != nil {
		return err
	}
	if err := p.Until(b, WDTWWPS, hw.Width32, 0xffffffff, 0); err != nil {
		return err
	}
	if err := hw.Write32(b, WDTWSPR, WDTDisableCode2); err != nil {
		return err
	}
	return p.Until(b, WDTWWPS, hw.Width32, 0xffffffff, 0)
}
