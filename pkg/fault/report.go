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
	"io"

	"jinr.ru/greenlab/go-spl/pkg/hw"
)

const (
	// MaxFrames bounds the call chain walk
	MaxFrames = 32
	// framesPerLine is the number of return addresses printed per line
	framesPerLine = 7
)

func bit(msr, mask uint32) int {
	if msr&mask != 0 {
		return 1
	}
	return 0
}

// ShowRegs writes the register dump of rec
func ShowRegs(w io.Writer, rec *Record) {
	fmt.Fprintf(w, "NIP: %08X XER: %08X LR: %08X TRAP: %04x DAR: %08X\n",
		rec.NIP, rec.XER, rec.LR, uint32(rec.Vector), rec.DAR)
	fmt.Fprintf(w, "MSR: %08x EE: %01x PR: %01x FP: %01x ME: %01x IR/DR: %01x%01x\n",
		rec.MSR, bit(rec.MSR, MSREE), bit(rec.MSR, MSRPR), bit(rec.MSR, MSRFP),
		bit(rec.MSR, MSRME), bit(rec.MSR, MSRIR), bit(rec.MSR, MSRDR))
	fmt.Fprintln(w)
	for i, gpr := range rec.GPR {
		if i%8 == 0 {
			fmt.Fprintf(w, "GPR%02d: ", i)
		}
		fmt.Fprintf(w, "%08X ", gpr)
		if i%8 == 7 {
			fmt.Fprintln(w)
		}
	}
}

// Frames walks the stack frame back chain starting at sp. Each frame holds
// the previous frame pointer at [sp] and the saved link register at [sp+4].
// The walk stops at a zero frame pointer, a frame beyond memEnd, a failed
// read or after MaxFrames frames.
func Frames(b hw.Bus, sp, memEnd uint32) []uint32 {
	var frames []uint32
	for sp != 0 && sp <= memEnd && len(frames) < MaxFrames {
		lr, err := hw.Read32(b, sp+4)
		if err != nil {
			break
		}
		frames = append(frames, lr)
		if sp, err = hw.Read32(b, sp); err != nil {
			break
		}
	}
	return frames
}

// Backtrace writes the call chain starting at the record stack pointer
func Backtrace(w io.Writer, b hw.Bus, sp, memEnd uint32) {
	fmt.Fprint(w, "Call backtrace: ")
	for i, lr := range Frames(b, sp, memEnd) {
		if i%framesPerLine == 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%08X ", lr)
	}
	fmt.Fprintln(w)
}
