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

// Package console defines the serial transport used for the liveness
// character and for diagnostic output.
package console

import (
	"io"

	"jinr.ru/greenlab/go-spl/pkg/hw"
)

// PinMux is the list of pad configuration writes routing the transport pins
type PinMux []hw.Reg

// BaudProfile describes the line settings of the transport
type BaudProfile struct {
	Rate    uint32
	ClockHz uint32
}

// Divisor returns the 16x oversampling divisor for the profile
func (p BaudProfile) Divisor() uint32 {
	return p.ClockHz / (16 * p.Rate)
}

// Transport is the character output primitive
type Transport interface {
	Reset() error
	Configure(pins PinMux, baud BaudProfile) error
	Emit(c byte) error
}

// Writer adapts a Transport to io.Writer translating "\n" to "\r\n"
type Writer struct {
	Transport
}

var _ io.Writer = Writer{}

func (w Writer) Write(p []byte) (int, error) {
	for i, c := range p {
		if c == '\n' {
			if err := w.Emit('\r'); err != nil {
				return i, err
			}
		}
		if err := w.Emit(c); err != nil {
			return i, err
		}
	}
	return len(p), nil
}
