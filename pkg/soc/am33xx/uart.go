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
	"jinr.ru/greenlab/go-spl/pkg/console"
	"jinr.ru/greenlab/go-spl/pkg/hw"
)

// UART0PinMux routes UART0 RX/TX to their pads in mode 0
var UART0PinMux = console.PinMux{
	{Addr: ConfUART0RxD, Value: PadPullUp | PadRxActive},
	{Addr: ConfUART0TxD, Value: PadPullUp},
}

// Baud115200 is the console line setting
var Baud115200 = console.BaudProfile{Rate: 115200, ClockHz: UARTClockHz}

// UART is a polled 16550-compatible UART
type UART struct {
	bus    hw.Bus
	poller hw.Poller
	base   uint32
}

var _ console.Transport = &UART{}

// NewUART ...
func NewUART(b hw.Bus, p hw.Poller, base uint32) *UART {
	return &UART{bus: b, poller: p, base: base}
}

func (u *UART) reg(offset uint32) uint32 {
	return u.base + offset
}

// Reset soft-resets the module and waits for reset completion
func (u *UART) Reset() error {
	if err := hw.Write32(u.bus, CMWkupUART0ClkCtrl, ModuleModeEnable); err != nil {
		return err
	}
	if err := hw.Update32(u.bus, u.reg(UARTSYSC), 0, UARTSYSCSoftReset); err != nil {
		return err
	}
	return u.poller.UntilSet(u.bus, u.reg(UARTSYSS), UARTSYSSResetDone)
}

// Configure applies the pin routing and programs the line for 8N1 at the
// given rate
func (u *UART) Configure(pins console.PinMux, baud console.BaudProfile) error {
	if err := hw.WriteAll(u.bus, pins); err != nil {
		return err
	}
	div := baud.Divisor()
	regs := []struct {
		offset uint32
		value  uint32
	}{
		{UARTMDR1, UARTMDR1Disable},
		{UARTIER, 0},
		{UARTLCR, UARTLCRDivLatch},
		{UARTDLL, div & 0xff},
		{UARTDLH, (div >> 8) & 0xff},
		{UARTLCR, UARTLCR8N1},
		{UARTMCR, UARTMCRDTRRTS},
		{UARTFCR, UARTFCRFIFOReset},
		{UARTMDR1, UARTMDR1Mode16x},
	}
	for _, r := range regs {
		if err := u.bus.Write(u.reg(r.offset), hw.Width8, r.value); err != nil {
			return err
		}
	}
	return nil
}

// Emit waits for room in the transmit holding register and sends c
func (u *UART) Emit(c byte) error {
	if err := u.poller.Until(u.bus, u.reg(UARTLSR), hw.Width8, UARTLSRTHRE, UARTLSRTHRE); err != nil {
		return err
	}
	return u.bus.Write(u.reg(UARTTHR), hw.Width8, uint32(c))
}
