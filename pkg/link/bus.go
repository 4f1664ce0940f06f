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

package link

import (
	"jinr.ru/greenlab/go-spl/pkg/fault"
	"jinr.ru/greenlab/go-spl/pkg/hw"
	"jinr.ru/greenlab/go-spl/pkg/layers"
)

// RemoteBus is a hw.Bus whose accesses are performed by a debug agent
type RemoteBus struct {
	*Client
}

var _ hw.Bus = &RemoteBus{}

// NewRemoteBus ...
func NewRemoteBus(c *Client) *RemoteBus {
	return &RemoteBus{Client: c}
}

// Do performs ops in one frame, in order. The returned ops carry the read
// values and the per operation status.
func (b *RemoteBus) Do(ops []*layers.RegOp) ([]*layers.RegOp, error) {
	if len(ops) > layers.RegMaxOps {
		return nil, ErrUnexpected{What: "too many operations for one frame"}
	}
	payload, err := b.Request(layers.MLinkTypeRegRequest, &layers.RegLayer{RegOps: ops})
	if err != nil {
		return nil, err
	}
	reg, ok := payload.(*layers.RegLayer)
	if !ok || len(reg.RegOps) != len(ops) {
		return nil, ErrUnexpected{What: "operation count mismatch"}
	}
	return reg.RegOps, nil
}

func (b *RemoteBus) one(op *layers.RegOp) (uint32, error) {
	result, err := b.Do([]*layers.RegOp{op})
	if err != nil {
		return 0, err
	}
	r := result[0]
	switch r.Status {
	case layers.RegStatusOK:
		return r.Value, nil
	case layers.RegStatusUnaligned:
		return 0, hw.ErrUnaligned{Addr: r.Addr, Width: r.Width}
	case layers.RegStatusWidth:
		return 0, hw.ErrWidth{Width: r.Width}
	}
	return 0, ErrRemote{Op: r}
}

func (b *RemoteBus) Read(addr uint32, width hw.Width) (uint32, error) {
	return b.one(&layers.RegOp{Op: hw.OpRead, Width: width, Addr: addr})
}

func (b *RemoteBus) Write(addr uint32, width hw.Width, value uint32) error {
	_, err := b.one(&layers.RegOp{Op: hw.OpWrite, Width: width, Addr: addr, Value: value})
	return err
}

func (b *RemoteBus) ReadControl(reg hw.Control) (uint32, error) {
	return b.one(&layers.RegOp{Op: hw.OpReadControl, Width: hw.Width32, Addr: uint32(reg)})
}

func (b *RemoteBus) WriteControl(reg hw.Control, value uint32) error {
	_, err := b.one(&layers.RegOp{Op: hw.OpWriteControl, Width: hw.Width32, Addr: uint32(reg), Value: value})
	return err
}

// Trap hands rec to the fault dispatcher behind the link and returns its
// decision. On Resume rec.NIP holds the address to continue at.
func (c *Client) Trap(rec *fault.Record) (fault.Action, fault.Tally, error) {
	payload, err := c.Request(layers.MLinkTypeTrapRequest, &layers.TrapLayer{Record: *rec})
	if err != nil {
		return fault.Halt, fault.Tally{}, err
	}
	trap, ok := payload.(*layers.TrapLayer)
	if !ok {
		return fault.Halt, fault.Tally{}, ErrUnexpected{What: "no trap in response"}
	}
	rec.NIP = trap.Record.NIP
	tally := fault.Tally{Count: int(trap.Count), Occurred: trap.Count > 0}
	return trap.Action, tally, nil
}
