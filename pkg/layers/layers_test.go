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

package layers

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-spl/pkg/fault"
	"jinr.ru/greenlab/go-spl/pkg/hw"
)

func TestRegFrame(t *testing.T) {
	reg := &RegLayer{RegOps: []*RegOp{
		{Op: hw.OpWrite, Width: hw.Width32, Addr: 0x44E35048, Value: 0xAAAA},
		{Op: hw.OpReadControl, Width: hw.Width32, Addr: 0x23C},
	}}
	data, err := Frame(MLinkHeader{Type: MLinkTypeRegRequest, Seq: 7, Src: MLinkHostAddr, Dst: MLinkTargetAddr}, reg)
	require.NoError(t, err)
	require.Len(t, data, MLinkHeaderSize+2*RegOpSize+4)
	assert.Equal(t, uint16(MLinkSync), binary.LittleEndian.Uint16(data[2:4]))
	assert.Equal(t, uint16(len(data)/4), binary.LittleEndian.Uint16(data[6:8]))

	ml, payload, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, MLinkTypeRegRequest, ml.Type)
	assert.Equal(t, uint16(7), ml.Seq)
	got, ok := payload.(*RegLayer)
	require.True(t, ok)
	if diff := cmp.Diff(reg.RegOps, got.RegOps); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestTrapFrame(t *testing.T) {
	trap := &TrapLayer{
		Record: fault.Record{Vector: fault.VectorMachineCheck, NIP: 0x1000, LR: 0x2000, MSR: fault.MSRME, DAR: 0x3000, XER: 1},
		Action: fault.Halt,
		Count:  11,
	}
	for i := range trap.Record.GPR {
		trap.Record.GPR[i] = uint32(i) * 0x11
	}
	data, err := Frame(MLinkHeader{Type: MLinkTypeTrapResponse, Seq: 1}, trap)
	require.NoError(t, err)

	_, payload, err := Decode(data)
	require.NoError(t, err)
	got := payload.(*TrapLayer)
	if diff := cmp.Diff(trap, got, cmpopts.IgnoreFields(TrapLayer{}, "BaseLayer")); diff != "" {
		t.Errorf("trap mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRejects(t *testing.T) {
	reg := &RegLayer{RegOps: []*RegOp{{Op: hw.OpRead, Width: hw.Width32, Addr: 0x100}}}
	data, err := Frame(MLinkHeader{Type: MLinkTypeRegResponse}, reg)
	require.NoError(t, err)

	corrupt := append([]byte(nil), data...)
	corrupt[MLinkHeaderSize+4] ^= 0xff
	_, _, err = Decode(corrupt)
	assert.Error(t, err, "CRC mismatch")

	badSync := append([]byte(nil), data...)
	badSync[2] = 0
	_, _, err = Decode(badSync)
	assert.Error(t, err)

	_, _, err = Decode(data[:8])
	assert.Error(t, err)

	unknown := append([]byte(nil), data...)
	binary.LittleEndian.PutUint16(unknown[0:2], 0x7777)
	_, _, err = Decode(unknown)
	assert.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, RegStatusOK, StatusFor(nil))
	assert.Equal(t, RegStatusUnaligned, StatusFor(hw.ErrUnaligned{Addr: 1, Width: hw.Width32}))
	assert.Equal(t, RegStatusWidth, StatusFor(hw.ErrWidth{Width: 3}))
	assert.Equal(t, RegStatusBusError, StatusFor(hw.ErrPollTimeout{}))
}
