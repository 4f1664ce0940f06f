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

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"jinr.ru/greenlab/go-spl/pkg/fault"
)

const (
	// TrapLayerNum identifies the layer
	TrapLayerNum = 1998
	// TrapSize is the size of the trap payload: six record words, the
	// general purpose registers, the action and the tally
	TrapSize = (6 + fault.NumGPR + 2) * 4
)

// TrapLayer carries an exception record from the target to the dispatcher.
// The response carries the record back with the resume address, the
// action taken and the machine check tally.
type TrapLayer struct {
	layers.BaseLayer
	Record fault.Record
	Action fault.Action
	Count  uint32
}

var TrapLayerType = gopacket.RegisterLayerType(TrapLayerNum,
	gopacket.LayerTypeMetadata{Name: "TrapLayerType", Decoder: gopacket.DecodeFunc(DecodeTrapLayer)})

func (t *TrapLayer) LayerType() gopacket.LayerType {
	return TrapLayerType
}

func (t *TrapLayer) Len() int {
	return TrapSize
}

// Serialize serializes the trap to a buffer of at least TrapSize bytes
func (t *TrapLayer) Serialize(buf []byte) {
	r := &t.Record
	binary.LittleEndian.PutUint32(buf[0:4], uint32(r.Vector))
	binary.LittleEndian.PutUint32(buf[4:8], r.NIP)
	binary.LittleEndian.PutUint32(buf[8:12], r.XER)
	binary.LittleEndian.PutUint32(buf[12:16], r.LR)
	binary.LittleEndian.PutUint32(buf[16:20], r.MSR)
	binary.LittleEndian.PutUint32(buf[20:24], r.DAR)
	for i, gpr := range r.GPR {
		binary.LittleEndian.PutUint32(buf[24+i*4:28+i*4], gpr)
	}
	tail := buf[24+fault.NumGPR*4:]
	binary.LittleEndian.PutUint32(tail[0:4], uint32(t.Action))
	binary.LittleEndian.PutUint32(tail[4:8], t.Count)
}

// SerializeTo serializes the trap layer into bytes and writes the bytes to the SerializeBuffer
func (t *TrapLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.AppendBytes(TrapSize)
	if err != nil {
		return err
	}
	t.Serialize(bytes)
	return nil
}

func (t *TrapLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) != TrapSize {
		df.SetTruncated()
		return ErrFrame{What: "trap payload size mismatch"}
	}
	t.BaseLayer = layers.BaseLayer{
		Contents: data[:],
		Payload:  []byte{},
	}
	r := &t.Record
	r.Vector = fault.Vector(binary.LittleEndian.Uint32(data[0:4]))
	r.NIP = binary.LittleEndian.Uint32(data[4:8])
	r.XER = binary.LittleEndian.Uint32(data[8:12])
	r.LR = binary.LittleEndian.Uint32(data[12:16])
	r.MSR = binary.LittleEndian.Uint32(data[16:20])
	r.DAR = binary.LittleEndian.Uint32(data[20:24])
	for i := range r.GPR {
		r.GPR[i] = binary.LittleEndian.Uint32(data[24+i*4 : 28+i*4])
	}
	tail := data[24+fault.NumGPR*4:]
	t.Action = fault.Action(binary.LittleEndian.Uint32(tail[0:4]))
	t.Count = binary.LittleEndian.Uint32(tail[4:8])
	return nil
}

func (t *TrapLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func DecodeTrapLayer(data []byte, p gopacket.PacketBuilder) error {
	t := &TrapLayer{}
	err := t.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(t)
	return nil
}
