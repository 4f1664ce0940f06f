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
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"jinr.ru/greenlab/go-spl/pkg/hw"
)

const (
	// RegLayerNum identifies the layer
	RegLayerNum = 1997
	// RegOpSize is the size of one register operation on the wire
	RegOpSize = 12
	// RegMaxOps is the number of operations that fit in one frame
	RegMaxOps = MLinkMaxPayloadSize / RegOpSize
)

// RegStatus is the per operation result reported by the target
type RegStatus uint8

const (
	RegStatusOK RegStatus = iota
	RegStatusUnaligned
	RegStatusWidth
	RegStatusBusError
	RegStatusBadOp
)

func (s RegStatus) String() string {
	switch s {
	case RegStatusOK:
		return "ok"
	case RegStatusUnaligned:
		return "unaligned"
	case RegStatusWidth:
		return "bad width"
	case RegStatusBusError:
		return "bus error"
	case RegStatusBadOp:
		return "bad operation"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// StatusFor maps a bus error to the status reported on the wire
func StatusFor(err error) RegStatus {
	switch err.(type) {
	case nil:
		return RegStatusOK
	case hw.ErrUnaligned:
		return RegStatusUnaligned
	case hw.ErrWidth:
		return RegStatusWidth
	}
	return RegStatusBusError
}

// RegOp is one register access. For control register operations Addr is
// the control register number. Value is ignored in read requests.
type RegOp struct {
	Op     hw.Op
	Width  hw.Width
	Status RegStatus
	Addr   uint32
	Value  uint32
}

func (op *RegOp) String() string {
	return fmt.Sprintf("%s %s 0x%08x = 0x%08x (%s)", op.Op, op.Width, op.Addr, op.Value, op.Status)
}

type RegLayer struct {
	layers.BaseLayer
	RegOps []*RegOp
}

var RegLayerType = gopacket.RegisterLayerType(RegLayerNum,
	gopacket.LayerTypeMetadata{Name: "RegLayerType", Decoder: gopacket.DecodeFunc(DecodeRegLayer)})

// LayerType returns the type of the Reg layer in the layer catalog
func (reg *RegLayer) LayerType() gopacket.LayerType {
	return RegLayerType
}

// Len returns the serialized size in bytes
func (reg *RegLayer) Len() int {
	return len(reg.RegOps) * RegOpSize
}

// Serialize serializes the operations to a buffer of at least Len bytes
func (reg *RegLayer) Serialize(buf []byte) {
	for i, op := range reg.RegOps {
		b := buf[i*RegOpSize:]
		b[0] = uint8(op.Op)
		b[1] = uint8(op.Width)
		b[2] = uint8(op.Status)
		b[3] = 0
		binary.LittleEndian.PutUint32(b[4:8], op.Addr)
		binary.LittleEndian.PutUint32(b[8:12], op.Value)
	}
}

// SerializeTo serializes the register request layer into bytes and writes the bytes to the SerializeBuffer
func (reg *RegLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.AppendBytes(reg.Len())
	if err != nil {
		return err
	}
	reg.Serialize(bytes)
	return nil
}

func (reg *RegLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data)%RegOpSize != 0 {
		df.SetTruncated()
		return ErrFrame{What: fmt.Sprintf("register payload of %d bytes is not a multiple of %d", len(data), RegOpSize)}
	}
	reg.BaseLayer = layers.BaseLayer{
		Contents: data[:],
		Payload:  []byte{},
	}
	reg.RegOps = make([]*RegOp, 0, len(data)/RegOpSize)
	for i := 0; i < len(data); i += RegOpSize {
		reg.RegOps = append(reg.RegOps, &RegOp{
			Op:     hw.Op(data[i]),
			Width:  hw.Width(data[i+1]),
			Status: RegStatus(data[i+2]),
			Addr:   binary.LittleEndian.Uint32(data[i+4 : i+8]),
			Value:  binary.LittleEndian.Uint32(data[i+8 : i+12]),
		})
	}
	return nil
}

func (reg *RegLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func DecodeRegLayer(data []byte, p gopacket.PacketBuilder) error {
	reg := &RegLayer{}
	err := reg.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(reg)
	return nil
}
