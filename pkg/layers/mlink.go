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

// Package layers implements the debug link wire format as gopacket layers.
// Every frame starts with an MLink header and ends with a CRC32 word.
package layers

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"jinr.ru/greenlab/go-spl/pkg/log"
)

const (
	MLinkHostAddr   = 1
	MLinkTargetAddr = 0xfefe
)

func init() {
	initUnknownMLinkTypes()
	initActualMLinkTypes()
}

const (
	// MLinkLayerNum identifies the layer
	MLinkLayerNum = 1999
	// MLinkSync is a magic number that appears in the beginning of each MLink frame
	MLinkSync = 0x2A50
	// MLinkHeaderSize is the size of the MLink header in bytes
	MLinkHeaderSize = 12
	// MLinkMaxFrameSize is the max size of MLink frame including MLink header and CRC
	MLinkMaxFrameSize = 1400
	// MLinkMaxPayloadSize is the max size of MLink frame payload
	MLinkMaxPayloadSize = MLinkMaxFrameSize - MLinkHeaderSize - 4
)

type MLinkType uint16

const (
	MLinkTypeRegRequest   MLinkType = 0x0101
	MLinkTypeRegResponse  MLinkType = 0x0102
	MLinkTypeTrapRequest  MLinkType = 0x0201
	MLinkTypeTrapResponse MLinkType = 0x0202
)

type errorDecoderForMLinkType int

func (e *errorDecoderForMLinkType) Decode(data []byte, p gopacket.PacketBuilder) error {
	return e
}

func (e *errorDecoderForMLinkType) Error() string {
	return fmt.Sprintf("Unable to decode MLink type %d", int(*e))
}

var errorDecodersForMLinkType [65536]errorDecoderForMLinkType
var MLinkMetadata [65536]layers.EnumMetadata

func initUnknownMLinkTypes() {
	for i := 0; i < 65536; i++ {
		errorDecodersForMLinkType[i] = errorDecoderForMLinkType(i)
		MLinkMetadata[i] = layers.EnumMetadata{
			DecodeWith: &errorDecodersForMLinkType[i],
			Name:       "UnknownMLinkType",
		}
	}
}

func initActualMLinkTypes() {
	MLinkMetadata[MLinkTypeRegRequest] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeRegLayer), Name: "RegRequest", LayerType: RegLayerType}
	MLinkMetadata[MLinkTypeRegResponse] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeRegLayer), Name: "RegResponse", LayerType: RegLayerType}
	MLinkMetadata[MLinkTypeTrapRequest] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeTrapLayer), Name: "TrapRequest", LayerType: TrapLayerType}
	MLinkMetadata[MLinkTypeTrapResponse] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeTrapLayer), Name: "TrapResponse", LayerType: TrapLayerType}
}

// LayerType returns MLinkMetadata.LayerType
func (t MLinkType) LayerType() gopacket.LayerType {
	return MLinkMetadata[t].LayerType
}

// Decode calls MLinkMetadata.DecodeWith's decoder
func (t MLinkType) Decode(data []byte, p gopacket.PacketBuilder) error {
	return MLinkMetadata[t].DecodeWith.Decode(data, p)
}

// String returns MLinkMetadata.Name
func (t MLinkType) String() string {
	return MLinkMetadata[t].Name
}

// Response returns the frame type answering t
func (t MLinkType) Response() MLinkType {
	switch t {
	case MLinkTypeRegRequest:
		return MLinkTypeRegResponse
	case MLinkTypeTrapRequest:
		return MLinkTypeTrapResponse
	}
	return t
}

type MLinkHeader struct {
	Type MLinkType
	Sync uint16
	Seq  uint16
	Len  uint16 // length of MLink frame including header, payload and CRC in 4-byte words NOT in bytes
	Src  uint16
	Dst  uint16
}

type MLinkLayer struct {
	layers.BaseLayer
	MLinkHeader
	Crc uint32
}

var MLinkLayerType = gopacket.RegisterLayerType(MLinkLayerNum,
	gopacket.LayerTypeMetadata{Name: "MLinkLayerType", Decoder: gopacket.DecodeFunc(decodeMLinkLayer)})

func (ml *MLinkLayer) LayerType() gopacket.LayerType {
	return MLinkLayerType
}

// SerializeHeader serializes only MLink header (not tail) to a buffer.
// The CRC covers the serialized header and payload, so it is computed by
// the caller before SerializeTo.
func (ml *MLinkLayer) SerializeHeader(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], uint16(ml.Type))
	binary.LittleEndian.PutUint16(buf[2:4], ml.Sync)
	binary.LittleEndian.PutUint16(buf[4:6], ml.Seq)
	binary.LittleEndian.PutUint16(buf[6:8], ml.Len)
	binary.LittleEndian.PutUint16(buf[8:10], ml.Src)
	binary.LittleEndian.PutUint16(buf[10:12], ml.Dst)
}

// SerializeTo serializes the layer into bytes and writes the bytes to the SerializeBuffer
func (ml *MLinkLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	headerBytes, err := b.PrependBytes(MLinkHeaderSize)
	if err != nil {
		return err
	}
	ml.SerializeHeader(headerBytes)

	tailBytes, err := b.AppendBytes(4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(tailBytes[0:4], ml.Crc)
	return nil
}

// DecodeFromBytes attempts to decode the byte slice as a MLink frame
func (ml *MLinkLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < MLinkHeaderSize+4 {
		df.SetTruncated()
		return ErrFrame{What: "MLink packet too short"}
	}

	if binary.LittleEndian.Uint16(data[2:4]) != MLinkSync {
		return ErrFrame{What: fmt.Sprintf("Wrong MLink sync. Must be 0x%04x", MLinkSync)}
	}

	ml.BaseLayer = layers.BaseLayer{
		Contents: data[0:MLinkHeaderSize],
		Payload:  data[MLinkHeaderSize : len(data)-4],
	}

	ml.Type = MLinkType(binary.LittleEndian.Uint16(data[0:2]))
	ml.Sync = binary.LittleEndian.Uint16(data[2:4])
	ml.Seq = binary.LittleEndian.Uint16(data[4:6])
	ml.Len = binary.LittleEndian.Uint16(data[6:8])
	ml.Src = binary.LittleEndian.Uint16(data[8:10])
	ml.Dst = binary.LittleEndian.Uint16(data[10:12])
	ml.Crc = binary.LittleEndian.Uint32(data[len(data)-4:])

	if int(ml.Len)*4 != len(data) {
		return ErrFrame{What: fmt.Sprintf("MLink length %d words does not match frame size %d bytes", ml.Len, len(data))}
	}
	if crc := crc32.ChecksumIEEE(data[:len(data)-4]); crc != ml.Crc {
		return ErrFrame{What: fmt.Sprintf("Wrong MLink CRC 0x%08x, computed 0x%08x", ml.Crc, crc)}
	}
	return nil
}

func (ml *MLinkLayer) NextLayerType() gopacket.LayerType {
	return ml.Type.LayerType()
}

func decodeMLinkLayer(data []byte, p gopacket.PacketBuilder) error {
	ml := &MLinkLayer{}
	err := ml.DecodeFromBytes(data, p)
	if err != nil {
		log.Error("Error while decoding mlink layer: %s", err)
		return err
	}
	p.AddLayer(ml)
	return p.NextDecoder(ml.NextLayerType())
}
