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
	"hash/crc32"

	"github.com/google/gopacket"
)

// Payload is a layer that can be carried in an MLink frame
type Payload interface {
	gopacket.SerializableLayer
	Len() int
	Serialize(buf []byte)
}

// Frame builds an MLink frame around payload. The CRC depends on the
// serialized header and payload, so both are serialized once to compute it.
func Frame(header MLinkHeader, payload Payload) ([]byte, error) {
	if payload.Len() > MLinkMaxPayloadSize {
		return nil, ErrFrame{What: "payload too large"}
	}
	ml := &MLinkLayer{MLinkHeader: header}
	ml.Sync = MLinkSync
	// 3 words for MLink header + 1 word CRC + N words of payload
	ml.Len = uint16(4 + payload.Len()/4)

	data := make([]byte, MLinkHeaderSize+payload.Len())
	ml.SerializeHeader(data[:MLinkHeaderSize])
	payload.Serialize(data[MLinkHeaderSize:])
	ml.Crc = crc32.ChecksumIEEE(data)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}
	if err := gopacket.SerializeLayers(buf, opts, ml, payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a frame and returns its MLink layer and payload layer
func Decode(data []byte) (*MLinkLayer, gopacket.Layer, error) {
	packet := gopacket.NewPacket(data, MLinkLayerType, gopacket.Default)
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, nil, errLayer.Error()
	}
	mlLayer := packet.Layer(MLinkLayerType)
	if mlLayer == nil {
		return nil, nil, ErrFrame{What: "no MLink header"}
	}
	ml := mlLayer.(*MLinkLayer)
	if payload := packet.Layer(ml.NextLayerType()); payload != nil {
		return ml, payload, nil
	}
	return ml, nil, ErrFrame{What: "no payload for " + ml.Type.String()}
}
