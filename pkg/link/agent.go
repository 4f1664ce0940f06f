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
	"context"
	"net"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"jinr.ru/greenlab/go-spl/pkg/hw"
	"jinr.ru/greenlab/go-spl/pkg/layers"
	"jinr.ru/greenlab/go-spl/pkg/log"
)

type cached struct {
	seq  uint16
	data []byte
}

// Agent runs on the target side of the link and performs the register
// requests it receives on its bus
type Agent struct {
	mu   sync.Mutex
	bus  hw.Bus
	last *lru.Cache[string, cached]
}

// NewAgent ...
func NewAgent(b hw.Bus) *Agent {
	// lru.New only fails for a non-positive size
	last, _ := lru.New[string, cached](ResendCacheSize)
	return &Agent{
		bus:  b,
		last: last,
	}
}

// Handle decodes one request from peer and returns the response frame.
// A request repeating the previous sequence number of the same peer gets
// the previous response again without being executed.
func (a *Agent) Handle(peer string, data []byte) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ml, payload, err := layers.Decode(data)
	if err != nil {
		return nil, err
	}
	if c, ok := a.last.Get(peer); ok && c.seq == ml.Seq {
		log.Debug("Resending response %d to %s", ml.Seq, peer)
		return c.data, nil
	}

	reg, ok := payload.(*layers.RegLayer)
	if !ok || ml.Type != layers.MLinkTypeRegRequest {
		return nil, ErrUnexpected{What: "request type " + ml.Type.String()}
	}
	a.perform(reg.RegOps)

	out, err := layers.Frame(layers.MLinkHeader{
		Type: ml.Type.Response(),
		Seq:  ml.Seq,
		Src:  ml.Dst,
		Dst:  ml.Src,
	}, reg)
	if err != nil {
		return nil, err
	}
	a.last.Add(peer, cached{seq: ml.Seq, data: out})
	return out, nil
}

func (a *Agent) perform(ops []*layers.RegOp) {
	for _, op := range ops {
		var err error
		switch op.Op {
		case hw.OpRead:
			op.Value, err = a.bus.Read(op.Addr, op.Width)
		case hw.OpWrite:
			err = a.bus.Write(op.Addr, op.Width, op.Value)
		case hw.OpReadControl:
			op.Value, err = a.bus.ReadControl(hw.Control(op.Addr))
		case hw.OpWriteControl:
			err = a.bus.WriteControl(hw.Control(op.Addr), op.Value)
		default:
			op.Status = layers.RegStatusBadOp
			continue
		}
		op.Status = layers.StatusFor(err)
		if err != nil {
			log.Debug("Operation %s failed: %s", op, err)
		}
	}
}

// Serve answers requests arriving on conn until ctx is done or reading
// fails
func (a *Agent) Serve(ctx context.Context, conn net.PacketConn) error {
	errChan := make(chan error, 1)
	buffer := make([]byte, 65536)

	go func() {
		for {
			length, addr, readErr := conn.ReadFrom(buffer)
			if readErr != nil {
				errChan <- readErr
				return
			}
			out, err := a.Handle(addr.String(), buffer[:length])
			if err != nil {
				log.Debug("Drop request from %s: %s", addr, err)
				continue
			}
			if _, err := conn.WriteTo(out, addr); err != nil {
				log.Error("Error while sending response to %s: %s", addr, err)
			}
		}
	}()

	select {
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// ListenAndServe ...
func (a *Agent) ListenAndServe(ctx context.Context, addr string) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}
	log.Info("Debug agent listening on %s", conn.LocalAddr())
	return a.Serve(ctx, conn)
}
