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
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-spl/pkg/board"
	"jinr.ru/greenlab/go-spl/pkg/boot"
	"jinr.ru/greenlab/go-spl/pkg/fault"
	"jinr.ru/greenlab/go-spl/pkg/hw"
	"jinr.ru/greenlab/go-spl/pkg/layers"
	"jinr.ru/greenlab/go-spl/pkg/sim"
	"jinr.ru/greenlab/go-spl/pkg/soc/am33xx"
)

func startAgent(t *testing.T, a *Agent) string {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Serve(ctx, conn)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return conn.LocalAddr().String()
}

func dial(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := Dial(addr, Options{Timeout: time.Second, Retries: 2})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRemoteBus(t *testing.T) {
	target := hw.NewSim()
	target.Poke(0x100, 0xCAFEBABE)
	bus := NewRemoteBus(dial(t, startAgent(t, NewAgent(target))))

	v, err := bus.Read(0x100, hw.Width32)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEBABE), v)

	require.NoError(t, bus.Write(0x104, hw.Width16, 0x1234))
	require.NoError(t, bus.WriteControl(fault.SPRTSR, 0x0C000000))
	v, err = bus.ReadControl(fault.SPRTSR)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x0C000000), v)

	_, err = bus.Read(0x102, hw.Width32)
	assert.Equal(t, hw.ErrUnaligned{Addr: 0x102, Width: hw.Width32}, err)
	_, err = bus.Read(0x100, hw.Width(3))
	assert.Equal(t, hw.ErrWidth{Width: hw.Width(3)}, err)

	ops, err := bus.Do([]*layers.RegOp{
		{Op: hw.OpRead, Width: hw.Width32, Addr: 0x104},
		{Op: hw.Op(9), Width: hw.Width32, Addr: 0x104},
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1234), ops[0].Value)
	assert.Equal(t, layers.RegStatusBadOp, ops[1].Status)
}

func TestBringUpOverLink(t *testing.T) {
	id := board.NewVariant("bone", true)
	target := sim.NewBoard(id, sim.Options{})
	bus := NewRemoteBus(dial(t, startAgent(t, NewAgent(target))))

	p := hw.Poller{Limit: 16}
	seq := boot.NewSequencer(bus, p, am33xx.NewUART(bus, p, am33xx.UART0Base), nil)
	require.NoError(t, seq.BringUp(id))
	assert.Equal(t, ">", target.Console())
	assert.True(t, target.WatchdogDisarmed())
}

func TestAgentDeduplicatesResends(t *testing.T) {
	target := hw.NewSim()
	writes := 0
	target.MapIO(0x200, nil, func(uint32, uint32) { writes++ })
	a := NewAgent(target)

	req, err := layers.Frame(layers.MLinkHeader{Type: layers.MLinkTypeRegRequest, Seq: 5},
		&layers.RegLayer{RegOps: []*layers.RegOp{{Op: hw.OpWrite, Width: hw.Width32, Addr: 0x200, Value: 1}}})
	require.NoError(t, err)

	first, err := a.Handle("peer", req)
	require.NoError(t, err)
	second, err := a.Handle("peer", req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, writes)

	_, err = a.Handle("other", req)
	require.NoError(t, err)
	assert.Equal(t, 2, writes)

	ml, _, err := layers.Decode(first)
	require.NoError(t, err)
	assert.Equal(t, layers.MLinkTypeRegResponse, ml.Type)
	assert.Equal(t, uint16(5), ml.Seq)
}

func TestAgentResendCacheBounded(t *testing.T) {
	target := hw.NewSim()
	writes := 0
	target.MapIO(0x200, nil, func(uint32, uint32) { writes++ })
	a := NewAgent(target)

	req, err := layers.Frame(layers.MLinkHeader{Type: layers.MLinkTypeRegRequest, Seq: 1},
		&layers.RegLayer{RegOps: []*layers.RegOp{{Op: hw.OpWrite, Width: hw.Width32, Addr: 0x200, Value: 1}}})
	require.NoError(t, err)

	for i := 0; i < ResendCacheSize+8; i++ {
		_, err := a.Handle(fmt.Sprintf("127.0.0.1:%d", 10000+i), req)
		require.NoError(t, err)
	}
	assert.Equal(t, ResendCacheSize, a.last.Len())
	assert.Equal(t, ResendCacheSize+8, writes)

	// the oldest peer was evicted so its resend runs again
	_, err = a.Handle("127.0.0.1:10000", req)
	require.NoError(t, err)
	assert.Equal(t, ResendCacheSize+9, writes)
}

func TestLinkTimeout(t *testing.T) {
	// a socket nobody answers on
	silent, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer silent.Close()

	c, err := Dial(silent.LocalAddr().String(), Options{Timeout: 20 * time.Millisecond, Retries: 1})
	require.NoError(t, err)
	defer c.Close()

	_, err = NewRemoteBus(c).Read(0x100, hw.Width32)
	var timeout ErrLinkTimeout
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, uint16(1), timeout.Seq)
}
