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
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-spl/pkg/layers"
	"jinr.ru/greenlab/go-spl/pkg/log"
)

const (
	DefaultTimeout = 200 * time.Millisecond
	DefaultRetries = 3
	// ResendCacheSize bounds the number of peers whose last response is
	// kept for answering resends
	ResendCacheSize = 1024
)

// Options tunes the request/response exchange
type Options struct {
	// Timeout bounds the wait for one response
	Timeout time.Duration
	// Retries is the number of resends after the first attempt
	Retries uint64
	// Src is the link address put in request frames
	Src uint16
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Retries == 0 {
		o.Retries = DefaultRetries
	}
	if o.Src == 0 {
		o.Src = layers.MLinkHostAddr
	}
	return o
}

// Client sends requests on a connected UDP socket and waits for the
// response carrying the same sequence number. A request is resent with
// exponential backoff until a response arrives or the retries run out.
// The agent answers a resent request from its cache, so resending never
// repeats a register access.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	opts Options
	seq  uint16
	buf  []byte
}

// Dial ...
func Dial(addr string, opts Options) (*Client, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	return NewClient(conn, opts), nil
}

// NewClient ...
func NewClient(conn net.Conn, opts Options) *Client {
	return &Client{
		conn: conn,
		opts: opts.withDefaults(),
		buf:  make([]byte, 65536),
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) nextSeq() uint16 {
	c.seq++
	return c.seq
}

// Request sends payload in a frame of type typ and returns the payload of
// the matching response
func (c *Client) Request(typ layers.MLinkType, payload layers.Payload) (gopacket.Layer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq := c.nextSeq()
	dst := uint16(layers.MLinkTargetAddr)
	if typ == layers.MLinkTypeTrapRequest {
		dst = layers.MLinkHostAddr
	}
	data, err := layers.Frame(layers.MLinkHeader{
		Type: typ,
		Seq:  seq,
		Src:  c.opts.Src,
		Dst:  dst,
	}, payload)
	if err != nil {
		return nil, err
	}

	var response gopacket.Layer
	attempt := func() error {
		if _, err := c.conn.Write(data); err != nil {
			return backoff.Permanent(err)
		}
		layer, err := c.await(typ.Response(), seq)
		if err != nil {
			return err
		}
		response = layer
		return nil
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.opts.Timeout / 4
	notify := func(err error, next time.Duration) {
		log.Debug("Request %d to %s failed: %s, resending in %s", seq, c.conn.RemoteAddr(), err, next)
	}
	err = backoff.RetryNotify(attempt, backoff.WithMaxRetries(policy, c.opts.Retries), notify)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return nil, ErrLinkTimeout{Peer: c.conn.RemoteAddr().String(), Seq: seq}
	}
	return response, err
}

// await reads frames until the response to seq arrives. Stale responses to
// earlier requests are dropped.
func (c *Client) await(typ layers.MLinkType, seq uint16) (gopacket.Layer, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.Timeout)); err != nil {
		return nil, backoff.Permanent(err)
	}
	for {
		n, err := c.conn.Read(c.buf)
		if err != nil {
			return nil, err
		}
		ml, payload, err := layers.Decode(c.buf[:n])
		if err != nil {
			log.Debug("Drop malformed frame from %s: %s", c.conn.RemoteAddr(), err)
			continue
		}
		if ml.Seq != seq {
			log.Debug("Drop stale response %d, waiting for %d", ml.Seq, seq)
			continue
		}
		if ml.Type != typ {
			return nil, backoff.Permanent(ErrUnexpected{What: "frame type " + ml.Type.String()})
		}
		return payload, nil
	}
}
