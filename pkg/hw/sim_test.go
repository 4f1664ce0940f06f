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

package hw

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimLanes(t *testing.T) {
	s := NewSim()
	require.NoError(t, s.Write(0x100, Width32, 0x11223344))
	require.NoError(t, s.Write(0x101, Width8, 0xAB))
	require.NoError(t, s.Write(0x102, Width16, 0xCDEF))

	assert.Equal(t, uint32(0xCDEFAB44), s.Peek(0x100))
	v, err := s.Read(0x103, Width8)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCD), v)

	// values wider than the access are truncated
	require.NoError(t, s.Write(0x104, Width8, 0x1FF))
	assert.Equal(t, uint32(0xFF), s.Peek(0x104))
}

func TestSimRejectsBadAccess(t *testing.T) {
	s := NewSim()
	_, err := s.Read(0x102, Width32)
	assert.Equal(t, ErrUnaligned{Addr: 0x102, Width: Width32}, err)
	err = s.Write(0x101, Width16, 0)
	assert.Equal(t, ErrUnaligned{Addr: 0x101, Width: Width16}, err)
	_, err = s.Read(0x100, Width(3))
	assert.Equal(t, ErrWidth{Width: Width(3)}, err)
	assert.Empty(t, s.Trace())
}

func TestSimTraceOrder(t *testing.T) {
	s := NewSim()
	require.NoError(t, Write32(s, 0x10, 1))
	_, err := Read32(s, 0x10)
	require.NoError(t, err)
	require.NoError(t, s.WriteControl(Control(7), 2))
	require.NoError(t, Update32(s, 0x10, 0x1, 0x4))

	want := []Access{
		{Op: OpWrite, Addr: 0x10, Width: Width32, Value: 1},
		{Op: OpRead, Addr: 0x10, Width: Width32, Value: 1},
		{Op: OpWriteControl, Addr: 7, Width: Width32, Value: 2},
		{Op: OpRead, Addr: 0x10, Width: Width32, Value: 1},
		{Op: OpWrite, Addr: 0x10, Width: Width32, Value: 4},
	}
	if diff := cmp.Diff(want, s.Trace()); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, s.Writes(), 3)

	s.ResetTrace()
	assert.Empty(t, s.Trace())
	assert.Equal(t, []Reg{{Addr: 0x10, Value: 4}}, s.Snapshot())
}

func TestSimMapIO(t *testing.T) {
	s := NewSim()
	reads := 0
	s.MapIO(0x200, func(addr uint32) uint32 {
		reads++
		return uint32(reads)
	}, func(addr, value uint32) {
		s.Poke(addr+4, value)
	})

	v, err := Read32(s, 0x200)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v)
	require.NoError(t, Write32(s, 0x200, 0x55))
	assert.Equal(t, uint32(0), s.Peek(0x200))
	assert.Equal(t, uint32(0x55), s.Peek(0x204))
}

func TestPollerUntil(t *testing.T) {
	s := NewSim()
	count := 0
	s.MapIO(0x300, func(uint32) uint32 {
		count++
		if count >= 3 {
			return 0x80
		}
		return 0
	}, nil)

	require.NoError(t, Poller{Limit: 5}.UntilSet(s, 0x300, 0x80))
	assert.Equal(t, 3, count)
}

func TestPollerLimit(t *testing.T) {
	s := NewSim()
	s.Poke(0x300, 0x1)
	err := Poller{Limit: 4}.UntilClear(s, 0x300, 0x1)
	require.Error(t, err)
	var timeout ErrPollTimeout
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, ErrPollTimeout{Addr: 0x300, Mask: 0x1, Want: 0, Last: 0x1, Polls: 4}, timeout)
	assert.Len(t, s.Trace(), 4)
}

func TestPollerTimeout(t *testing.T) {
	s := NewSim()
	s.Poke(0x300, 0x1)
	now := time.Unix(0, 0)
	clock := func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}
	p := Poller{Limit: 1000, Timeout: 5 * time.Millisecond, Now: clock}
	err := p.UntilClear(s, 0x300, 0x1)
	var timeout ErrPollTimeout
	require.ErrorAs(t, err, &timeout)
	assert.Less(t, timeout.Polls, 10)
}
