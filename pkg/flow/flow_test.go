package flow

import (
	"net/netip"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = Key{
	Client: netip.MustParseAddrPort("192.0.2.10:51514"),
	Server: netip.MustParseAddrPort("198.51.100.7:443"),
}

func TestFlowDecide(t *testing.T) {
	f := New(testKey, 0)
	assert.Equal(t, DefaultMaxData, f.MaxData)
	assert.Equal(t, Undetermined, f.State())

	assert.False(t, f.Decide(Undetermined))
	assert.True(t, f.Decide(ConfirmedSSL))
	assert.Equal(t, ConfirmedSSL, f.State())

	assert.False(t, f.Decide(ConfirmedNotSSL), "decided flows must not change state")
	assert.Equal(t, ConfirmedSSL, f.State())
}

func TestFlowAppendCapsAtMaxData(t *testing.T) {
	f := New(testKey, 4)
	now := time.Unix(1700000000, 0)

	assert.Equal(t, 3, f.Append([]byte{1, 2, 3}, now))
	assert.True(t, f.CanGetMore())
	assert.Equal(t, 1, f.Append([]byte{4, 5}, now))
	assert.False(t, f.CanGetMore())
	assert.Equal(t, 0, f.Append([]byte{6}, now))
	assert.Equal(t, []byte{1, 2, 3, 4}, f.Request)
	assert.Equal(t, now, f.LastSeen)
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "192.0.2.10:51514 -> 198.51.100.7:443", testKey.String())
}

func TestTrackerInOrder(t *testing.T) {
	tr := NewTracker(TrackerConfig{}, zerolog.Nop())
	now := time.Unix(1700000000, 0)

	f, added := tr.Add(Segment{Key: testKey, Seq: 99, SYN: true, Time: now})
	require.NotNil(t, f)
	assert.False(t, added)

	f, added = tr.Add(Segment{Key: testKey, Seq: 100, Payload: []byte("abc"), Time: now})
	assert.True(t, added)
	f, added = tr.Add(Segment{Key: testKey, Seq: 103, Payload: []byte("def"), Time: now})
	assert.True(t, added)
	assert.Equal(t, "abcdef", string(f.Request))
	assert.Equal(t, 1, tr.Len())
}

func TestTrackerTrimsRetransmissionAndDropsGaps(t *testing.T) {
	tr := NewTracker(TrackerConfig{}, zerolog.Nop())
	now := time.Unix(1700000000, 0)

	f, _ := tr.Add(Segment{Key: testKey, Seq: 1000, Payload: []byte("hello"), Time: now})
	_, added := tr.Add(Segment{Key: testKey, Seq: 1000, Payload: []byte("hello"), Time: now})
	assert.False(t, added, "full retransmission adds nothing")

	_, added = tr.Add(Segment{Key: testKey, Seq: 1003, Payload: []byte("lo world"), Time: now})
	assert.True(t, added)

	_, added = tr.Add(Segment{Key: testKey, Seq: 2000, Payload: []byte("later"), Time: now})
	assert.False(t, added, "segments after a gap are dropped")

	assert.Equal(t, "hello world", string(f.Request))
}

func TestTrackerDecidedFlowsStopBuffering(t *testing.T) {
	tr := NewTracker(TrackerConfig{}, zerolog.Nop())
	now := time.Unix(1700000000, 0)

	f, _ := tr.Add(Segment{Key: testKey, Seq: 1, Payload: []byte("x"), Time: now})
	f.Decide(ConfirmedNotSSL)

	_, added := tr.Add(Segment{Key: testKey, Seq: 2, Payload: []byte("y"), Time: now.Add(time.Second)})
	assert.False(t, added)
	assert.Equal(t, "x", string(f.Request))
	assert.Equal(t, now.Add(time.Second), f.LastSeen)

	fresh, _ := tr.Add(Segment{Key: testKey, Seq: 500, SYN: true, Time: now.Add(2 * time.Second)})
	assert.NotSame(t, f, fresh, "SYN on a decided flow starts over")
	assert.Equal(t, Undetermined, fresh.State())
	_, added = tr.Add(Segment{Key: testKey, Seq: 501, Payload: []byte("z"), Time: now.Add(2 * time.Second)})
	assert.True(t, added)
	assert.Equal(t, "z", string(fresh.Request))
}

func TestTrackerExpireAndCapacity(t *testing.T) {
	tr := NewTracker(TrackerConfig{MaxFlows: 1, TTL: time.Second}, zerolog.Nop())
	now := time.Unix(1700000000, 0)
	other := Key{Client: netip.MustParseAddrPort("192.0.2.11:40000"), Server: testKey.Server}

	f, _ := tr.Add(Segment{Key: testKey, Seq: 1, Payload: []byte("a"), Time: now})
	require.NotNil(t, f)

	f, _ = tr.Add(Segment{Key: other, Seq: 1, Payload: []byte("b"), Time: now})
	assert.Nil(t, f, "table is full")

	f, _ = tr.Add(Segment{Key: other, Seq: 1, Payload: []byte("b"), Time: now.Add(2 * time.Second)})
	require.NotNil(t, f, "idle flow should have been expired to make room")
	assert.Equal(t, 1, tr.Len())
	assert.Same(t, f, tr.Lookup(other))
	assert.Nil(t, tr.Lookup(testKey))

	tr.Remove(other)
	assert.Zero(t, tr.Len())
}
