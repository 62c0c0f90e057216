package download

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryReserveRejectionOrder(t *testing.T) {
	r := NewRegistry(2)

	require.NoError(t, r.TryReserve("a"))
	assert.ErrorIs(t, r.TryReserve("a"), ErrInFlight)

	r.RecordSuccess("cached", "/tmp/cached.mp3", 10)
	assert.ErrorIs(t, r.TryReserve("cached"), ErrCached)

	r.RecordFailure("bad", "boom")
	assert.ErrorIs(t, r.TryReserve("bad"), ErrKnownFailure)

	require.NoError(t, r.TryReserve("b"))
	// The ceiling is checked before anything else.
	assert.ErrorIs(t, r.TryReserve("cached"), ErrAtCapacity)
	assert.ErrorIs(t, r.TryReserve("c"), ErrAtCapacity)
	assert.Equal(t, 2, r.Active())

	r.Release("a")
	assert.Equal(t, 1, r.Active())
	require.NoError(t, r.TryReserve("c"))
}

func TestReleaseUnknownIsNoop(t *testing.T) {
	r := NewRegistry(1)
	r.Release("nothing")
	assert.Equal(t, 0, r.Active())
	require.NoError(t, r.TryReserve("a"))
	r.Release("a")
	r.Release("a")
	assert.Equal(t, 0, r.Active())
}

func TestRecordSuccessClearsFailure(t *testing.T) {
	r := NewRegistry(1)
	r.RecordFailure("a", "network")
	assert.Equal(t, Failed, r.Status("a"))

	r.RecordSuccess("a", "/cache/a.mp3", 100)
	assert.Equal(t, Cached, r.Status("a"))
	_, failed := r.Failure("a")
	assert.False(t, failed)
}

func TestStatus(t *testing.T) {
	r := NewRegistry(3)
	assert.Equal(t, NotFetched, r.Status("x"))

	require.NoError(t, r.TryReserve("x"))
	assert.Equal(t, Fetching, r.Status("x"))
	assert.Equal(t, "fetching", r.Status("x").String())

	r.RecordSuccess("x", "/cache/x.mp3", 1)
	r.Release("x")
	assert.Equal(t, Cached, r.Status("x"))
}

func TestEvictPathAndStats(t *testing.T) {
	r := NewRegistry(4)
	r.RecordSuccess("a", "/cache/./a.mp3", 100)
	r.RecordSuccess("b", "/cache/b.mp3", 50)
	r.RecordSuccess("b", "/cache/b.mp3", 60)
	r.RecordFailure("c", "nope")

	s := r.Stats()
	assert.Equal(t, Stats{Limit: 4, Cached: 2, Failed: 1, Bytes: 160}, s)

	id, ok := r.EvictPath("/cache/a.mp3")
	require.True(t, ok)
	assert.Equal(t, "a", id)
	_, ok = r.EvictPath("/cache/a.mp3")
	assert.False(t, ok)

	r.Evict("b")
	r.Evict("b")
	assert.Equal(t, int64(0), r.Stats().Bytes)
}

func TestLimitAtLeastOne(t *testing.T) {
	r := NewRegistry(0)
	assert.Equal(t, 1, r.Limit())
	require.NoError(t, r.TryReserve("a"))
	assert.ErrorIs(t, r.TryReserve("b"), ErrAtCapacity)
}
