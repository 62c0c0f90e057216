package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olivier-w/ytmp/internal/queue"
)

// gatedFetcher blocks every fetch until the test finishes it.
type gatedFetcher struct {
	dir string

	mu      sync.Mutex
	calls   map[string]int
	waiting map[string]chan error
}

func newGatedFetcher(t *testing.T) *gatedFetcher {
	return &gatedFetcher{
		dir:     t.TempDir(),
		calls:   make(map[string]int),
		waiting: make(map[string]chan error),
	}
}

func (f *gatedFetcher) Fetch(ctx context.Context, tr queue.Track) (string, error) {
	ch := make(chan error, 1)
	f.mu.Lock()
	f.calls[tr.ID]++
	f.waiting[tr.ID] = ch
	f.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-ch:
		if err != nil {
			return "", err
		}
		path := filepath.Join(f.dir, testPrefix+tr.ID+".mp3")
		if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
			return "", err
		}
		return path, nil
	}
}

func (f *gatedFetcher) started(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.waiting[id]
	return ok
}

func (f *gatedFetcher) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *gatedFetcher) finish(t *testing.T, id string, err error) {
	t.Helper()
	require.Eventually(t, func() bool { return f.started(id) }, 2*time.Second, time.Millisecond)
	f.mu.Lock()
	ch := f.waiting[id]
	delete(f.waiting, id)
	f.mu.Unlock()
	ch <- err
}

const testPrefix = "ytmp-"

func track(id string) queue.Track {
	return queue.Track{ID: id, Title: "Track " + id, Duration: 180}
}

func tracks(n int) []queue.Track {
	out := make([]queue.Track, n)
	for i := range out {
		out[i] = track(fmt.Sprintf("t%02d", i))
	}
	return out
}

func waitResult(t *testing.T, c *Coordinator) Result {
	t.Helper()
	select {
	case r := <-c.Results():
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a download result")
		return Result{}
	}
}

func newTestCoordinator(t *testing.T, limit int, f Fetcher, opts Options) *Coordinator {
	c := NewCoordinator(NewRegistry(limit), f, opts)
	t.Cleanup(func() { c.Shutdown(time.Second) })
	return c
}

func TestRequestSameTrackTwiceFetchesOnce(t *testing.T) {
	f := newGatedFetcher(t)
	c := newTestCoordinator(t, 4, f, Options{})

	assert.True(t, c.Request(track("a")))
	assert.False(t, c.Request(track("a")))
	assert.ErrorIs(t, c.Submit(track("a")), ErrInFlight)

	f.finish(t, "a", nil)
	res := waitResult(t, c)
	require.NoError(t, res.Err)
	assert.Equal(t, "a", res.Track.ID)
	assert.Equal(t, int64(5), res.Size)

	assert.ErrorIs(t, c.Submit(track("a")), ErrCached)
	assert.Equal(t, 1, f.count("a"))
}

func TestCeilingFreesSlotBeforeResult(t *testing.T) {
	f := newGatedFetcher(t)
	c := newTestCoordinator(t, 2, f, Options{})

	require.True(t, c.Request(track("a")))
	require.True(t, c.Request(track("b")))
	assert.ErrorIs(t, c.Submit(track("c")), ErrAtCapacity)
	assert.Equal(t, 2, c.Registry().Active())

	f.finish(t, "a", nil)
	res := waitResult(t, c)
	assert.Equal(t, "a", res.Track.ID)

	assert.Equal(t, 1, c.Registry().Active())
	assert.True(t, c.Request(track("c")))
}

func TestFailureIsRecordedForAnyTrack(t *testing.T) {
	f := newGatedFetcher(t)
	c := newTestCoordinator(t, 2, f, Options{})

	require.True(t, c.Request(track("gone")))
	f.finish(t, "gone", errors.New("video unavailable"))

	res := waitResult(t, c)
	require.Error(t, res.Err)
	assert.Equal(t, Failed, c.Registry().Status("gone"))
	reason, _ := c.Registry().Failure("gone")
	assert.Equal(t, "video unavailable", reason)

	gone := track("gone")
	assert.ErrorIs(t, c.Submit(gone), ErrKnownFailure)
	assert.False(t, c.RetryPending(&gone))

	require.NoError(t, c.Retry(gone))
	assert.Equal(t, Fetching, c.Registry().Status("gone"))
}

func TestPanickingFetchBecomesFailure(t *testing.T) {
	c := newTestCoordinator(t, 1, FetchFunc(func(context.Context, queue.Track) (string, error) {
		panic("decoder exploded")
	}), Options{})

	require.True(t, c.Request(track("p")))
	res := waitResult(t, c)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "decoder exploded")
	assert.Equal(t, Failed, c.Registry().Status("p"))
	assert.Equal(t, 0, c.Registry().Active())
}

func TestEnsureEvictsStaleEntryAndRefetches(t *testing.T) {
	f := newGatedFetcher(t)
	c := newTestCoordinator(t, 2, f, Options{})
	c.Registry().RecordSuccess("s", filepath.Join(t.TempDir(), "deleted.mp3"), 10)

	path, ready, err := c.Ensure(track("s"))
	require.NoError(t, err)
	assert.False(t, ready)
	assert.Empty(t, path)
	assert.Equal(t, Fetching, c.Registry().Status("s"))

	f.finish(t, "s", nil)
	res := waitResult(t, c)
	require.NoError(t, res.Err)

	path, ready, err = c.Ensure(track("s"))
	require.NoError(t, err)
	assert.True(t, ready)
	assert.Equal(t, res.Path, path)
}

func TestEnsureLocalFile(t *testing.T) {
	c := newTestCoordinator(t, 1, newGatedFetcher(t), Options{})
	file := filepath.Join(t.TempDir(), "song.mp3")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	path, ready, err := c.Ensure(queue.Track{Title: "song", LocalFile: file})
	require.NoError(t, err)
	assert.True(t, ready)
	assert.Equal(t, file, path)

	_, ready, err = c.Ensure(queue.Track{Title: "missing", LocalFile: file + ".gone"})
	assert.False(t, ready)
	assert.Error(t, err)
}

func TestRetryPendingSkipsCachedAndFetching(t *testing.T) {
	f := newGatedFetcher(t)
	c := newTestCoordinator(t, 2, f, Options{})

	assert.False(t, c.RetryPending(nil))

	a := track("a")
	assert.True(t, c.RetryPending(&a))
	assert.False(t, c.RetryPending(&a))

	f.finish(t, "a", nil)
	waitResult(t, c)
	assert.False(t, c.RetryPending(&a))
}

func TestShutdownCancelsWithoutPostingResults(t *testing.T) {
	f := newGatedFetcher(t)
	c := NewCoordinator(NewRegistry(2), f, Options{})

	require.True(t, c.Request(track("a")))
	require.Eventually(t, func() bool { return f.started("a") }, 2*time.Second, time.Millisecond)

	c.Shutdown(time.Second)

	select {
	case r := <-c.Results():
		t.Fatalf("cancelled fetch posted a result: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 0, c.Registry().Active())
	assert.Equal(t, NotFetched, c.Registry().Status("a"))
	assert.ErrorIs(t, c.Submit(track("b")), ErrClosed)
	assert.Equal(t, 0, c.Pending())
}

func TestScheduleRemoval(t *testing.T) {
	c := newTestCoordinator(t, 1, newGatedFetcher(t), Options{})
	file := filepath.Join(t.TempDir(), "ytmp-x.mp3")
	require.NoError(t, os.WriteFile(file, []byte("audio"), 0o644))
	c.Registry().RecordSuccess("x", file, 5)

	require.True(t, c.ScheduleRemoval("x", file, 10*time.Millisecond))
	require.Eventually(t, func() bool {
		_, err := os.Stat(file)
		return os.IsNotExist(err)
	}, 2*time.Second, 5*time.Millisecond)
	_, cached := c.Registry().IsCached("x")
	assert.False(t, cached)
}

func TestShutdownCancelsScheduledRemoval(t *testing.T) {
	c := NewCoordinator(NewRegistry(1), newGatedFetcher(t), Options{})
	file := filepath.Join(t.TempDir(), "ytmp-y.mp3")
	require.NoError(t, os.WriteFile(file, []byte("audio"), 0o644))

	require.True(t, c.ScheduleRemoval("y", file, time.Hour))
	assert.Equal(t, 1, c.Pending())

	c.Shutdown(time.Second)
	assert.Equal(t, 0, c.Pending())
	assert.FileExists(t, file)
	assert.False(t, c.ScheduleRemoval("y", file, time.Millisecond))
}

func TestOnCursorMovedLooksAhead(t *testing.T) {
	f := newGatedFetcher(t)
	c := newTestCoordinator(t, 30, f, Options{Lookahead: 15})
	q := queue.New(tracks(20))

	assert.False(t, c.OnCursorMoved(q, 3, 2), "moving up fetches nothing")
	assert.True(t, c.OnCursorMoved(q, 1, 2))
	assert.Equal(t, Fetching, c.Registry().Status("t17"))
	assert.False(t, c.OnCursorMoved(q, 5, 6), "nothing 15 past the end")
}

func TestOnPlaybackStartedBuffersUpcoming(t *testing.T) {
	c := newTestCoordinator(t, 30, newGatedFetcher(t), Options{PlaybackBuffer: 10})
	q := queue.New(tracks(12))

	assert.Equal(t, 10, c.OnPlaybackStarted(q))
	assert.Equal(t, Fetching, c.Registry().Status("t09"))
	assert.Equal(t, NotFetched, c.Registry().Status("t10"))
}

func TestOnBulkLoad(t *testing.T) {
	t.Run("without current", func(t *testing.T) {
		c := newTestCoordinator(t, 30, newGatedFetcher(t), Options{RestoreBuffer: 5})
		q := queue.New(tracks(10))

		assert.Equal(t, 6, c.OnBulkLoad(nil, q))
		assert.Equal(t, Fetching, c.Registry().Status("t05"))
		assert.Equal(t, NotFetched, c.Registry().Status("t06"))
	})

	t.Run("current first", func(t *testing.T) {
		c := newTestCoordinator(t, 2, newGatedFetcher(t), Options{RestoreBuffer: 5})
		q := queue.New(tracks(10))
		cur := track("now")

		assert.Equal(t, 2, c.OnBulkLoad(&cur, q))
		assert.Equal(t, Fetching, c.Registry().Status("now"))
		assert.Equal(t, Fetching, c.Registry().Status("t00"))
		assert.Equal(t, NotFetched, c.Registry().Status("t01"))
	})
}

func TestWatchCacheEvictsRemovedFiles(t *testing.T) {
	dir := t.TempDir()
	c := newTestCoordinator(t, 1, newGatedFetcher(t), Options{})
	file := filepath.Join(dir, "ytmp-w.mp3")
	require.NoError(t, os.WriteFile(file, []byte("audio"), 0o644))
	c.Registry().RecordSuccess("w", file, 5)

	require.NoError(t, c.WatchCache(dir))
	require.NoError(t, os.Remove(file))

	require.Eventually(t, func() bool {
		_, ok := c.Registry().IsCached("w")
		return !ok
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWatchCacheMissingDir(t *testing.T) {
	c := newTestCoordinator(t, 1, newGatedFetcher(t), Options{})
	assert.Error(t, c.WatchCache(filepath.Join(t.TempDir(), "nope")))
}
