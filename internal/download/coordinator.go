package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/olivier-w/ytmp/internal/queue"
	"github.com/olivier-w/ytmp/internal/util"
)

// ErrClosed is returned for requests made after Shutdown.
var ErrClosed = errors.New("downloads are shut down")

// ErrNotFetchable is returned for tracks with no remote id.
var ErrNotFetchable = errors.New("track has nothing to fetch")

// Fetcher turns a track into a local audio file.
type Fetcher interface {
	Fetch(ctx context.Context, t queue.Track) (string, error)
}

// FetchFunc adapts a plain function to Fetcher.
type FetchFunc func(ctx context.Context, t queue.Track) (string, error)

func (f FetchFunc) Fetch(ctx context.Context, t queue.Track) (string, error) {
	return f(ctx, t)
}

// Result is posted once per finished fetch. Cancelled fetches post nothing.
type Result struct {
	Track queue.Track
	Path  string
	Size  int64
	Err   error
}

// Window is the read side of the queue that prefetch policies look at.
type Window interface {
	At(i int) (queue.Track, bool)
	Slice(start, n int) []queue.Track
}

// Options tunes prefetching.
type Options struct {
	Lookahead      int // position past the cursor fetched on cursor moves
	PlaybackBuffer int // upcoming tracks fetched when playback starts
	RestoreBuffer  int // tracks fetched after a bulk load
	ResultBuffer   int
}

// Coordinator starts fetches, enforces the concurrency ceiling through its
// Registry and hands results back on a channel for the UI loop to drain.
type Coordinator struct {
	reg     *Registry
	fetcher Fetcher
	opts    Options
	results chan Result
	tasks   *taskSet
}

// NewCoordinator returns a Coordinator fetching through f.
func NewCoordinator(reg *Registry, f Fetcher, opts Options) *Coordinator {
	if opts.ResultBuffer <= 0 {
		opts.ResultBuffer = 64
	}
	return &Coordinator{
		reg:     reg,
		fetcher: f,
		opts:    opts,
		results: make(chan Result, opts.ResultBuffer),
		tasks:   newTaskSet(),
	}
}

// Registry returns the shared bookkeeping.
func (c *Coordinator) Registry() *Registry {
	return c.reg
}

// Results delivers completed fetches.
func (c *Coordinator) Results() <-chan Result {
	return c.results
}

// Request starts a background fetch for t. It reports whether one was
// started.
func (c *Coordinator) Request(t queue.Track) bool {
	return c.Submit(t) == nil
}

// Submit is Request with the reason a fetch was not started.
func (c *Coordinator) Submit(t queue.Track) error {
	if t.ID == "" || t.IsLocal() {
		return ErrNotFetchable
	}
	if err := c.reg.TryReserve(t.ID); err != nil {
		return err
	}

	ctx, done, ok := c.tasks.start()
	if !ok {
		c.reg.Release(t.ID)
		return ErrClosed
	}
	go c.run(ctx, done, t)
	return nil
}

func (c *Coordinator) run(ctx context.Context, done func(), t queue.Track) {
	defer done()

	path, err := c.fetch(ctx, t)
	if err != nil && ctx.Err() != nil {
		c.reg.Release(t.ID)
		return
	}

	res := Result{Track: t, Path: path, Err: err}
	if err != nil {
		util.Debug("download %s failed: %v", t.ID, err)
		c.reg.RecordFailure(t.ID, err.Error())
	} else {
		if info, statErr := os.Stat(path); statErr == nil {
			res.Size = info.Size()
		}
		c.reg.RecordSuccess(t.ID, path, res.Size)
	}
	c.reg.Release(t.ID)

	select {
	case c.results <- res:
	case <-ctx.Done():
	}
}

func (c *Coordinator) fetch(ctx context.Context, t queue.Track) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			util.Debug("download %s panicked: %v", t.ID, r)
			path, err = "", fmt.Errorf("download crashed: %v", r)
		}
	}()
	return c.fetcher.Fetch(ctx, t)
}

// OnCursorMoved prefetches the track Lookahead positions past the cursor
// when it moves forward.
func (c *Coordinator) OnCursorMoved(w Window, from, to int) bool {
	if to <= from {
		return false
	}
	t, ok := w.At(to + c.opts.Lookahead)
	if !ok {
		return false
	}
	return c.Request(t)
}

// OnPlaybackStarted prefetches the next PlaybackBuffer pending tracks.
func (c *Coordinator) OnPlaybackStarted(w Window) int {
	return c.requestAll(w.Slice(0, c.opts.PlaybackBuffer))
}

// OnBulkLoad prefetches after a restore or playlist import: the current
// track first, or the first pending one if nothing is current, then a
// small buffer after it.
func (c *Coordinator) OnBulkLoad(current *queue.Track, w Window) int {
	started := 0
	start := 0
	if current != nil {
		if c.Request(*current) {
			started++
		}
	} else if first, ok := w.At(0); ok {
		if c.Request(first) {
			started++
		}
		start = 1
	}
	return started + c.requestAll(w.Slice(start, c.opts.RestoreBuffer))
}

func (c *Coordinator) requestAll(tracks []queue.Track) int {
	started := 0
	for _, t := range tracks {
		if c.Request(t) {
			started++
		}
	}
	return started
}

// RetryPending re-requests the track the user is waiting on if nothing is
// fetching it and it has not already failed.
func (c *Coordinator) RetryPending(t *queue.Track) bool {
	if t == nil || t.IsLocal() {
		return false
	}
	switch c.reg.Status(t.ID) {
	case Fetching, Failed:
		return false
	case Cached:
		if _, ok := c.cachedFile(t.ID); ok {
			return false
		}
	}
	return c.Request(*t)
}

// Retry forgets an earlier failure for t and fetches it again.
func (c *Coordinator) Retry(t queue.Track) error {
	c.reg.ClearFailure(t.ID)
	return c.Submit(t)
}

// Ensure returns the playable file for t when there is one. Otherwise it
// starts a fetch and returns the reason none was started, if any. A cache
// entry whose file has gone missing is evicted and fetched again.
func (c *Coordinator) Ensure(t queue.Track) (string, bool, error) {
	if t.IsLocal() {
		if _, err := os.Stat(t.LocalFile); err != nil {
			return "", false, err
		}
		return t.LocalFile, true, nil
	}
	if path, ok := c.cachedFile(t.ID); ok {
		return path, true, nil
	}
	return "", false, c.Submit(t)
}

// cachedFile returns the cached path for id if the file still exists,
// evicting the entry when it does not.
func (c *Coordinator) cachedFile(id string) (string, bool) {
	path, ok := c.reg.IsCached(id)
	if !ok {
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		util.Debug("cache entry for %s is stale: %v", id, err)
		c.reg.Evict(id)
		return "", false
	}
	return path, true
}

// ScheduleRemoval deletes a played file after delay unless the app shuts
// down first.
func (c *Coordinator) ScheduleRemoval(id, path string, delay time.Duration) bool {
	return c.tasks.after(delay, func() {
		if cached, ok := c.reg.IsCached(id); ok && cached == filepath.Clean(path) {
			c.reg.Evict(id)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			util.Debug("remove %s: %v", path, err)
		}
	})
}

// Pending returns how many background tasks are still registered.
func (c *Coordinator) Pending() int {
	return c.tasks.Len()
}

// Shutdown cancels every fetch and timer and waits up to grace for them.
func (c *Coordinator) Shutdown(grace time.Duration) {
	if !c.tasks.shutdown(grace) {
		util.Debug("shutdown: %d background tasks still running", c.tasks.Len())
	}
}
