// Package app ties the queue, the playback engine and the download
// coordinator together. A Controller is owned by the UI's Update loop and
// must only be called from it, except where a method says otherwise.
package app

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/olivier-w/ytmp/internal/config"
	"github.com/olivier-w/ytmp/internal/download"
	"github.com/olivier-w/ytmp/internal/player"
	"github.com/olivier-w/ytmp/internal/queue"
	"github.com/olivier-w/ytmp/internal/store"
	"github.com/olivier-w/ytmp/internal/util"
	"github.com/olivier-w/ytmp/internal/ytdlp"
)

// Controller holds all mutable application state.
type Controller struct {
	queue  *queue.Queue
	engine *player.Engine
	dl     *download.Coordinator
	store  *store.Store
	cfg    *config.Settings
	now    func() time.Time

	// waiting is the track the user asked to play whose file is not ready.
	waiting *queue.Track
	status  Status
}

// Deps are the collaborators a Controller drives.
type Deps struct {
	Engine    *player.Engine
	Downloads *download.Coordinator
	Store     *store.Store
	Settings  *config.Settings
	Clock     func() time.Time
}

// New returns a Controller with an empty queue.
func New(d Deps) *Controller {
	if d.Settings == nil {
		d.Settings = config.DefaultSettings()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	c := &Controller{
		queue:  queue.New(nil),
		engine: d.Engine,
		dl:     d.Downloads,
		store:  d.Store,
		cfg:    d.Settings,
		now:    d.Clock,
	}
	c.engine.SetVolume(d.Settings.Playback.DefaultVolume)
	return c
}

// Queue exposes the queue for rendering. Callers must not mutate it.
func (c *Controller) Queue() *queue.Queue { return c.queue }

// Engine exposes the playback engine for rendering.
func (c *Controller) Engine() *player.Engine { return c.engine }

// Settings returns the active settings.
func (c *Controller) Settings() *config.Settings { return c.cfg }

// Results delivers finished downloads. The UI drains it and passes each
// one to HandleResult.
func (c *Controller) Results() <-chan download.Result {
	return c.dl.Results()
}

// Waiting returns the track waiting for its download, if any.
func (c *Controller) Waiting() (queue.Track, bool) {
	if c.waiting == nil {
		return queue.Track{}, false
	}
	return *c.waiting, true
}

// TrackStatus reports the download state of t for display.
func (c *Controller) TrackStatus(t queue.Track) download.Status {
	if t.IsLocal() {
		return download.Cached
	}
	return c.dl.Registry().Status(t.ID)
}

// DownloadStats returns the download registry counters.
func (c *Controller) DownloadStats() download.Stats {
	return c.dl.Registry().Stats()
}

// SmartPlay starts the first pending track when nothing is current,
// reloads the current track when the engine has stopped and otherwise
// toggles pause.
func (c *Controller) SmartPlay() {
	cur, hasCurrent := c.queue.Current()
	switch {
	case !hasCurrent && !c.queue.IsEmpty():
		if t, ok := c.queue.StartOrNext(); ok {
			c.play(t)
		}
	case !hasCurrent:
		c.setStatus("Queue is empty")
	case c.engine.State() == player.Stopped:
		c.play(cur)
	default:
		c.engine.Toggle()
	}
}

// Next advances to the next pending track, or stops at the end of the
// queue.
func (c *Controller) Next() {
	t, ok := c.queue.Next()
	if !ok {
		c.waiting = nil
		c.engine.Stop()
		c.setStatus("Queue is empty")
		return
	}
	c.play(t)
}

// Previous goes back to the most recent history entry. With no history the
// current track returns to the front of pending and playback stops.
func (c *Controller) Previous() {
	t, ok := c.queue.Previous()
	if !ok {
		c.waiting = nil
		c.engine.Stop()
		c.setStatus("No previous track")
		return
	}
	c.play(t)
}

// JumpTo plays pending[i], dropping the tracks in front of it.
func (c *Controller) JumpTo(i int) {
	if t, ok := c.queue.JumpTo(i); ok {
		c.play(t)
	}
}

// RemoveAt removes pending[i].
func (c *Controller) RemoveAt(i int) bool {
	t, ok := c.queue.RemoveAt(i)
	if ok {
		c.setStatus("Removed %s", t.Title)
	}
	return ok
}

// MoveCursor lets the prefetcher follow the queue cursor.
func (c *Controller) MoveCursor(from, to int) {
	c.dl.OnCursorMoved(c.queue, from, to)
}

// Shuffle randomizes the pending tracks and prefetches the new front.
func (c *Controller) Shuffle() {
	if c.queue.Len() < 2 {
		return
	}
	c.queue.Shuffle()
	c.dl.OnPlaybackStarted(c.queue)
	c.setStatus("Shuffled %d tracks", c.queue.Len())
}

// Seek moves the playback position by delta. It is applied on the next Tick.
func (c *Controller) Seek(delta time.Duration) {
	c.engine.SeekRelative(delta)
}

// AdjustVolume changes the volume by delta percentage points.
func (c *Controller) AdjustVolume(delta int) {
	c.engine.SetVolume(c.engine.Volume() + delta)
}

// ClearHistory empties the history and saves it right away.
func (c *Controller) ClearHistory() {
	c.queue.ClearHistory()
	if err := c.store.SaveHistory(nil); err != nil && !errors.Is(err, store.ErrLocked) {
		c.setError("Could not save history: %v", err)
		return
	}
	c.setStatus("History cleared")
}

// Retry clears a failed download for t and fetches it again.
func (c *Controller) Retry(t queue.Track) {
	if t.IsLocal() {
		return
	}
	if c.TrackStatus(t) != download.Failed {
		c.setStatus("%s has not failed", t.Title)
		return
	}
	if err := c.dl.Retry(t); err != nil {
		c.setError("Retry %s: %v", t.Title, err)
		return
	}
	c.setStatus("Retrying %s", t.Title)
}

// RetryWaiting retries the track the user is waiting on.
func (c *Controller) RetryWaiting() bool {
	if c.waiting == nil {
		return false
	}
	c.Retry(*c.waiting)
	return true
}

// AddTracks appends tracks, dropping those longer than the configured
// maximum, and prefetches the front of the queue. It returns how many
// were added and how many were filtered out.
func (c *Controller) AddTracks(tracks []queue.Track) (added, filtered int) {
	limit := uint64(c.cfg.Library.MaxTrackDuration)
	keep := lo.Filter(tracks, func(t queue.Track, _ int) bool {
		return limit == 0 || t.IsLocal() || t.Duration <= limit
	})
	filtered = len(tracks) - len(keep)

	c.queue.AddMany(keep)
	if len(keep) > 0 {
		cur, ok := c.queue.Current()
		var curPtr *queue.Track
		if ok && c.engine.State() == player.Stopped && c.waiting == nil {
			curPtr = &cur
		}
		c.dl.OnBulkLoad(curPtr, c.queue)
	}

	switch {
	case filtered > 0:
		c.setStatus("Added %d tracks (%d longer than %s skipped)", len(keep), filtered,
			util.FormatSeconds(limit))
	case len(keep) == 1:
		c.setStatus("Added %s", keep[0].Title)
	default:
		c.setStatus("Added %d tracks", len(keep))
	}
	return len(keep), filtered
}

// play makes t the playing track, or the waiting track if its file still
// has to be fetched.
func (c *Controller) play(t queue.Track) {
	path, ready, err := c.dl.Ensure(t)
	if ready {
		c.start(t, path)
		return
	}

	c.engine.Stop()
	if t.IsLocal() {
		c.waiting = nil
		c.setError("Cannot open %s: %v", t.Title, err)
		return
	}

	c.waiting = &t
	switch {
	case err == nil, errors.Is(err, download.ErrInFlight):
		c.setStatus("Downloading %s...", t.Title)
	case errors.Is(err, download.ErrAtCapacity):
		c.setStatus("Waiting for a download slot: %s", t.Title)
	case errors.Is(err, download.ErrKnownFailure):
		reason, _ := c.dl.Registry().Failure(t.ID)
		c.setError("Download failed: %s (r to retry)", reason)
	default:
		c.setError("Cannot download %s: %v", t.Title, err)
	}
}

// start loads a ready file into the engine.
func (c *Controller) start(t queue.Track, path string) {
	c.waiting = nil
	if cur, ok := c.queue.Current(); ok && cur.ID == t.ID && cur.Title == t.Title {
		c.queue.SetCurrentFile(path)
	}

	hint := t.Length()
	if hint == 0 && t.IsLocal() {
		hint = player.ReadTags(path).Duration
	}
	if err := c.engine.LoadAndPlay(path, t.Title, hint); err != nil {
		util.Debug("play %s: %v", path, err)
		c.setError("Cannot play %s: %v", t.Title, err)
		return
	}
	c.ClearStatus()

	c.dl.OnPlaybackStarted(c.queue)
	if !t.IsLocal() && c.cfg.Downloads.RemoveAfterPlay > 0 {
		c.dl.ScheduleRemoval(t.ID, path, c.cfg.Downloads.RemoveAfterPlay)
	}
}

// HandleResult processes a finished download. Only a result for the
// waiting track touches playback.
func (c *Controller) HandleResult(res download.Result) {
	isWaiting := c.waiting != nil && c.waiting.ID == res.Track.ID
	switch {
	case res.Err != nil && isWaiting:
		c.setError("Download failed: %s: %v", res.Track.Title, res.Err)
	case res.Err != nil:
		util.Debug("background download %s failed: %v", res.Track.ID, res.Err)
	case isWaiting:
		c.start(*c.waiting, res.Path)
	}

	// a slot was freed; the waiting track may have been turned away earlier
	c.dl.RetryPending(c.waiting)
}

// Tick runs once per frame: it applies pending seeks and advances when the
// current track has played out.
func (c *Controller) Tick() {
	if c.engine.HasPendingSeek() {
		if err := c.engine.ApplySeek(); err != nil {
			c.setError("Seek failed: %v", err)
		}
	}
	if c.engine.IsFinished() {
		c.Next()
	}
}

// SaveCopy copies the playing file into dir under its title.
func (c *Controller) SaveCopy(dir string) (string, error) {
	src := c.engine.Source()
	if src == "" {
		return "", errors.New("nothing is playing")
	}
	dest, err := ytdlp.SaveCopy(src, c.engine.Title(), dir)
	if err != nil {
		c.setError("Save failed: %v", err)
		return "", err
	}
	c.setStatus("Saved %s", dest)
	return dest, nil
}

// Library is what LoadLibrary reads from disk.
type Library struct {
	History []queue.Track
	Queue   store.Snapshot
}

// LoadLibrary reads history and the queue snapshot. It only touches the
// store and is safe to call off the Update loop.
func (c *Controller) LoadLibrary() Library {
	return Library{History: c.store.LoadHistory(), Queue: c.store.LoadQueue()}
}

// ApplyLibrary installs a loaded library and prefetches the restored queue.
// Tracks queued or played before it arrived are kept: new pending tracks go
// after the restored ones and a current track keeps playing.
func (c *Controller) ApplyLibrary(lib Library) {
	pending := lib.Queue.Tracks
	current := lib.Queue.CurrentTrack
	prefetchFrom := current
	if cur, ok := c.queue.Current(); ok {
		if current != nil {
			pending = slices.Concat([]queue.Track{*current}, pending)
		}
		current = &cur
		prefetchFrom = nil
	}

	c.queue.SetHistory(slices.Concat(lib.History, c.queue.History()))
	c.queue.Restore(slices.Concat(pending, c.queue.Pending()), current)
	if c.store.ReadOnly() {
		c.setStatus("Another ytmp is running; the queue will not be saved")
	}
	if c.queue.IsEmpty() && prefetchFrom == nil {
		return
	}
	c.dl.OnBulkLoad(prefetchFrom, c.queue)
}

// QueueSaver snapshots the queue and returns a func that writes it. The
// func may run on any goroutine.
func (c *Controller) QueueSaver() func() error {
	pending := c.queue.Pending()
	var current *queue.Track
	if cur, ok := c.queue.Current(); ok {
		current = &cur
	}
	return func() error {
		err := c.store.SaveQueue(pending, current)
		if errors.Is(err, store.ErrLocked) {
			return nil
		}
		return err
	}
}

// Shutdown cancels background downloads, stops playback and saves history
// and the queue.
func (c *Controller) Shutdown() error {
	c.dl.Shutdown(c.cfg.Downloads.ShutdownGrace)
	c.engine.Stop()

	c.queue.LimitHistory(c.cfg.Library.HistoryLimit)
	var errs []error
	if err := c.store.SaveHistory(c.queue.History()); err != nil && !errors.Is(err, store.ErrLocked) {
		errs = append(errs, err)
	}
	if err := c.QueueSaver()(); err != nil {
		errs = append(errs, err)
	}
	if err := c.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("releasing library lock: %w", err))
	}
	return errors.Join(errs...)
}
