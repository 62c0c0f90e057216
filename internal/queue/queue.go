package queue

import (
	"math/rand"
	"time"
)

// Track represents a single playable item. It is a small value and is
// copied freely; only LocalFile is ever filled in after construction.
type Track struct {
	ID        string `json:"video_id"`
	Title     string `json:"title"`
	Duration  uint64 `json:"duration"` // seconds, 0 when unknown
	Uploader  string `json:"uploader"`
	URL       string `json:"url"`
	LocalFile string `json:"local_file,omitempty"`
}

// Length returns the duration hint as a time.Duration.
func (t Track) Length() time.Duration {
	return time.Duration(t.Duration) * time.Second
}

// IsLocal reports whether the track plays straight from disk without a fetch.
func (t Track) IsLocal() bool {
	return t.URL == "" && t.LocalFile != ""
}

// Queue holds the pending tracks, the current track and the play history.
// It is only mutated from Bubbletea's single-threaded Update loop.
type Queue struct {
	pending []Track
	current *Track
	history []Track // oldest first
}

// New creates a Queue with the given pending tracks.
func New(tracks []Track) *Queue {
	q := &Queue{}
	q.AddMany(tracks)
	return q
}

// Add appends a track to the back of the pending list.
func (q *Queue) Add(t Track) {
	q.pending = append(q.pending, t)
}

// AddMany appends tracks to the back of the pending list in order.
func (q *Queue) AddMany(tracks []Track) {
	q.pending = append(q.pending, tracks...)
}

// Next moves the current track into history and pops the front of pending.
// When pending is empty the current slot is cleared and ok is false.
func (q *Queue) Next() (Track, bool) {
	if q.current != nil {
		q.history = append(q.history, *q.current)
		q.current = nil
	}
	if len(q.pending) == 0 {
		return Track{}, false
	}
	t := q.pending[0]
	q.pending = q.pending[1:]
	q.current = &t
	return t, true
}

// Previous pushes the current track back onto the front of pending and
// restores the most recent history entry as current.
func (q *Queue) Previous() (Track, bool) {
	if q.current != nil {
		q.pending = append([]Track{*q.current}, q.pending...)
		q.current = nil
	}
	if len(q.history) == 0 {
		return Track{}, false
	}
	last := len(q.history) - 1
	t := q.history[last]
	q.history = q.history[:last]
	q.current = &t
	return t, true
}

// StartOrNext starts the first pending track without recording history when
// nothing is current. Otherwise it behaves like Next.
func (q *Queue) StartOrNext() (Track, bool) {
	if q.current == nil && len(q.pending) > 0 {
		t := q.pending[0]
		q.pending = q.pending[1:]
		q.current = &t
		return t, true
	}
	return q.Next()
}

// JumpTo makes pending[i] current. The tracks in front of it are dropped and
// the old current track goes to history. Out of range is a no-op.
func (q *Queue) JumpTo(i int) (Track, bool) {
	if i < 0 || i >= len(q.pending) {
		return Track{}, false
	}
	q.pending = q.pending[i:]
	return q.Next()
}

// RemoveAt removes a pending track. Out of range is a no-op.
func (q *Queue) RemoveAt(i int) (Track, bool) {
	if i < 0 || i >= len(q.pending) {
		return Track{}, false
	}
	t := q.pending[i]
	q.pending = append(q.pending[:i:i], q.pending[i+1:]...)
	return t, true
}

// Restore replaces pending and current, leaving history untouched.
func (q *Queue) Restore(pending []Track, current *Track) {
	q.pending = append([]Track(nil), pending...)
	q.current = nil
	if current != nil {
		c := *current
		q.current = &c
	}
}

// SetHistory replaces the history list.
func (q *Queue) SetHistory(tracks []Track) {
	q.history = append([]Track(nil), tracks...)
}

// LimitHistory trims the oldest history entries down to max.
func (q *Queue) LimitHistory(max int) {
	if max < 0 {
		max = 0
	}
	if over := len(q.history) - max; over > 0 {
		q.history = append([]Track(nil), q.history[over:]...)
	}
}

// ClearHistory empties the history list.
func (q *Queue) ClearHistory() {
	q.history = nil
}

// Shuffle randomizes the order of the pending tracks (Fisher-Yates).
func (q *Queue) Shuffle() {
	for i := len(q.pending) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		q.pending[i], q.pending[j] = q.pending[j], q.pending[i]
	}
}

// Current returns the current track, if any.
func (q *Queue) Current() (Track, bool) {
	if q.current == nil {
		return Track{}, false
	}
	return *q.current, true
}

// SetCurrentFile attaches a resolved local file to the current track.
func (q *Queue) SetCurrentFile(path string) {
	if q.current != nil {
		q.current.LocalFile = path
	}
}

// Peek returns the front of pending without removing it.
func (q *Queue) Peek() (Track, bool) {
	if len(q.pending) == 0 {
		return Track{}, false
	}
	return q.pending[0], true
}

// At returns the pending track at index i.
func (q *Queue) At(i int) (Track, bool) {
	if i < 0 || i >= len(q.pending) {
		return Track{}, false
	}
	return q.pending[i], true
}

// Slice returns up to n pending tracks starting at start. The returned
// slice shares storage with the queue and must not be modified.
func (q *Queue) Slice(start, n int) []Track {
	if start < 0 {
		start = 0
	}
	if start >= len(q.pending) || n <= 0 {
		return nil
	}
	end := min(start+n, len(q.pending))
	return q.pending[start:end:end]
}

// Len returns the number of pending tracks. Current and history are not counted.
func (q *Queue) Len() int {
	return len(q.pending)
}

// IsEmpty reports whether nothing is pending.
func (q *Queue) IsEmpty() bool {
	return len(q.pending) == 0
}

// Pending returns a copy of the pending list.
func (q *Queue) Pending() []Track {
	return append([]Track(nil), q.pending...)
}

// History returns a copy of the history list, oldest first.
func (q *Queue) History() []Track {
	return append([]Track(nil), q.history...)
}

// HistoryLen returns the number of history entries.
func (q *Queue) HistoryLen() int {
	return len(q.history)
}

// RecentHistory returns up to n of the most recent history entries, newest
// first. The result is a fresh slice.
func (q *Queue) RecentHistory(n int) []Track {
	if n > len(q.history) {
		n = len(q.history)
	}
	out := make([]Track, 0, n)
	for i := len(q.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, q.history[i])
	}
	return out
}
