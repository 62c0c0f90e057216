// Package download schedules background audio fetches with bounded
// concurrency and keeps track of what is cached, in flight and failed.
package download

import (
	"errors"
	"path/filepath"
	"sync"
)

// Status is the download state of one track, for display.
type Status int

const (
	NotFetched Status = iota
	Fetching
	Cached
	Failed
)

func (s Status) String() string {
	switch s {
	case Fetching:
		return "fetching"
	case Cached:
		return "cached"
	case Failed:
		return "failed"
	default:
		return "not fetched"
	}
}

// Reasons TryReserve turns a fetch down.
var (
	ErrAtCapacity   = errors.New("too many downloads in progress")
	ErrCached       = errors.New("already downloaded")
	ErrKnownFailure = errors.New("previous download failed")
	ErrInFlight     = errors.New("download already in progress")
)

type cacheEntry struct {
	path string
	size int64
}

// Stats summarizes the registry for display.
type Stats struct {
	Active int
	Limit  int
	Cached int
	Failed int
	Bytes  int64
}

// Registry holds the process-wide download bookkeeping shared between the
// Update loop and fetch goroutines. Each map has its own lock. When two are
// held, flightMu is always taken first.
type Registry struct {
	limit int

	flightMu sync.Mutex
	inFlight map[string]struct{}
	active   int

	cacheMu sync.RWMutex
	cache   map[string]cacheEntry
	bytes   int64

	failMu sync.RWMutex
	failed map[string]string
}

// NewRegistry returns an empty Registry allowing limit concurrent fetches.
func NewRegistry(limit int) *Registry {
	return &Registry{
		limit:    max(limit, 1),
		inFlight: make(map[string]struct{}),
		cache:    make(map[string]cacheEntry),
		failed:   make(map[string]string),
	}
}

// TryReserve marks id as in flight. It fails without side effects when the
// ceiling is reached or id is cached, failed or already in flight.
func (r *Registry) TryReserve(id string) error {
	r.flightMu.Lock()
	defer r.flightMu.Unlock()

	if r.active >= r.limit {
		return ErrAtCapacity
	}
	if _, ok := r.IsCached(id); ok {
		return ErrCached
	}
	if _, ok := r.Failure(id); ok {
		return ErrKnownFailure
	}
	if _, ok := r.inFlight[id]; ok {
		return ErrInFlight
	}
	r.inFlight[id] = struct{}{}
	r.active++
	return nil
}

// Release clears the in-flight mark for id and frees its slot.
func (r *Registry) Release(id string) {
	r.flightMu.Lock()
	defer r.flightMu.Unlock()
	if _, ok := r.inFlight[id]; ok {
		delete(r.inFlight, id)
		r.active--
	}
}

// RecordSuccess caches path for id and forgets any earlier failure.
func (r *Registry) RecordSuccess(id, path string, size int64) {
	r.cacheMu.Lock()
	if old, ok := r.cache[id]; ok {
		r.bytes -= old.size
	}
	r.cache[id] = cacheEntry{path: filepath.Clean(path), size: size}
	r.bytes += size
	r.cacheMu.Unlock()

	r.ClearFailure(id)
}

// RecordFailure remembers why id could not be fetched.
func (r *Registry) RecordFailure(id, reason string) {
	r.failMu.Lock()
	defer r.failMu.Unlock()
	r.failed[id] = reason
}

// ClearFailure forgets a recorded failure so id can be requested again.
func (r *Registry) ClearFailure(id string) {
	r.failMu.Lock()
	defer r.failMu.Unlock()
	delete(r.failed, id)
}

// IsCached returns the cached path for id.
func (r *Registry) IsCached(id string) (string, bool) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	e, ok := r.cache[id]
	return e.path, ok
}

// Failure returns the recorded failure reason for id.
func (r *Registry) Failure(id string) (string, bool) {
	r.failMu.RLock()
	defer r.failMu.RUnlock()
	reason, ok := r.failed[id]
	return reason, ok
}

// IsInFlight reports whether a fetch for id is running.
func (r *Registry) IsInFlight(id string) bool {
	r.flightMu.Lock()
	defer r.flightMu.Unlock()
	_, ok := r.inFlight[id]
	return ok
}

// Evict drops the cache entry for id.
func (r *Registry) Evict(id string) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if e, ok := r.cache[id]; ok {
		r.bytes -= e.size
		delete(r.cache, id)
	}
}

// EvictPath drops whichever cache entry points at path.
func (r *Registry) EvictPath(path string) (string, bool) {
	path = filepath.Clean(path)
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	for id, e := range r.cache {
		if e.path == path {
			r.bytes -= e.size
			delete(r.cache, id)
			return id, true
		}
	}
	return "", false
}

// Status reports the display state of id.
func (r *Registry) Status(id string) Status {
	if r.IsInFlight(id) {
		return Fetching
	}
	if _, ok := r.IsCached(id); ok {
		return Cached
	}
	if _, ok := r.Failure(id); ok {
		return Failed
	}
	return NotFetched
}

// Active returns the number of fetches in flight.
func (r *Registry) Active() int {
	r.flightMu.Lock()
	defer r.flightMu.Unlock()
	return r.active
}

// Limit returns the concurrency ceiling.
func (r *Registry) Limit() int {
	return r.limit
}

// Stats returns a snapshot of the registry counters.
func (r *Registry) Stats() Stats {
	s := Stats{Active: r.Active(), Limit: r.limit}

	r.cacheMu.RLock()
	s.Cached = len(r.cache)
	s.Bytes = r.bytes
	r.cacheMu.RUnlock()

	r.failMu.RLock()
	s.Failed = len(r.failed)
	r.failMu.RUnlock()
	return s
}
