// Package store persists listening history and the queue snapshot as JSON
// files in the config directory.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/olivier-w/ytmp/internal/config"
	"github.com/olivier-w/ytmp/internal/queue"
	"github.com/olivier-w/ytmp/internal/util"
)

const (
	historyFile = "history.json"
	queueFile   = "queue.json"
	lockFile    = ".lock"
)

// ErrLocked is returned by saves when another instance owns the directory.
var ErrLocked = errors.New("another ytmp instance owns the library; changes will not be saved")

// Snapshot is the on-disk shape of the queue.
type Snapshot struct {
	Tracks       []queue.Track `json:"tracks"`
	CurrentTrack *queue.Track  `json:"current_track"`
}

// Store reads and writes the library files in one directory.
type Store struct {
	dir  string
	lock *flock.Flock

	mu       sync.Mutex
	readOnly bool
}

// Open prepares dir for use. If another process holds the directory lock
// the Store is still returned but only reads; ReadOnly reports this.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	s := &Store{dir: dir, lock: flock.New(filepath.Join(dir, lockFile))}

	locked, err := s.lock.TryLock()
	if err != nil {
		util.Debug("store lock: %v", err)
	}
	if !locked {
		s.readOnly = true
		util.Debug("store %s is locked by another process, running read-only", dir)
	}
	return s, nil
}

// Dir returns the directory the store lives in.
func (s *Store) Dir() string {
	return s.dir
}

// ReadOnly reports whether saves are disabled.
func (s *Store) ReadOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readOnly
}

// LoadHistory returns the saved history, oldest first. A missing or
// unreadable file yields an empty history.
func (s *Store) LoadHistory() []queue.Track {
	var tracks []queue.Track
	if !s.load(historyFile, &tracks) {
		return nil
	}
	return tracks
}

// SaveHistory writes tracks as the complete history.
func (s *Store) SaveHistory(tracks []queue.Track) error {
	if tracks == nil {
		tracks = []queue.Track{}
	}
	return s.save(historyFile, tracks)
}

// LoadQueue returns the saved queue snapshot. A missing or unreadable file
// yields an empty snapshot.
func (s *Store) LoadQueue() Snapshot {
	var snap Snapshot
	if !s.load(queueFile, &snap) {
		return Snapshot{}
	}
	return snap
}

// SaveQueue writes the pending list and current track.
func (s *Store) SaveQueue(pending []queue.Track, current *queue.Track) error {
	if pending == nil {
		pending = []queue.Track{}
	}
	return s.save(queueFile, Snapshot{Tracks: pending, CurrentTrack: current})
}

// Close releases the directory lock.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return nil
	}
	s.readOnly = true
	return s.lock.Unlock()
}

func (s *Store) load(name string, v any) bool {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			util.Debug("read %s: %v", path, err)
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		util.Debug("parse %s: %v", path, err)
		return false
	}
	return true
}

func (s *Store) save(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return ErrLocked
	}
	if err := config.WriteFileAtomic(filepath.Join(s.dir, name), data); err != nil {
		return fmt.Errorf("saving %s: %w", name, err)
	}
	return nil
}
