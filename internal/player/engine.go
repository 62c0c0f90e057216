package player

import (
	"fmt"
	"io"
	"path/filepath"
	"time"
)

// State is the playback state reported to the UI.
type State int

const (
	Stopped State = iota
	Loading
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// phase carries exactly the timing fields that are valid in each state.
type phase interface {
	state() State
}

type stoppedPhase struct{}

type loadingPhase struct{}

type playingPhase struct {
	start     time.Time
	pausedFor time.Duration
}

type pausedPhase struct {
	start     time.Time
	pausedFor time.Duration
	since     time.Time
}

func (stoppedPhase) state() State { return Stopped }
func (loadingPhase) state() State { return Loading }
func (playingPhase) state() State { return Playing }
func (pausedPhase) state() State  { return Paused }

// DefaultFinishGuard is the minimum elapsed time before an empty sink is
// trusted to mean the track ended.
const DefaultFinishGuard = 2 * time.Second

// Engine drives a single Sink. It is owned by the Update loop and is not
// safe for concurrent use.
type Engine struct {
	sink   Sink
	decode Decoder
	now    func() time.Time
	guard  time.Duration

	phase    phase
	stream   Stream
	source   string
	title    string
	duration time.Duration
	volume   int

	seekPending bool
	seekTarget  time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithFinishGuard overrides DefaultFinishGuard.
func WithFinishGuard(d time.Duration) Option {
	return func(e *Engine) { e.guard = d }
}

// WithDecoder replaces OpenFile.
func WithDecoder(d Decoder) Option {
	return func(e *Engine) { e.decode = d }
}

// NewEngine returns a stopped Engine at full volume.
func NewEngine(sink Sink, opts ...Option) *Engine {
	if sink == nil {
		sink = NullSink{}
	}
	e := &Engine{
		sink:   sink,
		decode: OpenFile,
		now:    time.Now,
		guard:  DefaultFinishGuard,
		phase:  stoppedPhase{},
		volume: 100,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sink.SetVolume(1)
	return e
}

// LoadAndPlay decodes source and starts playing it from the beginning.
// hint is preferred over the decoder's length when positive. On failure
// the engine is left Stopped.
func (e *Engine) LoadAndPlay(source, title string, hint time.Duration) error {
	e.phase = loadingPhase{}
	e.release()
	e.source, e.title, e.duration = source, title, 0

	stream, err := e.open(source)
	if err != nil {
		e.phase = stoppedPhase{}
		return err
	}
	if err := e.attach(stream); err != nil {
		stream.Close()
		e.phase = stoppedPhase{}
		return err
	}

	e.stream = stream
	e.duration = hint
	if e.duration <= 0 {
		e.duration = streamDuration(stream)
	}
	e.sink.Play()
	e.phase = playingPhase{start: e.now()}
	return nil
}

// open decodes source, converting a decoder panic into an error.
func (e *Engine) open(source string) (s Stream, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("decoding %s: panic: %v", filepath.Base(source), r)
		}
	}()
	return e.decode(source)
}

func (e *Engine) attach(s Stream) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("starting playback: panic: %v", r)
		}
	}()
	if err := e.sink.Append(s); err != nil {
		return fmt.Errorf("starting playback: %w", err)
	}
	return nil
}

// release stops the sink and closes the current stream.
func (e *Engine) release() {
	e.sink.Stop()
	if e.stream != nil {
		e.stream.Close()
		e.stream = nil
	}
	e.seekPending = false
}

// Pause pauses playback. It does nothing unless the engine is Playing.
func (e *Engine) Pause() {
	p, ok := e.phase.(playingPhase)
	if !ok {
		return
	}
	e.sink.Pause()
	e.phase = pausedPhase{start: p.start, pausedFor: p.pausedFor, since: e.now()}
}

// Resume continues a paused track.
func (e *Engine) Resume() {
	p, ok := e.phase.(pausedPhase)
	if !ok {
		return
	}
	e.sink.Play()
	e.phase = playingPhase{start: p.start, pausedFor: p.pausedFor + e.now().Sub(p.since)}
}

// Toggle switches between Playing and Paused.
func (e *Engine) Toggle() {
	switch e.phase.(type) {
	case playingPhase:
		e.Pause()
	case pausedPhase:
		e.Resume()
	}
}

// Stop halts playback and clears all timing.
func (e *Engine) Stop() {
	e.release()
	e.phase = stoppedPhase{}
	e.source, e.title, e.duration = "", "", 0
}

// Elapsed returns how much of the track has played.
func (e *Engine) Elapsed() time.Duration {
	var d time.Duration
	switch p := e.phase.(type) {
	case playingPhase:
		d = e.now().Sub(p.start) - p.pausedFor
	case pausedPhase:
		d = p.since.Sub(p.start) - p.pausedFor
	}
	return max(d, 0)
}

// Position is Elapsed, or the target of a seek that has not been applied yet.
func (e *Engine) Position() time.Duration {
	if e.seekPending {
		return e.seekTarget
	}
	return e.Elapsed()
}

// Seek records a seek to target, clamped to [0, duration]. It takes effect
// on ApplySeek. Ignored unless a track is Playing or Paused.
func (e *Engine) Seek(target time.Duration) {
	switch e.phase.(type) {
	case playingPhase, pausedPhase:
	default:
		return
	}
	target = max(target, 0)
	if e.duration > 0 {
		target = min(target, e.duration)
	}
	e.seekTarget = target
	e.seekPending = true
}

// SeekRelative seeks by delta from the current position, accumulating
// with any seek not yet applied.
func (e *Engine) SeekRelative(delta time.Duration) {
	e.Seek(e.Position() + delta)
}

// HasPendingSeek reports whether ApplySeek has work to do.
func (e *Engine) HasPendingSeek() bool {
	return e.seekPending
}

// ApplySeek moves playback to the pending seek target. The decoded stream
// is repositioned when it supports seeking. Otherwise the source is
// reloaded from the start and only the clock is shifted.
func (e *Engine) ApplySeek() error {
	if !e.seekPending {
		return nil
	}
	target := e.seekTarget
	e.seekPending = false

	_, wasPaused := e.phase.(pausedPhase)
	switch e.phase.(type) {
	case playingPhase, pausedPhase:
	default:
		return nil
	}

	if err := e.reposition(target); err != nil {
		e.release()
		e.phase = stoppedPhase{}
		return err
	}

	now := e.now()
	start := now.Add(-target)
	if wasPaused {
		e.sink.Pause()
		e.phase = pausedPhase{start: start, since: now}
		return nil
	}
	e.sink.Play()
	e.phase = playingPhase{start: start}
	return nil
}

func (e *Engine) reposition(target time.Duration) error {
	if e.stream != nil {
		// the sink reads the stream from its own goroutine until stopped
		e.sink.Stop()
		offset := byteOffset(target, e.stream.Length())
		if _, err := e.stream.Seek(offset, io.SeekStart); err == nil {
			return e.attach(e.stream)
		}
	}

	// reload from the beginning; audio restarts but the clock reflects the target
	source := e.source
	e.release()
	stream, err := e.open(source)
	if err != nil {
		return err
	}
	if err := e.attach(stream); err != nil {
		stream.Close()
		return err
	}
	e.stream = stream
	return nil
}

// IsFinished reports whether the current track has played out. An empty
// sink only counts once the engine is Playing and past the finish guard.
func (e *Engine) IsFinished() bool {
	p, ok := e.phase.(playingPhase)
	if !ok || p.start.IsZero() {
		return false
	}
	if !e.sink.IsEmpty() {
		return false
	}
	return e.Elapsed() >= e.guard
}

// SetVolume sets the volume percentage, clamped to 0..100.
func (e *Engine) SetVolume(v int) {
	e.volume = max(0, min(v, 100))
	e.sink.SetVolume(float64(e.volume) / 100)
}

// Volume returns the volume percentage last set.
func (e *Engine) Volume() int {
	return e.volume
}

// State returns the current playback state.
func (e *Engine) State() State {
	return e.phase.state()
}

// Duration returns the length of the loaded track, or 0 if unknown.
func (e *Engine) Duration() time.Duration {
	return e.duration
}

// Title returns the title passed to LoadAndPlay.
func (e *Engine) Title() string {
	return e.title
}

// Source returns the path passed to LoadAndPlay.
func (e *Engine) Source() string {
	return e.source
}

func streamDuration(s Stream) time.Duration {
	n := s.Length()
	if n <= 0 {
		return 0
	}
	return time.Duration(float64(n) / bytesPerSecond * float64(time.Second))
}

// byteOffset converts a position to a frame-aligned byte offset.
func byteOffset(pos time.Duration, length int64) int64 {
	off := int64(pos.Seconds() * bytesPerSecond)
	if length > 0 {
		off = min(off, length)
	}
	off = max(off, 0)
	return off - off%outputFrameSize
}
