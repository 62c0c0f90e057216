package player

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

// Sink is the live audio output. It holds at most one stream at a time.
type Sink interface {
	Append(r io.Reader) error
	Play()
	Pause()
	Stop()
	SetVolume(v float64) // 0.0 to 1.0
	IsEmpty() bool
}

var (
	globalOtoCtx *oto.Context
	otoOnce      sync.Once
	otoInitErr   error
)

func initOto() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   outputRate,
			ChannelCount: outputChannels,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		globalOtoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
		}
	})
	return globalOtoCtx, otoInitErr
}

// OpenSink opens the system audio device. Callers fall back to NullSink
// when it fails.
func OpenSink() (Sink, error) {
	ctx, err := initOto()
	if err != nil {
		return nil, err
	}
	return &otoSink{ctx: ctx, volume: 1}, nil
}

// eofReader records when the wrapped reader has been drained.
type eofReader struct {
	r   io.Reader
	eof atomic.Bool
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil {
		e.eof.Store(true)
	}
	return n, err
}

type otoSink struct {
	ctx    *oto.Context
	player *oto.Player
	src    *eofReader
	volume float64
}

func (s *otoSink) Append(r io.Reader) error {
	s.Stop()
	s.src = &eofReader{r: r}
	s.player = s.ctx.NewPlayer(s.src)
	s.player.SetVolume(s.volume)
	return nil
}

func (s *otoSink) Play() {
	if s.player != nil {
		s.player.Play()
	}
}

func (s *otoSink) Pause() {
	if s.player != nil {
		s.player.Pause()
	}
}

func (s *otoSink) Stop() {
	if s.player == nil {
		return
	}
	s.player.Pause()
	_ = s.player.Close()
	s.player = nil
	s.src = nil
}

func (s *otoSink) SetVolume(v float64) {
	s.volume = max(0, min(v, 1))
	if s.player != nil {
		s.player.SetVolume(s.volume)
	}
}

// IsEmpty reports true once the stream hit EOF and oto has played out its
// buffer, or when nothing was appended.
func (s *otoSink) IsEmpty() bool {
	if s.player == nil {
		return true
	}
	return s.src.eof.Load() && s.player.BufferedSize() == 0 && !s.player.IsPlaying()
}

// NullSink is used when no output device is available. Every call is a
// no-op and it never reports empty, so tracks do not auto-advance in silence.
type NullSink struct{}

func (NullSink) Append(io.Reader) error { return nil }
func (NullSink) Play()                  {}
func (NullSink) Pause()                 {}
func (NullSink) Stop()                  {}
func (NullSink) SetVolume(float64)      {}
func (NullSink) IsEmpty() bool          { return false }
