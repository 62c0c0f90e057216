package player

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/h2non/filetype"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// ErrUnsupportedFormat is returned when no decoder handles a file.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Stream is decoded 44.1 kHz stereo s16le PCM ready for the sink.
type Stream interface {
	io.ReadSeeker
	io.Closer
	// Length is the total size in bytes, or <= 0 when unknown.
	Length() int64
}

// Decoder opens a local audio file as a Stream.
type Decoder func(path string) (Stream, error)

// source is a format decoder producing 16-bit LE interleaved PCM at its
// native rate and channel count.
type source interface {
	io.ReadSeeker
	Length() int64
	SampleRate() int
	ChannelCount() int
}

// OpenFile detects the format of path and returns a normalized Stream.
func OpenFile(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	src, err := newSource(f, formatOf(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}

	norm, err := newNormalizer(src)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return &fileStream{normalizer: norm, file: f}, nil
}

type fileStream struct {
	*normalizer
	file *os.File
}

func (s *fileStream) Close() error { return s.file.Close() }

// formatOf returns a lower-case extension for f. Files with an unknown
// extension are sniffed by their magic bytes.
func formatOf(f *os.File) string {
	ext := strings.ToLower(filepath.Ext(f.Name()))
	switch ext {
	case ".mp3", ".wav", ".flac", ".ogg":
		return ext
	}

	head := make([]byte, 261)
	n, _ := io.ReadFull(f, head)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return ext
	}
	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		return ext
	}
	return "." + kind.Extension
}

func newSource(f *os.File, ext string) (source, error) {
	switch ext {
	case ".mp3":
		return newMP3Source(f)
	case ".wav":
		return newWAVSource(f)
	case ".flac":
		return newFLACSource(f)
	case ".ogg", ".oga":
		return newOGGSource(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// pcmCursor tracks the output position of a converting decoder and holds
// converted bytes that did not fit in the caller's buffer.
type pcmCursor struct {
	buf   []byte
	pos   int64
	total int64
}

func (c *pcmCursor) drain(p []byte) (int, bool) {
	if len(c.buf) == 0 {
		return 0, false
	}
	n := copy(p, c.buf)
	c.buf = c.buf[n:]
	c.pos += int64(n)
	return n, true
}

func (c *pcmCursor) emit(p, raw []byte) int {
	n := copy(p, raw)
	if n < len(raw) {
		c.buf = raw[n:]
	}
	c.pos += int64(n)
	return n
}

// target resolves a Seek request against the cursor, clamped to [0, total].
func (c *pcmCursor) target(offset int64, whence int) int64 {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = c.pos + offset
	case io.SeekEnd:
		pos = c.total + offset
	}
	return max(0, min(pos, c.total))
}

func (c *pcmCursor) moveTo(pos int64) {
	c.buf = nil
	c.pos = pos
}

func clampPCM16(v int) int16 {
	return int16(max(-32768, min(v, 32767)))
}

// mp3

type mp3Source struct {
	dec *mp3.Decoder
}

func newMP3Source(f *os.File) (*mp3Source, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	return &mp3Source{dec: dec}, nil
}

func (d *mp3Source) Read(p []byte) (int, error) { return d.dec.Read(p) }
func (d *mp3Source) Seek(offset int64, whence int) (int64, error) {
	return d.dec.Seek(offset, whence)
}
func (d *mp3Source) Length() int64     { return d.dec.Length() }
func (d *mp3Source) SampleRate() int   { return d.dec.SampleRate() }
func (d *mp3Source) ChannelCount() int { return 2 }

// wav

type wavSource struct {
	pcmCursor
	file      *os.File
	pcmStart  int64
	rate      int
	channels  int
	srcDepth  int
	srcFrame  int64
	outFrame  int64
	readBlock []byte
}

func newWAVSource(f *os.File) (*wavSource, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	depth := int(dec.BitDepth)
	switch depth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit WAV", ErrUnsupportedFormat, depth)
	}

	start, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("locating WAV PCM data: %w", err)
	}

	srcFrame := int64(channels * depth / 8)
	outFrame := int64(channels * 2)
	return &wavSource{
		pcmCursor: pcmCursor{total: dec.PCMLen() / srcFrame * outFrame},
		file:      f,
		pcmStart:  start,
		rate:      int(dec.SampleRate),
		channels:  channels,
		srcDepth:  depth,
		srcFrame:  srcFrame,
		outFrame:  outFrame,
	}, nil
}

func (d *wavSource) Read(p []byte) (int, error) {
	if n, ok := d.drain(p); ok {
		return n, nil
	}
	if d.pos >= d.total {
		return 0, io.EOF
	}

	width := d.srcDepth / 8
	samples := max(len(p)/2, 1)
	if cap(d.readBlock) < samples*width {
		d.readBlock = make([]byte, samples*width)
	}
	block := d.readBlock[:samples*width]
	n, err := io.ReadFull(d.file, block)
	read := n / width
	if read == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}

	raw := make([]byte, read*2)
	for i := 0; i < read; i++ {
		b := block[i*width:]
		var v int
		switch d.srcDepth {
		case 8:
			v = (int(b[0]) - 128) << 8
		case 16:
			v = int(int16(binary.LittleEndian.Uint16(b)))
		case 24:
			s := int32(b[0]) | int32(b[1])<<8 | int32(int8(b[2]))<<16
			v = int(s >> 8)
		case 32:
			v = int(int32(binary.LittleEndian.Uint32(b)) >> 16)
		}
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(clampPCM16(v)))
	}

	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	return d.emit(p, raw), err
}

func (d *wavSource) Seek(offset int64, whence int) (int64, error) {
	pos := d.target(offset, whence)
	frame := pos / d.outFrame
	if _, err := d.file.Seek(d.pcmStart+frame*d.srcFrame, io.SeekStart); err != nil {
		return d.pos, err
	}
	d.moveTo(frame * d.outFrame)
	return d.pos, nil
}

func (d *wavSource) Length() int64     { return d.total }
func (d *wavSource) SampleRate() int   { return d.rate }
func (d *wavSource) ChannelCount() int { return d.channels }

// flac

type flacSource struct {
	pcmCursor
	stream   *flac.Stream
	rate     int
	channels int
	bps      int
}

func newFLACSource(f *os.File) (*flacSource, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}
	info := stream.Info
	channels := int(info.NChannels)
	return &flacSource{
		pcmCursor: pcmCursor{total: int64(info.NSamples) * int64(channels) * 2},
		stream:    stream,
		rate:      int(info.SampleRate),
		channels:  channels,
		bps:       int(info.BitsPerSample),
	}, nil
}

func (d *flacSource) Read(p []byte) (int, error) {
	if n, ok := d.drain(p); ok {
		return n, nil
	}

	frame, err := d.stream.ParseNext()
	if err != nil {
		return 0, err
	}

	count := int(frame.Subframes[0].NSamples)
	raw := make([]byte, count*d.channels*2)
	for i := 0; i < count; i++ {
		for ch := 0; ch < d.channels; ch++ {
			v := int(frame.Subframes[ch].Samples[i])
			if d.bps > 16 {
				v >>= d.bps - 16
			} else if d.bps < 16 {
				v <<= 16 - d.bps
			}
			binary.LittleEndian.PutUint16(raw[(i*d.channels+ch)*2:], uint16(clampPCM16(v)))
		}
	}
	return d.emit(p, raw), nil
}

func (d *flacSource) Seek(offset int64, whence int) (int64, error) {
	pos := d.target(offset, whence)
	frameSize := int64(d.channels) * 2
	sample, err := d.stream.Seek(uint64(pos / frameSize))
	if err != nil {
		return d.pos, err
	}
	d.moveTo(int64(sample) * frameSize)
	return d.pos, nil
}

func (d *flacSource) Length() int64     { return d.total }
func (d *flacSource) SampleRate() int   { return d.rate }
func (d *flacSource) ChannelCount() int { return d.channels }

// ogg vorbis

type oggSource struct {
	pcmCursor
	reader  *oggvorbis.Reader
	samples []float32
}

func newOGGSource(f *os.File) (*oggSource, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}
	return &oggSource{
		pcmCursor: pcmCursor{total: reader.Length() * int64(reader.Channels()) * 2},
		reader:    reader,
	}, nil
}

func (d *oggSource) Read(p []byte) (int, error) {
	if n, ok := d.drain(p); ok {
		return n, nil
	}

	want := max(len(p)/2, d.reader.Channels())
	if cap(d.samples) < want {
		d.samples = make([]float32, want)
	}
	n, err := d.reader.Read(d.samples[:want])
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	raw := make([]byte, n*2)
	for i, s := range d.samples[:n] {
		s = max(-1, min(s, 1))
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(int16(s*32767)))
	}
	if err == io.EOF {
		err = nil
	}
	return d.emit(p, raw), err
}

func (d *oggSource) Seek(offset int64, whence int) (int64, error) {
	pos := d.target(offset, whence)
	frameSize := int64(d.reader.Channels()) * 2
	if err := d.reader.SetPosition(pos / frameSize); err != nil {
		return d.pos, err
	}
	d.moveTo(pos - pos%frameSize)
	return d.pos, nil
}

func (d *oggSource) Length() int64     { return d.total }
func (d *oggSource) SampleRate() int   { return d.reader.SampleRate() }
func (d *oggSource) ChannelCount() int { return d.reader.Channels() }
