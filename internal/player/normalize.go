package player

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	outputRate      = 44100
	outputChannels  = 2
	outputFrameSize = outputChannels * 2
	bytesPerSecond  = outputRate * outputFrameSize

	// decoded source frames kept behind the read position before compaction
	keepFrames = 4096
)

// normalizer presents any source as 44.1 kHz stereo s16le. Mono input is
// duplicated to both channels and other rates are linearly interpolated.
type normalizer struct {
	src         source
	passthrough bool
	rate        int64
	channels    int
	length      int64

	outFrame  int64   // next output frame
	baseFrame int64   // source frame index of frames[0]
	frames    []int16 // decoded stereo source frames, interleaved
	srcDone   bool
	srcErr    error
	pending   []byte
	readBuf   []byte
}

func newNormalizer(src source) (*normalizer, error) {
	rate := src.SampleRate()
	channels := src.ChannelCount()
	if rate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, rate)
	}
	if channels < 1 || channels > outputChannels {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
	}

	n := &normalizer{
		src:         src,
		passthrough: rate == outputRate && channels == outputChannels,
		rate:        int64(rate),
		channels:    channels,
	}
	if n.passthrough {
		n.length = src.Length()
	} else if src.Length() > 0 {
		srcFrames := src.Length() / int64(channels*2)
		n.length = srcFrames * outputRate / n.rate * outputFrameSize
	}
	return n, nil
}

func (n *normalizer) Length() int64 { return n.length }

func (n *normalizer) Read(p []byte) (int, error) {
	if n.passthrough {
		return n.src.Read(p)
	}
	if len(n.pending) > 0 {
		c := copy(p, n.pending)
		n.pending = n.pending[c:]
		return c, nil
	}

	want := max(len(p)/outputFrameSize, 1)
	out := make([]byte, 0, want*outputFrameSize)
	for range want {
		pos := n.outFrame * n.rate
		idx := pos / outputRate
		frac := pos % outputRate

		n.fill(idx + 1)
		if !n.has(idx) {
			break
		}
		a := n.frameAt(idx)
		b := a
		if n.has(idx + 1) {
			b = n.frameAt(idx + 1)
		}
		for ch := range outputChannels {
			v := int64(a[ch]) + (int64(b[ch])-int64(a[ch]))*frac/outputRate
			out = binary.LittleEndian.AppendUint16(out, uint16(int16(v)))
		}
		n.outFrame++
		n.compact(idx)
	}

	if len(out) == 0 {
		if n.srcErr != nil {
			return 0, n.srcErr
		}
		return 0, io.EOF
	}
	c := copy(p, out)
	n.pending = out[c:]
	return c, nil
}

func (n *normalizer) Seek(offset int64, whence int) (int64, error) {
	if n.passthrough {
		return n.src.Seek(offset, whence)
	}

	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = n.outFrame*outputFrameSize + offset
	case io.SeekEnd:
		pos = n.length + offset
	}
	if n.length > 0 {
		pos = min(pos, n.length)
	}
	pos = max(pos, 0)

	outFrame := pos / outputFrameSize
	srcFrame := outFrame * n.rate / outputRate
	if _, err := n.src.Seek(srcFrame*int64(n.channels*2), io.SeekStart); err != nil {
		return n.outFrame * outputFrameSize, err
	}

	n.outFrame = outFrame
	n.baseFrame = srcFrame
	n.frames = n.frames[:0]
	n.pending = nil
	n.srcDone = false
	n.srcErr = nil
	return outFrame * outputFrameSize, nil
}

func (n *normalizer) has(frame int64) bool {
	return frame >= n.baseFrame && frame < n.baseFrame+int64(len(n.frames)/outputChannels)
}

func (n *normalizer) frameAt(frame int64) [outputChannels]int16 {
	i := int(frame-n.baseFrame) * outputChannels
	return [outputChannels]int16{n.frames[i], n.frames[i+1]}
}

// fill decodes source frames until frame is buffered or the source ends.
func (n *normalizer) fill(frame int64) {
	for !n.srcDone && !n.has(frame) {
		if cap(n.readBuf) == 0 {
			n.readBuf = make([]byte, 8192)
		}
		buf := n.readBuf
		got, err := io.ReadAtLeast(n.src, buf, n.channels*2)
		got -= got % (n.channels * 2)
		for i := 0; i < got; i += n.channels * 2 {
			l := int16(binary.LittleEndian.Uint16(buf[i:]))
			r := l
			if n.channels == 2 {
				r = int16(binary.LittleEndian.Uint16(buf[i+2:]))
			}
			n.frames = append(n.frames, l, r)
		}
		if err != nil {
			n.srcDone = true
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				n.srcErr = err
			}
		}
	}
}

func (n *normalizer) compact(current int64) {
	drop := current - n.baseFrame - keepFrames
	if drop <= 0 {
		return
	}
	n.frames = append(n.frames[:0], n.frames[drop*outputChannels:]...)
	n.baseFrame += drop
}
