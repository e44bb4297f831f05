package audio

import (
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/ossrs/go-oryx-lib/errors"
)

// Buffer is a fully decoded recording held as one sample slice per channel.
type Buffer struct {
	Channels   [][]int
	SampleRate int
	BitDepth   int // 8, 16, 24 or 32; 0 means DefaultBitDepth
}

// NewBuffer allocates a silent buffer.
func NewBuffer(channels, frames, sampleRate, bitDepth int) *Buffer {
	b := &Buffer{
		Channels:   make([][]int, channels),
		SampleRate: sampleRate,
		BitDepth:   bitDepth,
	}
	for c := range b.Channels {
		b.Channels[c] = make([]int, frames)
	}
	return b
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int {
	return len(b.Channels)
}

// FrameCount returns samples per channel.
func (b *Buffer) FrameCount() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// EditableChannels is min(channel count, 2).
func (b *Buffer) EditableChannels() int {
	return min(len(b.Channels), MaxEditableChannels)
}

// Depth returns the effective bit depth.
func (b *Buffer) Depth() int {
	if b.BitDepth <= 0 {
		return DefaultBitDepth
	}
	return b.BitDepth
}

// Duration returns the playing time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.FrameCount()) * time.Second / time.Duration(b.SampleRate)
}

// Validate checks the shape invariants: at least one channel, every channel
// the same length, and a positive sample rate.
func (b *Buffer) Validate() error {
	if len(b.Channels) == 0 {
		return errors.New("no channels")
	}
	if b.SampleRate <= 0 {
		return errors.Errorf("invalid sample rate %v", b.SampleRate)
	}
	frames := len(b.Channels[0])
	for c, ch := range b.Channels {
		if len(ch) != frames {
			return errors.Errorf("channel %v has %v frames, channel 0 has %v", c, len(ch), frames)
		}
	}
	return nil
}

// At reads one sample.
func (b *Buffer) At(channel, frame int) (int, error) {
	if err := b.check(channel, frame); err != nil {
		return 0, err
	}
	return b.Channels[channel][frame], nil
}

// Set writes one sample.
func (b *Buffer) Set(channel, frame, v int) error {
	if err := b.check(channel, frame); err != nil {
		return err
	}
	b.Channels[channel][frame] = v
	return nil
}

func (b *Buffer) check(channel, frame int) error {
	if channel < 0 || channel >= len(b.Channels) {
		return errors.Errorf("channel %v out of range [0,%v)", channel, len(b.Channels))
	}
	if frame < 0 || frame >= len(b.Channels[channel]) {
		return errors.Errorf("frame %v out of range [0,%v)", frame, len(b.Channels[channel]))
	}
	return nil
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{
		Channels:   make([][]int, len(b.Channels)),
		SampleRate: b.SampleRate,
		BitDepth:   b.BitDepth,
	}
	for c, ch := range b.Channels {
		out.Channels[c] = append([]int(nil), ch...)
	}
	return out
}

// Stereoify returns b unchanged when it already has two or more channels,
// otherwise a copy whose single channel is duplicated into a second one.
func (b *Buffer) Stereoify() *Buffer {
	if len(b.Channels) != 1 {
		return b
	}
	out := b.Clone()
	out.Channels = append(out.Channels, append([]int(nil), b.Channels[0]...))
	return out
}

// FromIntBuffer de-interleaves a go-audio buffer.
func FromIntBuffer(ib *goaudio.IntBuffer, bitDepth int) (*Buffer, error) {
	if ib == nil || ib.Format == nil {
		return nil, errors.New("missing pcm format")
	}
	nch := ib.Format.NumChannels
	if nch <= 0 {
		return nil, errors.Errorf("invalid channel count %v", nch)
	}
	if bitDepth <= 0 {
		bitDepth = ib.SourceBitDepth
	}

	frames := len(ib.Data) / nch
	b := NewBuffer(nch, frames, ib.Format.SampleRate, bitDepth)
	for i := 0; i < frames; i++ {
		for c := 0; c < nch; c++ {
			b.Channels[c][i] = ib.Data[i*nch+c]
		}
	}
	return b, nil
}

// IntBuffer interleaves the buffer for go-audio, clamping each sample to
// the range of the buffer's bit depth.
func (b *Buffer) IntBuffer() *goaudio.IntBuffer {
	nch := len(b.Channels)
	frames := b.FrameCount()
	depth := b.Depth()

	data := make([]int, frames*nch)
	for i := 0; i < frames; i++ {
		for c := 0; c < nch; c++ {
			data[i*nch+c] = Clamp(b.Channels[c][i], depth)
		}
	}
	return &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: nch, SampleRate: b.SampleRate},
		SourceBitDepth: depth,
	}
}

// Clamp limits v to the signed range of a bitDepth-wide sample.
func Clamp(v, bitDepth int) int {
	hi := 1<<(bitDepth-1) - 1
	lo := -(1 << (bitDepth - 1))
	if v > hi {
		return hi
	}
	if v < lo {
		return lo
	}
	return v
}
