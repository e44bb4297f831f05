package audio

import "time"

// Audition format. The collage itself keeps whatever rate and width the
// input had; these only describe what the preview stream sends.
const (
	PreviewSampleRate = 48000
	PreviewChannels   = 2
	PreviewBitDepth   = 16
	FrameDuration     = 20 * time.Millisecond
	FrameSize         = 960                         // samples per channel per 20ms frame
	FrameSamples      = FrameSize * PreviewChannels // total interleaved samples per frame
	FrameBytes        = FrameSamples * 2            // bytes per frame (int16 = 2 bytes)
)

// DefaultBitDepth is assumed when a buffer does not say how wide its samples are.
const DefaultBitDepth = 16

// MaxEditableChannels is how many leading channels a collage may rewrite.
const MaxEditableChannels = 2
