package audio

// Resample converts one channel from one sample rate to another using
// linear interpolation. Good enough for auditioning, not for mastering.
func Resample(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(samples) == 0 || fromRate <= 0 || toRate <= 0 {
		return samples
	}

	ratio := float64(fromRate) / float64(toRate)
	newLen := int(float64(len(samples)) / ratio)
	if newLen == 0 {
		return []int16{}
	}

	result := make([]int16, newLen)
	for i := range result {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		if srcIdx >= len(samples)-1 {
			result[i] = samples[len(samples)-1]
			continue
		}
		s1 := float64(samples[srcIdx])
		s2 := float64(samples[srcIdx+1])
		result[i] = int16(s1 + frac*(s2-s1))
	}
	return result
}

// To16 rescales one sample of the given bit depth to 16 bits, clamping first.
func To16(v, bitDepth int) int16 {
	v = Clamp(v, bitDepth)
	switch {
	case bitDepth > 16:
		v >>= bitDepth - 16
	case bitDepth < 16:
		v <<= 16 - bitDepth
	}
	return int16(v)
}

// PreviewPCM renders the editable channels of buf as interleaved 16-bit
// stereo at PreviewSampleRate. A mono buffer is duplicated to both sides.
func PreviewPCM(buf *Buffer) []int16 {
	if buf.NumChannels() == 0 {
		return nil
	}
	depth := buf.Depth()

	sides := make([][]int16, PreviewChannels)
	for side := range sides {
		src := buf.Channels[min(side, buf.NumChannels()-1)]
		pcm := make([]int16, len(src))
		for i, v := range src {
			pcm[i] = To16(v, depth)
		}
		sides[side] = Resample(pcm, buf.SampleRate, PreviewSampleRate)
	}

	frames := len(sides[0])
	out := make([]int16, frames*PreviewChannels)
	for i := 0; i < frames; i++ {
		for side := range sides {
			out[i*PreviewChannels+side] = sides[side][i]
		}
	}
	return out
}
