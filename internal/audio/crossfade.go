package audio

import "math"

// Curve maps fade progress in [0,1] to the gain of the incoming signal.
type Curve func(t float64) float64

// Linear is the identity fade, clamped to [0,1].
func Linear(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t
}

// Smoothstep returns the smoothstep interpolation for t in [0,1].
// Formula: 3t^2 - 2t^3.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// FadeWidth returns how many samples each edge of an n-sample region fades
// over when width are requested: never more than half the region.
func FadeWidth(width, n int) int {
	if width <= 0 || n <= 0 {
		return 0
	}
	return min(width, n/2)
}

// BlendEdges fades edited in from original over the first width samples and
// back out to original over the last width samples. The result is written to
// edited. Both slices must have the same length.
func BlendEdges(original, edited []int, width int, curve Curve) {
	n := len(edited)
	width = FadeWidth(width, n)
	if width == 0 {
		return
	}
	if curve == nil {
		curve = Linear
	}

	for i := 0; i < width; i++ {
		g := curve(float64(i+1) / float64(width+1))

		head := i
		edited[head] = mix(original[head], edited[head], g)

		tail := n - 1 - i
		edited[tail] = mix(original[tail], edited[tail], g)
	}
}

func mix(out, in int, gain float64) int {
	return int(math.Round(float64(out)*(1-gain) + float64(in)*gain))
}

// CrossfadeFrames blends an outgoing frame with an incoming frame at the given
// progress (0.0 = all outgoing, 1.0 = all incoming). Uses smoothstep curve.
// Both frames must have the same length. Returns the blended frame.
func CrossfadeFrames(outgoing, incoming []int16, progress float64) []int16 {
	gain := Smoothstep(progress)
	result := make([]int16, len(outgoing))

	for i := range outgoing {
		mixed := float64(outgoing[i])*(1-gain) + float64(incoming[i])*gain
		result[i] = int16(Clamp(int(mixed), 16))
	}

	return result
}
