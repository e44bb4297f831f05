package cutup

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Rand is the random source the scheduler, registry and operations draw
// from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// NewRand returns a deterministic generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Window is one scheduled edit: Length frames starting at Start.
type Window struct {
	Start  int
	Length int
}

// End is the first frame after the window.
func (w Window) End() int {
	return w.Start + w.Length
}

// Within reports whether the window is non-empty and inside [0, total).
func (w Window) Within(total int) bool {
	return w.Start >= 0 && w.Length > 0 && w.End() <= total
}

func (w Window) String() string {
	return fmt.Sprintf("[%v,%v)", w.Start, w.End())
}

// ScheduleOptions shapes the windows inside each slot.
type ScheduleOptions struct {
	MinFraction float64 // shortest window as a fraction of the spacing
	MaxFraction float64 // longest window as a fraction of the spacing
	Jitter      bool    // place each window at a random offset in its slot
}

// DefaultScheduleOptions: windows between a quarter and all of the spacing, jittered.
func DefaultScheduleOptions() ScheduleOptions {
	return ScheduleOptions{MinFraction: 0.25, MaxFraction: 1.0, Jitter: true}
}

func (o ScheduleOptions) validate() error {
	if !(o.MinFraction > 0 && o.MinFraction <= 1) {
		return Errorf(InvalidParameter, "window min fraction %v not in (0,1]", o.MinFraction)
	}
	if !(o.MaxFraction > 0 && o.MaxFraction <= 1) {
		return Errorf(InvalidParameter, "window max fraction %v not in (0,1]", o.MaxFraction)
	}
	if o.MinFraction > o.MaxFraction {
		return Errorf(InvalidParameter, "window min fraction %v above max %v", o.MinFraction, o.MaxFraction)
	}
	return nil
}

// Spacing returns the expected distance between hits in frames.
func Spacing(sampleRate int, hitsPerMinute float64) float64 {
	return float64(sampleRate) * 60 / hitsPerMinute
}

// Schedule lays out edit windows over totalFrames. Slot k covers
// [round(k*spacing), round((k+1)*spacing)) and receives at most one window,
// so windows come out ordered and disjoint and the hit rate holds for
// fractional spacings. Spacings under a frame are widened to one frame.
func Schedule(totalFrames, sampleRate int, hitsPerMinute float64, rng Rand, opts ScheduleOptions) ([]Window, error) {
	if math.IsNaN(hitsPerMinute) || math.IsInf(hitsPerMinute, 0) || hitsPerMinute <= 0 {
		return nil, Errorf(InvalidParameter, "hits per minute must be positive, got %v", hitsPerMinute)
	}
	if sampleRate <= 0 {
		return nil, Errorf(InvalidParameter, "sample rate must be positive, got %v", sampleRate)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	// Clamp so slot bounds stay well inside int.
	spacing := min(max(Spacing(sampleRate, hitsPerMinute), 1), float64(math.MaxInt32))
	minLen := max(1, int(spacing*opts.MinFraction))
	maxLen := max(minLen, int(spacing*opts.MaxFraction))

	var windows []Window
	for k := 0; ; k++ {
		pos := int(math.Round(float64(k) * spacing))
		if pos >= totalFrames {
			break
		}
		slot := min(int(math.Round(float64(k+1)*spacing)), totalFrames) - pos
		// Rounding never makes an inner slot narrower than minLen, only the
		// truncated tail can be.
		if slot < minLen {
			break
		}

		length := minLen
		if maxLen > minLen {
			length += rng.IntN(maxLen - minLen + 1)
		}
		length = min(length, slot)

		start := pos
		if opts.Jitter && slot > length {
			start += rng.IntN(slot - length + 1)
		}
		windows = append(windows, Window{Start: start, Length: length})
	}
	return windows, nil
}
