package cutup

import (
	"math"
	"sort"
)

// Operation names in the default registry.
const (
	OpReverse    = "reverse"
	OpStutter    = "stutter"
	OpSilence    = "silence"
	OpSwap       = "swap"
	OpBitcrush   = "bitcrush"
	OpInvert     = "invert"
	OpDup        = "dup"
	OpSmear      = "smear"
	OpInterleave = "interleave"
	OpConvolve   = "convolve"
	OpMerge      = "merge"
	OpRotate     = "rotate"
	OpExpand     = "expand"

	OpStutterReverse     = "stutter-reverse"
	OpReverseBlurReverse = "reverse-blur-reverse"
	OpDupReverse         = "dup-reverse"
)

// DefaultOperations is the built-in transform set with its default weights.
// Reordering it changes what a given seed produces. Invert, dup, smear, merge
// and rotate touch one editable channel per hit.
func DefaultOperations() []Operation {
	return []Operation{
		{Name: OpReverse, Weight: 4, Apply: Reverse},
		{Name: OpStutter, Weight: 3, Apply: Stutter},
		{Name: OpSilence, Weight: 2, Apply: Silence},
		{Name: OpSwap, Weight: 2, Apply: SwapChannels},
		{Name: OpBitcrush, Weight: 2, Apply: Bitcrush},
		{Name: OpInvert, Weight: 3, Apply: OneChannel(Invert)},
		{Name: OpDup, Weight: 4, Apply: OneChannel(Dup)},
		{Name: OpSmear, Weight: 1, Apply: OneChannel(Smear)},
		{Name: OpInterleave, Weight: 1, Apply: Interleave},
		{Name: OpConvolve, Weight: 3, Apply: Convolve},
		{Name: OpMerge, Weight: 1, Apply: OneChannel(Merge)},
		{Name: OpRotate, Weight: 2, Apply: OneChannel(Rotate)},
		{Name: OpExpand, Weight: 1, Apply: Expand},
		{Name: OpStutterReverse, Weight: 2, Apply: Chain(Stutter, Reverse)},
		{Name: OpReverseBlurReverse, Weight: 2, Apply: Chain(Reverse, Blur, Reverse)},
		{Name: OpDupReverse, Weight: 2, Apply: Chain(Dup, Reverse)},
	}
}

// DefaultRegistry returns a registry over DefaultOperations.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultOperations()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Chain applies ops to the same region in order, stopping at the first error.
func Chain(ops ...ApplyFunc) ApplyFunc {
	return func(r *Region, rng Rand) error {
		for _, op := range ops {
			if err := op(r, rng); err != nil {
				return err
			}
		}
		return nil
	}
}

// OneChannel restricts apply to a single editable channel drawn from rng.
// The other channels are not passed to it, as window or as source.
func OneChannel(apply ApplyFunc) ApplyFunc {
	return func(r *Region, rng Rand) error {
		if len(r.Channels) == 0 {
			return nil
		}
		c := rng.IntN(len(r.Channels))
		sub := &Region{Window: r.Window, Channels: [][]int{r.Channels[c]}, BitDepth: r.BitDepth}
		if c < len(r.Source) {
			sub.Source = [][]int{r.Source[c]}
		}
		if err := apply(sub, rng); err != nil {
			return err
		}
		if len(sub.Channels) != 1 {
			return Errorf(Fatal, "operation on channel %v returned %v channels", c, len(sub.Channels))
		}
		r.Channels[c] = sub.Channels[0]
		return nil
	}
}

// Reverse plays the window backwards.
func Reverse(r *Region, _ Rand) error {
	for _, ch := range r.Channels {
		for i, j := 0, len(ch)-1; i < j; i, j = i+1, j-1 {
			ch[i], ch[j] = ch[j], ch[i]
		}
	}
	return nil
}

// Stutter cuts the window into 2 to 5 equal pieces and repeats the first
// piece over the rest.
func Stutter(r *Region, rng Rand) error {
	cuts := 2 + rng.IntN(4)
	size := max(1, r.Len()/cuts)
	for _, ch := range r.Channels {
		for i := size; i < len(ch); i++ {
			ch[i] = ch[i%size]
		}
	}
	return nil
}

// Silence zeroes the window.
func Silence(r *Region, _ Rand) error {
	for _, ch := range r.Channels {
		clear(ch)
	}
	return nil
}

// SwapChannels exchanges left and right. A single editable channel is left alone.
func SwapChannels(r *Region, _ Rand) error {
	if len(r.Channels) < 2 {
		return nil
	}
	l, rt := r.Channels[0], r.Channels[1]
	for i := range l {
		l[i], rt[i] = rt[i], l[i]
	}
	return nil
}

// Bitcrush keeps only 2 to 8 bits of amplitude resolution.
func Bitcrush(r *Region, rng Rand) error {
	depth := r.BitDepth
	if depth <= 0 {
		depth = 16
	}
	bits := 2 + rng.IntN(7)
	if bits >= depth {
		return nil
	}
	step := 1 << (depth - bits)
	for _, ch := range r.Channels {
		for i, v := range ch {
			ch[i] = v / step * step
		}
	}
	return nil
}

// Invert flips the polarity of the window.
func Invert(r *Region, _ Rand) error {
	for _, ch := range r.Channels {
		for i, v := range ch {
			ch[i] = -v
		}
	}
	return nil
}

// randomSource picks the start of another window-sized stretch of the recording.
func randomSource(r *Region, rng Rand) int {
	total := 0
	if len(r.Source) > 0 {
		total = len(r.Source[0])
	}
	return rng.IntN(total - r.Len() + 1)
}

// Dup overwrites the window with a stretch copied from elsewhere.
func Dup(r *Region, rng Rand) error {
	from := randomSource(r, rng)
	for c, ch := range r.Channels {
		copy(ch, r.Source[c][from:from+len(ch)])
	}
	return nil
}

// Merge mixes a scaled stretch from elsewhere on top of the window.
func Merge(r *Region, rng Rand) error {
	from := randomSource(r, rng)
	ratio := 0.25 + 0.75*rng.Float64()
	for c, ch := range r.Channels {
		// Snapshot first, the source may overlap the window.
		src := append([]int(nil), r.Source[c][from:from+len(ch)]...)
		for i := range ch {
			ch[i] += int(float64(src[i]) * ratio)
		}
	}
	return nil
}

// Smear replaces every sample with the average of the window so far.
func Smear(r *Region, _ Rand) error {
	for _, ch := range r.Channels {
		var total int64
		for i, v := range ch {
			total += int64(v)
			ch[i] = int(total / int64(i+1))
		}
	}
	return nil
}

// Interleave swaps left and right on every other sample.
func Interleave(r *Region, _ Rand) error {
	if len(r.Channels) < 2 {
		return nil
	}
	l, rt := r.Channels[0], r.Channels[1]
	for i := 0; i < len(l); i += 2 {
		l[i], rt[i] = rt[i], l[i]
	}
	return nil
}

// Kernels available to Convolve.
var Kernels = map[string][]float64{
	"edge":         {-1, 2, -1},
	"edge1":        {-1, -1, 4, -1, -1},
	"sharpen":      {-3, 7, -3},
	"neighborhood": {1, 1, -4, 1, 1},
	"blur":         uniformKernel(25),
}

var kernelNames = sortedKeys(Kernels)

func uniformKernel(n int) []float64 {
	k := make([]float64, n)
	for i := range k {
		k[i] = 1 / float64(n)
	}
	return k
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Convolve filters the window with a randomly chosen kernel.
func Convolve(r *Region, rng Rand) error {
	convolveAll(r, Kernels[kernelNames[rng.IntN(len(kernelNames))]])
	return nil
}

// Blur filters the window with the blur kernel.
func Blur(r *Region, _ Rand) error {
	convolveAll(r, Kernels["blur"])
	return nil
}

func convolveAll(r *Region, kernel []float64) {
	for _, ch := range r.Channels {
		convolveSame(ch, kernel)
	}
}

// convolveSame convolves ch with kernel in place, centered, holding the
// edge samples for positions outside the window.
func convolveSame(ch []int, kernel []float64) {
	n := len(ch)
	if n == 0 {
		return
	}
	src := append([]int(nil), ch...)
	half := len(kernel) / 2
	for i := range ch {
		var acc float64
		for k, w := range kernel {
			j := min(max(i+half-k, 0), n-1)
			acc += w * float64(src[j])
		}
		ch[i] = int(math.Round(acc))
	}
}
