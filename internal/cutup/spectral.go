package cutup

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Rotate turns the phase of every frequency bin of the window by one random
// angle in [0, 2π).
func Rotate(r *Region, rng Rand) error {
	turn := cmplx.Rect(1, 2*math.Pi*rng.Float64())
	spectral(r, func(coeff []complex128) {
		for i := range coeff {
			coeff[i] *= turn
		}
	})
	return nil
}

// Expand doubles the distance of each frequency bin from the mean bin.
func Expand(r *Region, _ Rand) error {
	spectral(r, func(coeff []complex128) {
		var mean complex128
		for _, c := range coeff {
			mean += c
		}
		mean /= complex(float64(len(coeff)), 0)
		for i, c := range coeff {
			coeff[i] = c + (c - mean)
		}
	})
	return nil
}

// spectral runs edit over the real spectrum of each channel in the window and
// writes back the rounded inverse. Windows under two frames have no spectrum
// worth editing and are left alone.
func spectral(r *Region, edit func(coeff []complex128)) {
	n := r.Len()
	if n < 2 {
		return
	}
	fft := fourier.NewFFT(n)
	seq := make([]float64, n)
	var coeff []complex128
	for _, ch := range r.Channels {
		for i, v := range ch {
			seq[i] = float64(v)
		}
		coeff = fft.Coefficients(coeff, seq)
		edit(coeff)

		// DC and, for even lengths, Nyquist must stay real.
		coeff[0] = complex(real(coeff[0]), 0)
		if n%2 == 0 {
			last := len(coeff) - 1
			coeff[last] = complex(real(coeff[last]), 0)
		}

		fft.Sequence(seq, coeff)
		for i := range ch {
			ch[i] = int(math.Round(seq[i] / float64(n)))
		}
	}
}
