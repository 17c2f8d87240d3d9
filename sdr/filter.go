package sdr

import "math"

// NewLowPassFilterTaps creates the coefficients (taps) for a FIR low-pass filter.
// A Blackman window is used for good performance.
func NewLowPassFilterTaps(numTaps int, bandwidth, sampleRate float64) []float64 {
	taps := make([]float64, numTaps)
	cutoffFreq := bandwidth / 2.0
	normalizedCutoff := cutoffFreq / sampleRate

	M := float64(numTaps - 1)
	var sum float64
	for i := 0; i < numTaps; i++ {
		n := float64(i)
		window := 0.42 - 0.5*math.Cos(2*math.Pi*n/M) + 0.08*math.Cos(4*math.Pi*n/M)

		var sinc float64
		if i == int(M/2) {
			sinc = 2 * math.Pi * normalizedCutoff
		} else {
			sinc = math.Sin(2*math.Pi*normalizedCutoff*(n-M/2)) / (n - M/2)
		}

		taps[i] = sinc * window
		sum += taps[i]
	}

	// Normalize the taps to have a gain of 1 at DC (0 Hz)
	for i := range taps {
		taps[i] /= sum
	}
	return taps
}

// fir applies taps to a stream one sample at a time.
type fir struct {
	taps    []float64
	history []float64
	pos     int
}

func newFIR(taps []float64) *fir {
	return &fir{taps: taps, history: make([]float64, len(taps))}
}

func (f *fir) filter(x float64) float64 {
	if len(f.taps) == 0 {
		return x
	}
	f.history[f.pos] = x
	var y float64
	idx := f.pos
	for _, t := range f.taps {
		y += t * f.history[idx]
		idx--
		if idx < 0 {
			idx = len(f.history) - 1
		}
	}
	f.pos = (f.pos + 1) % len(f.history)
	return y
}
