// Package tone synthesizes the phase-continuous sine tones an SSTV transmission is made of.
//
// A Synthesizer owns a fixed sample buffer. Tones are appended sample by sample and the
// buffer is handed to a SampleWriter whenever it fills up or Flush is called. The carrier
// phase survives every tone boundary and every flush, so switching frequency never
// produces a discontinuity in the output.
package tone

import (
	"errors"
	"math"
)

const (
	// DefaultSampleRate is the output rate all modes are timed against.
	DefaultSampleRate = 44100

	// Amplitude is the peak sample value. Full scale is 32767 so that sin(phase) = 1
	// still fits an int16.
	Amplitude = math.MaxInt16

	// BlackFrequency and WhiteFrequency bound the luminance band in Hz.
	BlackFrequency = 1500.0
	WhiteFrequency = 2300.0
)

var errNoWriter = errors.New("tone: synthesizer has no writer")

// SampleWriter consumes filled sample buffers. The slice is only valid for the
// duration of the call; implementations must copy what they keep.
type SampleWriter interface {
	Write(samples []int16) error
}

// Synthesizer is not safe for concurrent use.
type Synthesizer struct {
	w          SampleWriter
	sampleRate int
	phase      float64
	buf        []int16
	pos        int
	count      int64
	err        error
}

// New returns a synthesizer writing to w at sampleRate. capacity is the number of
// samples buffered between writes and is raised to 1 if smaller.
func New(w SampleWriter, sampleRate, capacity int) *Synthesizer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Synthesizer{
		w:          w,
		sampleRate: sampleRate,
		buf:        make([]int16, max(capacity, 1)),
	}
}

// MsToSamples converts a duration in milliseconds to a sample count, rounding to
// the nearest whole sample.
func MsToSamples(durationMs float64, sampleRate int) int {
	return int(math.Round(durationMs * float64(sampleRate) / 1e3))
}

// ColorFrequency maps a channel value onto the 1500-2300 Hz band.
func ColorFrequency(value uint8) float64 {
	return float64(value)*(WhiteFrequency-BlackFrequency)/255 + BlackFrequency
}

func (s *Synthesizer) SampleRate() int { return s.sampleRate }

// Samples converts durationMs to a sample count at the synthesizer's rate.
func (s *Synthesizer) Samples(durationMs float64) int {
	return MsToSamples(durationMs, s.sampleRate)
}

// Tone appends n samples of a sine at frequency Hz, continuing from the current phase.
func (s *Synthesizer) Tone(frequency float64, n int) {
	step := 2 * math.Pi * frequency / float64(s.sampleRate)
	for range n {
		if s.err != nil {
			return
		}
		s.phase = math.Mod(s.phase+step, 2*math.Pi)
		s.put(int16(math.Round(math.Sin(s.phase) * Amplitude)))
	}
}

// ColorTone appends a single sample at the frequency for value.
func (s *Synthesizer) ColorTone(value uint8) {
	s.Tone(ColorFrequency(value), 1)
}

// Silence appends n zero samples. The phase is left where it was.
func (s *Synthesizer) Silence(n int) {
	for range n {
		if s.err != nil {
			return
		}
		s.put(0)
	}
}

func (s *Synthesizer) put(v int16) {
	if s.pos == len(s.buf) {
		if s.flush() != nil {
			return
		}
	}
	s.buf[s.pos] = v
	s.pos++
	s.count++
}

// Flush hands any buffered samples to the writer. Once a write has failed every
// later call returns the same error until Reset.
func (s *Synthesizer) Flush() error {
	if s.err != nil {
		return s.err
	}
	return s.flush()
}

func (s *Synthesizer) flush() error {
	if s.pos == 0 {
		return nil
	}
	if s.w == nil {
		s.err = errNoWriter
		return s.err
	}
	if err := s.w.Write(s.buf[:s.pos]); err != nil {
		s.err = err
		return err
	}
	s.pos = 0
	return nil
}

// Reset drops buffered samples, the sticky error and the phase.
func (s *Synthesizer) Reset() {
	s.phase = 0
	s.pos = 0
	s.count = 0
	s.err = nil
}

// Err returns the first write error, if any.
func (s *Synthesizer) Err() error { return s.err }

// Phase is the carrier phase in [0, 2π) after the last emitted tone sample.
func (s *Synthesizer) Phase() float64 { return s.phase }

// Count is the number of samples produced since the last Reset, buffered or not.
func (s *Synthesizer) Count() int64 { return s.count }

// Buffered is the number of samples waiting for the next flush.
func (s *Synthesizer) Buffered() int { return s.pos }
