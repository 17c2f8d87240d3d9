package sstv

import "hacksstv/tone"

// Fixed tone frequencies in Hz.
const (
	LeaderFrequency            = 1900.0
	SyncFrequency              = 1200.0
	PorchFrequency             = 1500.0
	RobotPorchFrequency        = 1900.0
	RobotOddSeparatorFrequency = 2300.0

	visZeroFrequency = 1300.0
	visOneFrequency  = 1100.0
)

const (
	leaderMs = 300.0
	breakMs  = 10.0
	visBitMs = 30.0
)

// Segment is one constant-frequency stretch of the transmission.
type Segment struct {
	Frequency  float64
	DurationMs float64
}

// VISFrequency returns the tone for one VIS bit.
func VISFrequency(bit uint8) float64 {
	if bit&1 == 1 {
		return visOneFrequency
	}
	return visZeroFrequency
}

// HeaderSegments lays out the calibration header for vis: leader, break, leader,
// start bit, seven data bits LSB first, even parity, stop bit.
func HeaderSegments(vis uint8) []Segment {
	segs := make([]Segment, 0, 13)
	segs = append(segs,
		Segment{LeaderFrequency, leaderMs},
		Segment{SyncFrequency, breakMs},
		Segment{LeaderFrequency, leaderMs},
		Segment{SyncFrequency, visBitMs},
	)
	var parity uint8
	for pos := range 7 {
		bit := (vis >> pos) & 1
		parity ^= bit
		segs = append(segs, Segment{VISFrequency(bit), visBitMs})
	}
	return append(segs,
		Segment{VISFrequency(parity), visBitMs},
		Segment{SyncFrequency, visBitMs},
	)
}

// HeaderDurationMs is the length of every calibration header.
func HeaderDurationMs() float64 {
	return 2*leaderMs + breakMs + 10*visBitMs
}

func writeHeader(s *tone.Synthesizer, vis uint8) {
	for _, seg := range HeaderSegments(vis) {
		s.Tone(seg.Frequency, s.Samples(seg.DurationMs))
	}
}
