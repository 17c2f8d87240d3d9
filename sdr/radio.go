package sdr

import (
	"fmt"

	"github.com/samuel/go-hackrf/hackrf"
)

// Radio is the subset of a transmit-capable SDR the Transmitter drives. The TX
// callback fills buf with interleaved signed 8-bit I/Q pairs.
type Radio interface {
	SetFreq(hz uint64) error
	SetSampleRate(rate float64) error
	SetTXVGAGain(gain int) error
	SetAmpEnable(on bool) error
	StartTX(fill func(buf []byte) error) error
	StopTX() error
	Close() error
}

type hackRF struct {
	dev *hackrf.Device
}

// OpenHackRF initializes libhackrf and opens the first device found. Close
// releases both.
func OpenHackRF() (Radio, error) {
	if err := hackrf.Init(); err != nil {
		return nil, fmt.Errorf("hackrf.Init() failed: %w", err)
	}
	dev, err := hackrf.Open()
	if err != nil {
		_ = hackrf.Exit()
		return nil, fmt.Errorf("hackrf.Open() failed: %w", err)
	}
	return &hackRF{dev: dev}, nil
}

func (h *hackRF) SetFreq(hz uint64) error          { return h.dev.SetFreq(hz) }
func (h *hackRF) SetSampleRate(rate float64) error { return h.dev.SetSampleRate(rate) }
func (h *hackRF) SetTXVGAGain(gain int) error      { return h.dev.SetTXVGAGain(gain) }
func (h *hackRF) SetAmpEnable(on bool) error       { return h.dev.SetAmpEnable(on) }
func (h *hackRF) StopTX() error                    { return h.dev.StopTX() }

func (h *hackRF) StartTX(fill func(buf []byte) error) error {
	return h.dev.StartTX(fill)
}

func (h *hackRF) Close() error {
	err := h.dev.Close()
	if exitErr := hackrf.Exit(); err == nil {
		err = exitErr
	}
	return err
}
