// Package sdr puts the encoded audio on the air: it frequency-modulates the
// sample stream onto a carrier and feeds the resulting I/Q to a HackRF.
package sdr

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"hacksstv/audio"
	"hacksstv/ring"
)

const (
	filterTaps   = 255
	drainTimeout = 5 * time.Second
)

// Config describes the RF side of a transmission.
type Config struct {
	FrequencyMHz float64
	// SampleRate is the I/Q rate in samples per second. It is rounded to a
	// whole multiple of the audio rate.
	SampleRate    float64
	DeviationHz   float64
	AudioCutoffHz float64
	Gain          int
	Amp           bool
	// Level scales the I/Q amplitude, 0 to 1.
	Level float64
	// Buffer is how much modulated signal may be queued ahead of the radio.
	Buffer time.Duration
}

// Transmitter is an audio.Sink that narrowband-FM modulates samples and streams
// them to a Radio. Write blocks while the radio is behind, which paces the
// encoder at real time.
type Transmitter struct {
	radio  Radio
	cfg    Config
	lpf    *fir
	interp int
	step   float64
	amp    float64
	phase  float64
	iq     []byte

	mu     sync.Mutex
	cond   *sync.Cond
	queue  *ring.Buffer[byte]
	closed bool
}

// NewTransmitter tunes radio according to cfg and starts the TX stream. The
// radio is owned by the Transmitter from then on.
func NewTransmitter(radio Radio, cfg Config, audioRate int) (*Transmitter, error) {
	if audioRate <= 0 {
		return nil, fmt.Errorf("invalid audio rate %d", audioRate)
	}
	interp := max(int(math.Round(cfg.SampleRate/float64(audioRate))), 1)
	iqRate := float64(interp * audioRate)
	if cfg.Level <= 0 || cfg.Level > 1 {
		cfg.Level = 1
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 250 * time.Millisecond
	}

	t := &Transmitter{
		radio:  radio,
		cfg:    cfg,
		interp: interp,
		step:   2 * math.Pi * cfg.DeviationHz / iqRate,
		amp:    127 * cfg.Level,
		queue:  ring.New[byte](2 * int(iqRate*cfg.Buffer.Seconds())),
	}
	if cfg.AudioCutoffHz > 0 {
		t.lpf = newFIR(NewLowPassFilterTaps(filterTaps, 2*cfg.AudioCutoffHz, float64(audioRate)))
	} else {
		t.lpf = newFIR(nil)
	}
	t.cond = sync.NewCond(&t.mu)

	txFrequencyHz := uint64(cfg.FrequencyMHz * 1_000_000)
	if err := radio.SetFreq(txFrequencyHz); err != nil {
		return nil, err
	}
	if err := radio.SetSampleRate(iqRate); err != nil {
		return nil, err
	}
	if err := radio.SetTXVGAGain(cfg.Gain); err != nil {
		return nil, err
	}
	if err := radio.SetAmpEnable(cfg.Amp); err != nil {
		return nil, err
	}
	if err := radio.StartTX(t.fill); err != nil {
		return nil, fmt.Errorf("start tx: %w", err)
	}

	log.Info().
		Float64("mhz", float64(txFrequencyHz)/1e6).
		Float64("deviation_hz", cfg.DeviationHz).
		Float64("msps", iqRate/1e6).
		Int("gain", cfg.Gain).
		Msg("transmitter live")
	return t, nil
}

// Opener returns an audio.Opener that opens a radio with open and wraps it in a
// Transmitter.
func Opener(open func() (Radio, error), cfg Config) audio.Opener {
	return func(sampleRate int) (audio.Sink, error) {
		radio, err := open()
		if err != nil {
			return nil, err
		}
		t, err := NewTransmitter(radio, cfg, sampleRate)
		if err != nil {
			_ = radio.Close()
			return nil, err
		}
		return t, nil
	}
}

// fill runs on the radio's transfer thread. Underruns are padded with an
// unmodulated zero signal.
func (t *Transmitter) fill(buf []byte) error {
	t.mu.Lock()
	n := t.queue.Read(buf)
	t.cond.Broadcast()
	t.mu.Unlock()

	clear(buf[n:])
	return nil
}

// modulate turns audio samples into interleaved int8 I/Q in t.iq.
func (t *Transmitter) modulate(samples []int16) []byte {
	need := 2 * t.interp * len(samples)
	if cap(t.iq) < need {
		t.iq = make([]byte, need)
	}
	out := t.iq[:need]
	o := 0
	for _, s := range samples {
		x := t.lpf.filter(float64(s) / 32768)
		for range t.interp {
			t.phase = math.Mod(t.phase+t.step*x, 2*math.Pi)
			out[o] = byte(int8(math.Round(t.amp * math.Cos(t.phase))))
			out[o+1] = byte(int8(math.Round(t.amp * math.Sin(t.phase))))
			o += 2
		}
	}
	return out
}

func (t *Transmitter) Write(samples []int16) error {
	iq := t.modulate(samples)

	t.mu.Lock()
	defer t.mu.Unlock()
	for len(iq) > 0 {
		for t.queue.Full() && !t.closed {
			t.cond.Wait()
		}
		if t.closed {
			return audio.ErrClosed
		}
		iq = iq[t.queue.Push(iq):]
	}
	return nil
}

// Close waits for queued signal to go out, then stops the stream and releases
// the radio.
func (t *Transmitter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, func() {
		t.mu.Lock()
		t.cond.Broadcast()
		t.mu.Unlock()
	})
	defer stop()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	for t.queue.Len() > 0 && ctx.Err() == nil {
		t.cond.Wait()
	}
	if t.queue.Len() > 0 {
		log.Warn().Int("bytes", t.queue.Len()).Msg("tx queue not drained before stop")
	}
	t.closed = true
	t.cond.Broadcast()
	t.mu.Unlock()

	err := t.radio.StopTX()
	if closeErr := t.radio.Close(); err == nil {
		err = closeErr
	}
	log.Info().Msg("transmission stopped")
	return err
}
