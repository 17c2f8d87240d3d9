//go:build !headless

package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog/log"

	"hacksstv/ring"
)

// MalgoSink plays samples through miniaudio. Samples wait in a ring that the
// device callback drains; Write blocks while the ring is full.
type MalgoSink struct {
	mctx   *malgo.AllocatedContext
	device *malgo.Device

	mu     sync.Mutex
	cond   *sync.Cond
	ring   *ring.Buffer[int16]
	closed bool
}

// NewMalgoSink opens the default playback device at sampleRate with room for
// one second of queued audio.
func NewMalgoSink(sampleRate int) (*MalgoSink, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	if mctx == nil {
		return nil, errors.New("malgo context is nil after initialization")
	}

	s := &MalgoSink{mctx: mctx, ring: ring.New[int16](sampleRate)}
	s.cond = sync.NewCond(&s.mu)

	// F32 avoids miniaudio's S16 conversion path on PulseAudio.
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = 1
	cfg.SampleRate = uint32(sampleRate)
	cfg.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{Data: s.onSamples})
	if err != nil {
		s.freeContext()
		return nil, fmt.Errorf("failed to initialize audio device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		s.freeContext()
		return nil, fmt.Errorf("failed to start audio device: %w", err)
	}
	s.device = device
	return s, nil
}

// MalgoOpener adapts NewMalgoSink to an Opener.
func MalgoOpener(sampleRate int) (Sink, error) {
	return NewMalgoSink(sampleRate)
}

func (s *MalgoSink) onSamples(out, _ []byte, frames uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := min(int(frames), len(out)/4)
	for i := range n {
		var f float32
		if v, ok := s.ring.Pop(); ok {
			f = float32(v) / 32768
		}
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	for i := 4 * n; i < len(out); i++ {
		out[i] = 0
	}
	s.cond.Broadcast()
}

func (s *MalgoSink) Write(samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(samples) > 0 {
		for s.ring.Full() && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			return ErrClosed
		}
		samples = samples[s.ring.Push(samples):]
	}
	return nil
}

// Close waits up to drainTimeout for queued samples to play out, then stops
// the device.
func (s *MalgoSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if !waitDrained(s.cond, func() bool { return s.ring.Len() == 0 }, drainTimeout) {
		log.Warn().Int("samples", s.ring.Len()).Msg("audio ring not drained before stop")
	}
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()

	var err error
	if err = s.device.Stop(); err != nil {
		log.Warn().Err(err).Msg("failed to stop audio device")
	}
	s.device.Uninit()
	s.freeContext()
	return err
}

func (s *MalgoSink) freeContext() {
	if err := s.mctx.Uninit(); err != nil {
		log.Warn().Err(err).Msg("failed to uninit malgo context")
	}
	s.mctx.Free()
}
