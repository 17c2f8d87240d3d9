//go:build !headless

package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoSink plays samples through the system sound device using oto. Writes go
// into a pipe that the oto player drains at the device rate, so Write blocks
// once the player's buffer is full.
//
// oto allows a single context per process; open at most one OtoSink.
type OtoSink struct {
	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
	pw     *io.PipeWriter
	buf    []byte
	closed bool
}

// NewOtoSink opens the default output device at sampleRate, mono.
func NewOtoSink(sampleRate int) (*OtoSink, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   100 * time.Millisecond,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("oto context: %w", err)
	}
	<-ready

	pr, pw := io.Pipe()
	player := ctx.NewPlayer(pr)
	player.Play()
	return &OtoSink{ctx: ctx, player: player, pw: pw}, nil
}

// OtoOpener adapts NewOtoSink to an Opener.
func OtoOpener(sampleRate int) (Sink, error) {
	return NewOtoSink(sampleRate)
}

func (s *OtoSink) Write(samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.player.Err(); err != nil {
		return fmt.Errorf("oto player: %w", err)
	}
	if cap(s.buf) < 2*len(samples) {
		s.buf = make([]byte, 2*len(samples))
	}
	b := s.buf[:2*len(samples)]
	for i, v := range samples {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(v))
	}
	if _, err := s.pw.Write(b); err != nil {
		return fmt.Errorf("oto write: %w", err)
	}
	return nil
}

// Close lets the player drain what it already has, then releases it.
func (s *OtoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.pw.Close()
	deadline := time.Now().Add(drainTimeout)
	for s.player.IsPlaying() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	return s.player.Close()
}
