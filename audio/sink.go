// Package audio provides the sample sinks an encoder streams into: sound card
// backends, raw PCM pipes and fan-out helpers.
package audio

import (
	"errors"
	"sync"
)

var (
	// ErrClosed is returned by Write after Close.
	ErrClosed = errors.New("audio: sink closed")
	// ErrUnsupported is returned by backends compiled out of this build.
	ErrUnsupported = errors.New("audio: backend not available in this build")
)

// Sink consumes signed 16-bit mono samples. Write may block to pace the caller
// and must not retain samples after it returns.
type Sink interface {
	Write(samples []int16) error
	Close() error
}

// Opener opens a sink running at sampleRate.
type Opener func(sampleRate int) (Sink, error)

// NullSink discards everything. It counts samples so tests and dry runs can
// report how much audio would have been played.
type NullSink struct {
	mu      sync.Mutex
	written int64
	closed  bool
}

func (n *NullSink) Write(samples []int16) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrClosed
	}
	n.written += int64(len(samples))
	return nil
}

func (n *NullSink) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

// Written returns the number of samples accepted so far.
func (n *NullSink) Written() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.written
}

type tee []Sink

// Tee writes every buffer to all sinks in order. The first write error stops
// the fan-out for that buffer; Close closes every sink and joins the errors.
func Tee(sinks ...Sink) Sink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return tee(sinks)
}

func (t tee) Write(samples []int16) error {
	for _, s := range t {
		if err := s.Write(samples); err != nil {
			return err
		}
	}
	return nil
}

func (t tee) Close() error {
	var errs []error
	for _, s := range t {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TeeOpener opens every backend and combines them with Tee. If one fails the
// ones already open are closed again. With no openers it opens a NullSink.
func TeeOpener(openers ...Opener) Opener {
	return func(sampleRate int) (Sink, error) {
		if len(openers) == 0 {
			return &NullSink{}, nil
		}
		sinks := make([]Sink, 0, len(openers))
		for _, open := range openers {
			s, err := open(sampleRate)
			if err != nil {
				_ = Tee(sinks...).Close()
				return nil, err
			}
			sinks = append(sinks, s)
		}
		return Tee(sinks...), nil
	}
}
