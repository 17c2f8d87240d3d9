package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
)

// PCMSink writes raw little-endian signed 16-bit mono samples to a stream, for
// piping into another program such as aplay, sox or a modulator.
type PCMSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	buf    []byte
	closed bool
}

// NewPCMSink wraps w. If w is also an io.Closer it is closed with the sink.
func NewPCMSink(w io.Writer) *PCMSink {
	s := &PCMSink{w: w}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenPCM opens path for raw sample output. "-" means stdout. Other paths must
// already exist, which keeps this to FIFOs and device nodes rather than files.
func OpenPCM(path string) (*PCMSink, error) {
	if path == "-" || path == "" {
		return &PCMSink{w: os.Stdout}, nil
	}
	//nolint:gosec // path comes from operator configuration
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open pcm output: %w", err)
	}
	return NewPCMSink(f), nil
}

func (s *PCMSink) Write(samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if cap(s.buf) < 2*len(samples) {
		s.buf = make([]byte, 2*len(samples))
	}
	b := s.buf[:2*len(samples)]
	for i, v := range samples {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(v))
	}
	if _, err := s.w.Write(b); err != nil {
		return fmt.Errorf("write pcm: %w", err)
	}
	return nil
}

func (s *PCMSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
