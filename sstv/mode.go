package sstv

import (
	"fmt"
	"image"
	"time"

	"hacksstv/tone"
	"hacksstv/yuv"
)

// State is where a Mode is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateHeaderSent
	StateEncoding
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHeaderSent:
		return "header-sent"
	case StateEncoding:
		return "encoding"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Mode encodes one image with one protocol. Call Init once, Process until it
// reports no more lines, then Finish. A Mode is single use and not safe for
// concurrent calls.
type Mode struct {
	desc  *Descriptor
	img   *image.RGBA
	yuv   *yuv.Image
	synth *tone.Synthesizer
	row   int
	line  int
	state State
}

// CheckSize reports ErrImageSize unless b matches the protocol's native size.
func (d *Descriptor) CheckSize(b image.Rectangle) error {
	if b.Dx() != d.Width || b.Dy() != d.Height {
		return fmt.Errorf("%w: %s needs %dx%d, got %dx%d",
			ErrImageSize, d.Name, d.Width, d.Height, b.Dx(), b.Dy())
	}
	return nil
}

// NewMode binds img to protocol p. The image must already be at the protocol's
// native size and must not be modified until Finish returns.
func NewMode(p Protocol, img *image.RGBA) (*Mode, error) {
	d := p.Descriptor()
	if d == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownProtocol, int(p))
	}
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrImageSize)
	}
	if err := d.CheckSize(img.Bounds()); err != nil {
		return nil, err
	}
	return &Mode{desc: d, img: img}, nil
}

func (m *Mode) Descriptor() *Descriptor { return m.desc }
func (m *Mode) State() State            { return m.state }

// Line is the number of lines written so far.
func (m *Mode) Line() int { return m.line }

// Lines is the total number of lines Process will write.
func (m *Mode) Lines() int { return m.desc.Lines() }

// Init resets s, prepares the color planes and sends the calibration header.
func (m *Mode) Init(s *tone.Synthesizer) error {
	if m.state != StateIdle {
		return fmt.Errorf("%w: init in state %s", ErrState, m.state)
	}
	s.Reset()
	m.synth = s
	if m.desc.Color == ColorYUV {
		m.yuv = yuv.Convert(m.img, m.desc.Layout)
	}
	writeHeader(s, m.desc.VIS)
	m.state = StateHeaderSent
	return s.Flush()
}

// Process writes the next scan line and flushes it to the sink. more is false
// once the last line has been written.
func (m *Mode) Process() (more bool, err error) {
	switch m.state {
	case StateHeaderSent, StateEncoding:
	case StateDone:
		return false, nil
	default:
		return false, fmt.Errorf("%w: process in state %s", ErrState, m.state)
	}

	m.state = StateEncoding
	m.desc.Family.writeLine(m, m.row)
	m.row += m.desc.RowsPerLine()
	m.line++
	if err := m.synth.Flush(); err != nil {
		return false, err
	}
	if m.row >= m.desc.Height {
		m.state = StateDone
		return false, nil
	}
	return true, nil
}

// Finish pads the output with tail of silence, flushes it and drops the image.
// It is safe to call in any state and more than once.
func (m *Mode) Finish(tail time.Duration) error {
	var err error
	if m.synth != nil {
		m.synth.Silence(m.synth.Samples(float64(tail) / float64(time.Millisecond)))
		err = m.synth.Flush()
	}
	m.img = nil
	m.yuv = nil
	m.synth = nil
	m.state = StateDone
	return err
}

func (m *Mode) tone(frequency, ms float64) {
	m.synth.Tone(frequency, m.synth.Samples(ms))
}

// scan sweeps row y left to right, picking pixel i*width/n for sample i.
func (m *Mode) scan(ms float64, y int, channel func(x, y int) uint8) {
	n := m.synth.Samples(ms)
	w := m.desc.Width
	for i := range n {
		m.synth.ColorTone(channel(i*w/n, y))
	}
}

func (m *Mode) pixel(x, y int) []uint8 {
	i := m.img.PixOffset(m.img.Rect.Min.X+x, m.img.Rect.Min.Y+y)
	return m.img.Pix[i : i+3 : i+3]
}

func (m *Mode) red(x, y int) uint8   { return m.pixel(x, y)[0] }
func (m *Mode) green(x, y int) uint8 { return m.pixel(x, y)[1] }
func (m *Mode) blue(x, y int) uint8  { return m.pixel(x, y)[2] }
