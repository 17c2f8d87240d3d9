// Package encoder runs SSTV jobs one after another on a single background
// worker that owns the audio sink.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"

	"hacksstv/audio"
	"hacksstv/sstv"
	"hacksstv/tone"
)

var (
	// ErrShutdown is returned by Submit and Start once shutdown was requested.
	ErrShutdown = errors.New("encoder: shut down")
	// ErrNotStarted is returned by Shutdown before Start.
	ErrNotStarted = errors.New("encoder: not started")
	// ErrStarted is returned by a second Start.
	ErrStarted = errors.New("encoder: already started")
)

const (
	DefaultTailSilence = 200 * time.Millisecond
	DefaultBuffer      = time.Second
)

type job struct {
	id       JobID
	mode     *sstv.Mode
	protocol sstv.Protocol
}

// Encoder is a FIFO of encode jobs drained by one worker goroutine. Submit,
// Stop, Shutdown and Drain are safe for concurrent use.
type Encoder struct {
	open       audio.Opener
	sampleRate int
	tail       time.Duration
	buffer     time.Duration
	listeners  []Listener

	// emitMu serializes listener calls. It is taken before mu, never after.
	emitMu sync.Mutex

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*job
	busy    bool
	quit    bool
	started bool
	done    chan struct{}
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithSampleRate sets the output rate. The default is 44100 Hz.
func WithSampleRate(rate int) Option {
	return func(e *Encoder) { e.sampleRate = rate }
}

// WithTailSilence sets the silence appended after every job.
func WithTailSilence(d time.Duration) Option {
	return func(e *Encoder) { e.tail = d }
}

// WithBuffer sets how much audio is synthesized between sink writes when a
// single line is longer than that.
func WithBuffer(d time.Duration) Option {
	return func(e *Encoder) { e.buffer = d }
}

// WithListener adds a status listener.
func WithListener(l Listener) Option {
	return func(e *Encoder) {
		if l != nil {
			e.listeners = append(e.listeners, l)
		}
	}
}

// New returns an idle encoder. open is called once, by Start.
func New(open audio.Opener, opts ...Option) *Encoder {
	e := &Encoder{
		open:       open,
		sampleRate: tone.DefaultSampleRate,
		tail:       DefaultTailSilence,
		buffer:     DefaultBuffer,
		done:       make(chan struct{}),
	}
	e.cond = sync.NewCond(&e.mu)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start opens the sink and launches the worker. Cancelling ctx has the same
// effect as Stop.
func (e *Encoder) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.quit {
		return ErrShutdown
	}
	if e.started {
		return ErrStarted
	}

	sink, err := e.open(e.sampleRate)
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}
	e.started = true

	stop := context.AfterFunc(ctx, e.Stop)
	go func() {
		defer stop()
		e.run(sink)
	}()
	return nil
}

// Submit validates img against protocol p and queues it. It never blocks on
// encoding. An *image.RGBA already at the native size is used as is and must not
// be modified afterwards; any other image is copied.
func (e *Encoder) Submit(p sstv.Protocol, img image.Image) (JobID, error) {
	d := p.Descriptor()
	if d == nil {
		return uuid.Nil, fmt.Errorf("%w: %d", sstv.ErrUnknownProtocol, int(p))
	}
	if img == nil {
		return uuid.Nil, fmt.Errorf("%w: nil image", sstv.ErrImageSize)
	}
	if err := d.CheckSize(img.Bounds()); err != nil {
		return uuid.Nil, err
	}
	mode, err := sstv.NewMode(p, toRGBA(img))
	if err != nil {
		return uuid.Nil, err
	}

	j := &job{id: uuid.New(), mode: mode, protocol: p}

	// Holding emitMu keeps the worker from reporting on j before EventQueued
	// has been delivered.
	e.emitMu.Lock()
	defer e.emitMu.Unlock()
	e.mu.Lock()
	if e.quit {
		e.mu.Unlock()
		return uuid.Nil, ErrShutdown
	}
	e.queue = append(e.queue, j)
	pending := len(e.queue)
	e.cond.Broadcast()
	e.mu.Unlock()

	e.deliver(Event{Kind: EventQueued, Job: j.id, Protocol: p, Lines: mode.Lines(), Pending: pending})
	return j.id, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Pending returns the number of queued jobs not yet started.
func (e *Encoder) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Stop asks the worker to finish its current line and exit. It does not wait.
func (e *Encoder) Stop() {
	e.mu.Lock()
	e.quit = true
	e.cond.Broadcast()
	e.mu.Unlock()
}

// Done is closed once the worker has exited and the sink is closed.
func (e *Encoder) Done() <-chan struct{} { return e.done }

// Shutdown stops the worker and waits for it, or for ctx.
func (e *Encoder) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.quit = true
	started := e.started
	e.cond.Broadcast()
	e.mu.Unlock()
	if !started {
		e.discardPending()
		return ErrNotStarted
	}
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain blocks until the queue is empty and no job is running, the worker
// exits or ctx ends.
func (e *Encoder) Drain(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		e.mu.Lock()
		e.cond.Broadcast()
		e.mu.Unlock()
	})
	defer stop()

	e.mu.Lock()
	defer e.mu.Unlock()
	for (len(e.queue) > 0 || e.busy) && !e.quit && ctx.Err() == nil {
		e.cond.Wait()
	}
	return ctx.Err()
}

// emit delivers ev with the current queue depth.
func (e *Encoder) emit(ev Event) {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()
	ev.Pending = e.Pending()
	e.deliver(ev)
}

// deliver calls the listeners. emitMu must be held.
func (e *Encoder) deliver(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	for _, l := range e.listeners {
		l(ev)
	}
}

// next blocks until a job is available or quit is set.
func (e *Encoder) next() (*job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.queue) == 0 && !e.quit {
		e.cond.Wait()
	}
	if e.quit {
		return nil, false
	}
	j := e.queue[0]
	e.queue[0] = nil
	e.queue = e.queue[1:]
	e.busy = true
	return j, true
}

func (e *Encoder) quitting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quit
}

func (e *Encoder) idle() {
	e.mu.Lock()
	e.busy = false
	e.cond.Broadcast()
	e.mu.Unlock()
}

func (e *Encoder) run(sink audio.Sink) {
	defer close(e.done)

	capacity := tone.MsToSamples(float64(e.buffer)/float64(time.Millisecond), e.sampleRate)
	synth := tone.New(sink, e.sampleRate, capacity)
	for {
		j, ok := e.next()
		if !ok {
			break
		}
		e.encode(j, synth)
		e.idle()
	}

	e.discardPending()
	if err := sink.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close audio sink")
	}
	log.Debug().Msg("encoder worker stopped")
}

func (e *Encoder) encode(j *job, synth *tone.Synthesizer) {
	m := j.mode
	base := Event{Job: j.id, Protocol: j.protocol, Lines: m.Lines()}
	started := time.Now()

	ev := base
	ev.Kind = EventStarted
	e.emit(ev)
	log.Info().Str("job", j.id.String()).Stringer("protocol", j.protocol).Msg("encoding started")

	kind, err := EventCompleted, m.Init(synth)
	for err == nil {
		var more bool
		more, err = m.Process()
		if err != nil {
			break
		}
		ev := base
		ev.Kind = EventLine
		ev.Line = m.Line()
		e.emit(ev)
		if !more {
			break
		}
		if e.quitting() {
			kind = EventCancelled
			break
		}
	}

	if finishErr := m.Finish(e.tail); err == nil {
		err = finishErr
	}
	if err != nil {
		kind = EventFailed
	}

	ev = base
	ev.Kind = kind
	ev.Line = m.Line()
	ev.Err = err
	e.emit(ev)

	logEv := log.Info()
	if err != nil {
		logEv = log.Error().Err(err)
	}
	logEv.Str("job", j.id.String()).
		Stringer("protocol", j.protocol).
		Str("outcome", kind.String()).
		Int("lines", m.Line()).
		Dur("elapsed", time.Since(started)).
		Msg("encoding finished")
}

func (e *Encoder) discardPending() {
	e.mu.Lock()
	dropped := e.queue
	e.queue = nil
	e.cond.Broadcast()
	e.mu.Unlock()

	for _, j := range dropped {
		e.emit(Event{Kind: EventDiscarded, Job: j.id, Protocol: j.protocol, Lines: j.mode.Lines()})
		_ = j.mode.Finish(0)
	}
}
