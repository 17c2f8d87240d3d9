package sdr

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hacksstv/audio"
)

type fakeRadio struct {
	mu      sync.Mutex
	freq    uint64
	rate    float64
	gain    int
	amp     bool
	fill    func([]byte) error
	stopped bool
	closed  bool
	failTX  error
}

func (f *fakeRadio) SetFreq(hz uint64) error          { f.freq = hz; return nil }
func (f *fakeRadio) SetSampleRate(rate float64) error { f.rate = rate; return nil }
func (f *fakeRadio) SetTXVGAGain(gain int) error      { f.gain = gain; return nil }
func (f *fakeRadio) SetAmpEnable(on bool) error       { f.amp = on; return nil }

func (f *fakeRadio) StartTX(fill func([]byte) error) error {
	if f.failTX != nil {
		return f.failTX
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fill = fill
	return nil
}

func (f *fakeRadio) StopTX() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeRadio) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// pull drives the TX callback the way the radio's transfer thread would.
func (f *fakeRadio) pull(n int) []byte {
	f.mu.Lock()
	fill := f.fill
	f.mu.Unlock()
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = 0xAA
	}
	_ = fill(buf)
	return buf
}

func baseConfig() Config {
	return Config{
		FrequencyMHz: 145.5,
		SampleRate:   441_000,
		DeviationHz:  5000,
		Gain:         20,
		Amp:          true,
	}
}

func TestNewTransmitterConfiguresRadio(t *testing.T) {
	t.Parallel()

	r := &fakeRadio{}
	cfg := baseConfig()
	cfg.SampleRate = 2_000_000
	tx, err := NewTransmitter(r, cfg, 44100)
	require.NoError(t, err)

	assert.Equal(t, uint64(145_500_000), r.freq)
	assert.InDelta(t, 45*44100, r.rate, 0, "rate is a whole multiple of the audio rate")
	assert.Equal(t, 20, r.gain)
	assert.True(t, r.amp)
	require.NotNil(t, r.fill)

	require.NoError(t, tx.Close())
	assert.True(t, r.stopped)
	assert.True(t, r.closed)
	require.ErrorIs(t, tx.Write([]int16{1}), audio.ErrClosed)
	require.NoError(t, tx.Close())
}

func TestModulationDeviation(t *testing.T) {
	t.Parallel()

	r := &fakeRadio{}
	tx, err := NewTransmitter(r, baseConfig(), 44100)
	require.NoError(t, err)
	defer tx.Close()

	// Half-scale DC input deviates the carrier by half the peak deviation.
	samples := make([]int16, 100)
	for i := range samples {
		samples[i] = 16384
	}
	require.NoError(t, tx.Write(samples))

	buf := r.pull(2 * 1000)
	var total float64
	prev := math.Atan2(float64(int8(buf[1])), float64(int8(buf[0])))
	for i := 1; i < 1000; i++ {
		cur := math.Atan2(float64(int8(buf[2*i+1])), float64(int8(buf[2*i])))
		d := cur - prev
		if d < -math.Pi {
			d += 2 * math.Pi
		}
		total += d
		prev = cur
	}
	want := 2 * math.Pi * 2500 / 441_000
	assert.InDelta(t, want, total/999, 1e-3)

	// Nothing queued: the callback sends silence.
	idle := r.pull(64)
	assert.Equal(t, make([]byte, 64), idle)
}

func TestWriteBlocksUntilRadioCatchesUp(t *testing.T) {
	t.Parallel()

	r := &fakeRadio{}
	cfg := baseConfig()
	cfg.Buffer = time.Millisecond // 882 bytes of I/Q
	tx, err := NewTransmitter(r, cfg, 44100)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- tx.Write(make([]int16, 441)) }() // 8820 bytes

	select {
	case <-done:
		t.Fatal("write returned before the radio consumed anything")
	case <-time.After(20 * time.Millisecond):
	}

	for {
		r.pull(1024)
		select {
		case err := <-done:
			require.NoError(t, err)
			r.pull(1024)
			require.NoError(t, tx.Close())
			return
		case <-time.After(time.Millisecond):
		}
	}
}

func TestOpenerClosesRadioOnFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("usb stall")
	r := &fakeRadio{failTX: boom}
	open := Opener(func() (Radio, error) { return r, nil }, baseConfig())
	_, err := open(44100)
	require.ErrorIs(t, err, boom)
	assert.True(t, r.closed)

	_, err = Opener(func() (Radio, error) { return nil, boom }, baseConfig())(44100)
	require.ErrorIs(t, err, boom)
}

func TestLowPassTaps(t *testing.T) {
	t.Parallel()

	taps := NewLowPassFilterTaps(filterTaps, 2*3000, 44100)
	var sum float64
	for i, v := range taps {
		sum += v
		assert.InDelta(t, v, taps[len(taps)-1-i], 1e-12, "taps are symmetric")
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	amplitude := func(freq float64) float64 {
		f := newFIR(taps)
		peak := 0.0
		for n := range 4000 {
			y := f.filter(math.Sin(2 * math.Pi * freq * float64(n) / 44100))
			if n > 500 {
				peak = max(peak, math.Abs(y))
			}
		}
		return peak
	}
	assert.InDelta(t, 1.0, amplitude(1500), 0.02)
	assert.Less(t, amplitude(10000), 0.01)
}
