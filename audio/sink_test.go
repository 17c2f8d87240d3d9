package audio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeBuffer struct {
	bytes.Buffer
	closed int
}

func (c *closeBuffer) Close() error {
	c.closed++
	return nil
}

func TestPCMSinkWritesLittleEndian(t *testing.T) {
	t.Parallel()

	var out closeBuffer
	s := NewPCMSink(&out)
	require.NoError(t, s.Write([]int16{1, -1, 0x1234, -32768}))
	assert.Equal(t, []byte{0x01, 0x00, 0xff, 0xff, 0x34, 0x12, 0x00, 0x80}, out.Bytes())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, out.closed)
	require.ErrorIs(t, s.Write([]int16{1}), ErrClosed)
}

func TestOpenPCMRequiresExistingTarget(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := OpenPCM(filepath.Join(dir, "missing.raw"))
	require.Error(t, err)

	target := filepath.Join(dir, "out.raw")
	require.NoError(t, os.WriteFile(target, nil, 0o600))
	s, err := OpenPCM(target)
	require.NoError(t, err)
	require.NoError(t, s.Write([]int16{7}))
	require.NoError(t, s.Close())

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 0}, got)
}

type failingSink struct {
	NullSink
	err error
}

func (f *failingSink) Write([]int16) error { return f.err }
func (f *failingSink) Close() error        { return f.err }

func TestTee(t *testing.T) {
	t.Parallel()

	a, b := &NullSink{}, &NullSink{}
	s := Tee(a, b)
	require.NoError(t, s.Write(make([]int16, 10)))
	assert.EqualValues(t, 10, a.Written())
	assert.EqualValues(t, 10, b.Written())
	require.NoError(t, s.Close())
	require.ErrorIs(t, a.Write(nil), ErrClosed)

	boom := errors.New("boom")
	c := &NullSink{}
	s = Tee(&failingSink{err: boom}, c)
	require.ErrorIs(t, s.Write(make([]int16, 3)), boom)
	assert.Zero(t, c.Written())
	require.ErrorIs(t, s.Close(), boom)

	single := &NullSink{}
	assert.Same(t, single, Tee(single))
}

func TestTeeOpener(t *testing.T) {
	t.Parallel()

	s, err := TeeOpener()(44100)
	require.NoError(t, err)
	assert.IsType(t, &NullSink{}, s)

	first := &NullSink{}
	boom := errors.New("no device")
	var rates []int
	open := TeeOpener(
		func(rate int) (Sink, error) { rates = append(rates, rate); return first, nil },
		func(rate int) (Sink, error) { rates = append(rates, rate); return nil, boom },
	)
	_, err = open(48000)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []int{48000, 48000}, rates)
	require.ErrorIs(t, first.Write(nil), ErrClosed, "opened sinks are closed on failure")

	a, b := &NullSink{}, &NullSink{}
	s, err = TeeOpener(
		func(int) (Sink, error) { return a, nil },
		func(int) (Sink, error) { return b, nil },
	)(44100)
	require.NoError(t, err)
	require.NoError(t, s.Write(make([]int16, 5)))
	assert.EqualValues(t, 5, a.Written())
	assert.EqualValues(t, 5, b.Written())
}

func TestWaitDrainedGivesUp(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	cond := sync.NewCond(&mu)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	assert.False(t, waitDrained(cond, func() bool { return false }, 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestWaitDrainedWakesOnBroadcast(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	cond := sync.NewCond(&mu)
	queued := 3

	go func() {
		for range 3 {
			time.Sleep(time.Millisecond)
			mu.Lock()
			queued--
			cond.Broadcast()
			mu.Unlock()
		}
	}()

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, waitDrained(cond, func() bool { return queued == 0 }, 10*time.Second))
	assert.Zero(t, queued)
}
