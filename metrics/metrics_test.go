package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hacksstv/encoder"
	"hacksstv/sstv"
)

func TestCollectorFollowsJobLifecycle(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewPedanticRegistry()
	c := NewCollector(reg)

	id := uuid.New()
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ev := encoder.Event{Job: id, Protocol: sstv.Robot36, Lines: 240}

	ev.Kind, ev.Pending = encoder.EventQueued, 1
	c.Observe(ev)
	assert.InDelta(t, 1, testutil.ToFloat64(c.jobsQueued), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.queueDepth), 0)

	ev.Kind, ev.Pending, ev.Time = encoder.EventStarted, 0, start
	c.Observe(ev)
	assert.InDelta(t, 1, testutil.ToFloat64(c.transmitting), 0)

	for line := 1; line <= 120; line++ {
		ev.Kind, ev.Line = encoder.EventLine, line
		c.Observe(ev)
	}
	assert.InDelta(t, 120, testutil.ToFloat64(c.linesSent.WithLabelValues("Robot 36")), 0)
	assert.InDelta(t, 0.5, testutil.ToFloat64(c.progress), 1e-9)

	ev.Kind, ev.Line, ev.Time = encoder.EventCompleted, 240, start.Add(36*time.Second)
	c.Observe(ev)
	assert.InDelta(t, 0, testutil.ToFloat64(c.transmitting), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.jobsFinished.WithLabelValues("Robot 36", "completed")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(c.jobDuration))

	// A job discarded from the queue never started.
	c.Observe(encoder.Event{Kind: encoder.EventDiscarded, Job: uuid.New(), Protocol: sstv.Martin1})
	assert.InDelta(t, 1, testutil.ToFloat64(c.jobsFinished.WithLabelValues("Martin 1", "discarded")), 0)

	problems, err := testutil.GatherAndLint(reg)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestServe(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.Observe(encoder.Event{Kind: encoder.EventQueued, Job: uuid.New(), Protocol: sstv.PD120, Pending: 3})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, reg) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, strings.Contains(body, "hacksstv_queue_depth 3"), body)

	cancel()
	require.NoError(t, <-done)
}

func TestServeReportsListenError(t *testing.T) {
	t.Parallel()

	err := Serve(context.Background(), "256.0.0.1:bad", prometheus.NewRegistry())
	require.Error(t, err)
	assert.False(t, errors.Is(err, http.ErrServerClosed))
}
