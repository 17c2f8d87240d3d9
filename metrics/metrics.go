// Package metrics exports encoder activity to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"hacksstv/encoder"
)

// Collector turns encoder events into metrics.
type Collector struct {
	jobsQueued   prometheus.Counter
	jobsFinished *prometheus.CounterVec // by mode and result
	linesSent    *prometheus.CounterVec // by mode
	queueDepth   prometheus.Gauge
	transmitting prometheus.Gauge
	progress     prometheus.Gauge
	jobDuration  *prometheus.HistogramVec

	mu     sync.Mutex
	starts map[encoder.JobID]time.Time
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		jobsQueued: f.NewCounter(prometheus.CounterOpts{
			Name: "hacksstv_jobs_queued_total",
			Help: "Images accepted for transmission",
		}),
		jobsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hacksstv_jobs_finished_total",
			Help: "Jobs that left the queue, by mode and result",
		}, []string{"mode", "result"}),
		linesSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hacksstv_lines_sent_total",
			Help: "Scan lines written to the output",
		}, []string{"mode"}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "hacksstv_queue_depth",
			Help: "Jobs waiting behind the current one",
		}),
		transmitting: f.NewGauge(prometheus.GaugeOpts{
			Name: "hacksstv_transmitting",
			Help: "1 while an image is being sent",
		}),
		progress: f.NewGauge(prometheus.GaugeOpts{
			Name: "hacksstv_job_progress_ratio",
			Help: "Fraction of lines sent for the current job",
		}),
		jobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hacksstv_job_duration_seconds",
			Help:    "Wall time from header to last sample",
			Buckets: []float64{10, 30, 60, 90, 120, 180, 240, 300},
		}, []string{"mode"}),
		starts: make(map[encoder.JobID]time.Time),
	}
}

// Observe is an encoder.Listener.
func (c *Collector) Observe(ev encoder.Event) {
	mode := ev.Protocol.String()
	c.queueDepth.Set(float64(ev.Pending))

	switch ev.Kind {
	case encoder.EventQueued:
		c.jobsQueued.Inc()
	case encoder.EventStarted:
		c.transmitting.Set(1)
		c.progress.Set(0)
		c.mu.Lock()
		c.starts[ev.Job] = ev.Time
		c.mu.Unlock()
	case encoder.EventLine:
		c.linesSent.WithLabelValues(mode).Inc()
		if ev.Lines > 0 {
			c.progress.Set(float64(ev.Line) / float64(ev.Lines))
		}
	}

	if !ev.Kind.Terminal() {
		return
	}
	c.jobsFinished.WithLabelValues(mode, ev.Kind.String()).Inc()

	c.mu.Lock()
	start, ok := c.starts[ev.Job]
	delete(c.starts, ev.Job)
	c.mu.Unlock()
	if !ok {
		return
	}
	c.transmitting.Set(0)
	if ev.Kind == encoder.EventCompleted {
		c.jobDuration.WithLabelValues(mode).Observe(ev.Time.Sub(start).Seconds())
	}
}

// Serve exposes g on /metrics at addr until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info().Str("listen", addr).Msg("metrics server started")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if lerr := <-errc; !errors.Is(lerr, http.ErrServerClosed) && err == nil {
		err = lerr
	}
	return err
}
