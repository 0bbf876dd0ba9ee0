package metrics

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"batchenc/internal/events"
	"batchenc/internal/logging"
)

// Collector is an events.Sink backed by a private registry.
type Collector struct {
	registry *prometheus.Registry
	textfile string
	logger   *slog.Logger

	jobs        *prometheus.CounterVec
	jobDuration prometheus.Histogram
	runs        *prometheus.CounterVec
	lastRun     prometheus.Gauge
}

// NewCollector registers the batchenc metrics. An empty textfile disables
// writing.
func NewCollector(textfile string, logger *slog.Logger) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		textfile: strings.TrimSpace(textfile),
		logger:   logging.NewComponentLogger(logger, "metrics"),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchenc_jobs_total",
			Help: "Jobs that reached a terminal state, by status.",
		}, []string{"status"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "batchenc_job_duration_seconds",
			Help:    "Wall time of encoder processes.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchenc_runs_total",
			Help: "Finished runs, by result.",
		}, []string{"result"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "batchenc_last_run_timestamp_seconds",
			Help: "Unix time the most recent run finished.",
		}),
	}
	c.registry.MustRegister(c.jobs, c.jobDuration, c.runs, c.lastRun)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Publish implements events.Sink.
func (c *Collector) Publish(e events.Event) {
	switch e.Kind {
	case events.KindJobFinished:
		c.jobs.WithLabelValues(string(e.Status)).Inc()
		if e.Duration > 0 {
			c.jobDuration.Observe(e.Duration.Seconds())
		}
	case events.KindJobSkipped:
		c.jobs.WithLabelValues(string(events.JobSkipped)).Inc()
	case events.KindRunFinished:
		c.runs.WithLabelValues(string(e.Result)).Inc()
		finished := e.Time
		if finished.IsZero() {
			finished = time.Now()
		}
		c.lastRun.Set(float64(finished.UnixNano()) / float64(time.Second))
		if err := c.WriteTextfile(); err != nil {
			logging.WarnWithContext(c.logger, "metrics textfile not written", "metrics_write",
				logging.String("textfile", c.textfile),
				logging.Error(err),
				logging.String(logging.FieldImpact, "node_exporter keeps serving the previous run"),
			)
		}
	}
}

// WriteTextfile atomically replaces the configured textfile. It is a no-op
// without one.
func (c *Collector) WriteTextfile() error {
	if c.textfile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.textfile), 0o755); err != nil {
		return fmt.Errorf("ensure metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(c.textfile, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

var _ events.Sink = (*Collector)(nil)
