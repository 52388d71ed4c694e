// Package metrics exposes the poll loop's own health as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mysqllogger/internal/logger"
)

const namespace = "mysql_logger"

// PollMetrics counts ticks, emitted session lines and failures.
// A nil *PollMetrics is valid and records nothing.
type PollMetrics struct {
	registry *prometheus.Registry

	ticks        prometheus.Counter
	tickErrors   prometheus.Counter
	tickDuration prometheus.Histogram
	connectable  prometheus.Gauge
	lines        *prometheus.CounterVec
	pollErrors   *prometheus.CounterVec
}

// NewPollMetrics creates the collectors on a private registry.
func NewPollMetrics() *PollMetrics {
	m := &PollMetrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Poll loop iterations.",
		}),
		tickErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_errors_total",
			Help:      "Iterations aborted by an unexpected failure.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent polling every instance in one iteration.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		connectable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connectable_instances",
			Help:      "Instances with a live socket in the last iteration.",
		}),
		lines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_lines_total",
			Help:      "Session lines emitted per instance.",
		}, []string{"instance"}),
		pollErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_errors_total",
			Help:      "Failed processlist polls per instance.",
		}, []string{"instance"}),
	}

	m.registry.MustRegister(
		m.ticks, m.tickErrors, m.tickDuration, m.connectable, m.lines, m.pollErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *PollMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveTick records one completed iteration.
func (m *PollMetrics) ObserveTick(d time.Duration, connectable int) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
	m.connectable.Set(float64(connectable))
}

// ObserveTickError records an iteration that failed as a whole.
func (m *PollMetrics) ObserveTickError() {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickErrors.Inc()
}

// ObservePoll records the outcome of polling one instance.
func (m *PollMetrics) ObservePoll(instance string, lines int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.pollErrors.WithLabelValues(instance).Inc()
		return
	}
	m.lines.WithLabelValues(instance).Add(float64(lines))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *PollMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve listens on addr until ctx is done.
func (m *PollMetrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
