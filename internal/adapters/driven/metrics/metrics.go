// Package metrics exposes orchestration counters in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/ports/driven"
	"github.com/Dev-KrishnaPathak/Patiently/internal/logger"
)

// Ensure Metrics implements the interface.
var _ driven.OrchestrationMetrics = (*Metrics)(nil)

const namespace = "patiently"

// Metrics records upload, poll and deletion activity on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	uploadsTotal   *prometheus.CounterVec
	pollAttempts   *prometheus.CounterVec
	pollsInFlight  prometheus.Gauge
	deletionsTotal *prometheus.CounterVec
}

// New creates the metrics and registers them.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "files_total",
			Help:      "Total files submitted by result.",
		},
		[]string{"result"},
	)
	pollAttempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "attempts_total",
			Help:      "Total analysis fetch attempts by outcome.",
		},
		[]string{"outcome"},
	)
	pollsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "in_flight",
			Help:      "Number of documents currently being polled.",
		},
	)
	deletionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delete",
			Name:      "documents_total",
			Help:      "Total confirmed deletions by result.",
		},
		[]string{"result"},
	)

	registry.MustRegister(uploadsTotal, pollAttempts, pollsInFlight, deletionsTotal)

	return &Metrics{
		registry:       registry,
		uploadsTotal:   uploadsTotal,
		pollAttempts:   pollAttempts,
		pollsInFlight:  pollsInFlight,
		deletionsTotal: deletionsTotal,
	}
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// UploadFinished implements driven.OrchestrationMetrics.
func (m *Metrics) UploadFinished(err error) {
	m.uploadsTotal.WithLabelValues(result(err)).Inc()
}

// PollStarted implements driven.OrchestrationMetrics.
func (m *Metrics) PollStarted() {
	m.pollsInFlight.Inc()
}

// PollFinished implements driven.OrchestrationMetrics.
func (m *Metrics) PollFinished() {
	m.pollsInFlight.Dec()
}

// PollAttempt implements driven.OrchestrationMetrics.
func (m *Metrics) PollAttempt(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.pollAttempts.WithLabelValues(outcome).Inc()
}

// DeleteFinished implements driven.OrchestrationMetrics.
func (m *Metrics) DeleteFinished(err error) {
	m.deletionsTotal.WithLabelValues(result(err)).Inc()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics: listening on %s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
