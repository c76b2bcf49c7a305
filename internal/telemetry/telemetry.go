// Package telemetry exposes solver progress as Prometheus metrics. The
// metrics endpoint is optional; a nil *Metrics is safe to use and
// records nothing.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics is the set of solver instruments.
type Metrics struct {
	registry *prometheus.Registry

	stage         prometheus.Gauge
	iterations    prometheus.Counter
	residualNorm  prometheus.Gauge
	cost          prometheus.Gauge
	stageDuration prometheus.Histogram
}

// New registers the solver metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.stage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stellmhd_continuation_stage",
		Help: "Index of the continuation stage currently being solved.",
	})
	m.iterations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stellmhd_solver_iterations_total",
		Help: "Total optimizer iterations across all stages.",
	})
	m.residualNorm = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stellmhd_solver_gradient_norm",
		Help: "Infinity norm of the objective gradient at the latest iterate.",
	})
	m.cost = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stellmhd_solver_cost",
		Help: "Least-squares cost at the latest iterate.",
	})
	m.stageDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stellmhd_stage_duration_seconds",
		Help:    "Wall time spent solving each continuation stage.",
		Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
	})
	m.registry.MustRegister(m.stage, m.iterations, m.residualNorm, m.cost, m.stageDuration)
	return m
}

// StartStage records entry into a continuation stage and returns a
// function that observes its duration when called.
func (m *Metrics) StartStage(i int) func() {
	if m == nil {
		return func() {}
	}
	m.stage.Set(float64(i))
	start := time.Now()
	return func() { m.stageDuration.Observe(time.Since(start).Seconds()) }
}

// ObserveIteration records one optimizer iteration.
func (m *Metrics) ObserveIteration(cost, gradNorm float64) {
	if m == nil {
		return
	}
	m.iterations.Inc()
	m.cost.Set(cost)
	m.residualNorm.Set(gradNorm)
}

// Serve exposes /metrics on addr until the context is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	if m == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info("metrics endpoint listening", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
