// Package metrics exposes engine activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/railyard/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors fed by the engine lifecycle hooks.
type Metrics struct {
	registry    *prometheus.Registry
	snaps       prometheus.Counter
	connections *prometheus.CounterVec
	moves       prometheus.Histogram
	diagnostics prometheus.Counter
	deviation   prometheus.Gauge
	requests    *prometheus.CounterVec
	storeOps    *prometheus.HistogramVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		snaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "railyard_snaps_total",
			Help: "Drag previews that resolved to a snap candidate",
		}),
		connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railyard_connections_total",
			Help: "Connections created or removed",
		}, []string{"op"}),
		moves: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "railyard_group_move_size",
			Help:    "Number of items moved together by one group move",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),
		diagnostics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "railyard_diagnostics_total",
			Help: "Non-fatal anomalies reported by the engine",
		}),
		deviation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "railyard_last_alignment_deviation_mm",
			Help: "Residual of the last alignment reported as inexact",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "railyard_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"route", "status"}),
		storeOps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "railyard_store_operation_seconds",
			Help:    "Layout store call latency by operation and result",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "result"}),
	}
	m.registry.MustRegister(m.snaps, m.connections, m.moves, m.diagnostics, m.deviation, m.requests, m.storeOps)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest counts one HTTP request.
func (m *Metrics) ObserveRequest(route string, status int) {
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// Hooks returns lifecycle hooks that record metrics and then call next.
func (m *Metrics) Hooks(next domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSnap: func(ctx context.Context, e *domain.SnapEvent) {
			m.snaps.Inc()
			if next.OnSnap != nil {
				next.OnSnap(ctx, e)
			}
		},
		OnConnect: func(ctx context.Context, e *domain.ConnectionEvent) {
			m.connections.WithLabelValues("connect").Inc()
			if next.OnConnect != nil {
				next.OnConnect(ctx, e)
			}
		},
		OnDisconnect: func(ctx context.Context, e *domain.ConnectionEvent) {
			m.connections.WithLabelValues("disconnect").Inc()
			if next.OnDisconnect != nil {
				next.OnDisconnect(ctx, e)
			}
		},
		OnMove: func(ctx context.Context, e *domain.MoveEvent) {
			m.moves.Observe(float64(len(e.Members)))
			if next.OnMove != nil {
				next.OnMove(ctx, e)
			}
		},
		OnDiagnostic: func(ctx context.Context, e *domain.DiagnosticEvent) {
			m.diagnostics.Inc()
			if e.DeviationMm > 0 {
				m.deviation.Set(e.DeviationMm)
			}
			if next.OnDiagnostic != nil {
				next.OnDiagnostic(ctx, e)
			}
		},
	}
}
