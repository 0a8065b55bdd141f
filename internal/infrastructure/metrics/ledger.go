package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

var _ inventory.Metrics = (*LedgerMetrics)(nil)

// LedgerMetrics métricas Prometheus del ledger.
type LedgerMetrics struct {
	movements    *prometheus.CounterVec
	units        *prometheus.CounterVec
	failures     *prometheus.CounterVec
	conflicts    *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// NewLedgerMetrics crea y registra las métricas en reg.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	m := &LedgerMetrics{
		movements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_movements_total",
				Help: "Total number of stock movements recorded",
			},
			[]string{"type"},
		),
		units: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_movement_units_total",
				Help: "Absolute units moved, by movement type",
			},
			[]string{"type"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operation_failures_total",
				Help: "Rejected or failed ledger operations by error kind",
			},
			[]string{"operation", "kind"},
		),
		conflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_conflict_retries_total",
				Help: "Retries caused by concurrent modification",
			},
			[]string{"operation"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Duration of ledger write operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	reg.MustRegister(m.movements, m.units, m.failures, m.conflicts, m.latency, m.httpRequests, m.httpLatency)
	return m
}

func (m *LedgerMetrics) MovementRecorded(t entity.MovementType, quantity int64) {
	m.movements.WithLabelValues(string(t)).Inc()
	if quantity < 0 {
		quantity = -quantity
	}
	m.units.WithLabelValues(string(t)).Add(float64(quantity))
}

func (m *LedgerMetrics) OperationFailed(op string, kind domain.ErrorKind) {
	m.failures.WithLabelValues(op, string(kind)).Inc()
}

func (m *LedgerMetrics) ConflictRetried(op string) {
	m.conflicts.WithLabelValues(op).Inc()
}

func (m *LedgerMetrics) ObserveLatency(op string, d time.Duration) {
	m.latency.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveHTTP usado por el middleware HTTP.
func (m *LedgerMetrics) ObserveHTTP(method, route, status string, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}
