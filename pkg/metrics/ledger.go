package metrics

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics counts quantity transitions handled by the ledger service.
type LedgerMetrics struct {
	changes  *prometheus.CounterVec
	failures *prometheus.CounterVec
	retries  prometheus.Counter
	drift    prometheus.Gauge
}

// NewLedgerMetrics registers the ledger collectors. A nil registerer yields a no-op recorder.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	changes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_quantity_changes_total",
		Help:      "Quantity changes committed to the ledger.",
	}, []string{"kind"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_quantity_change_failures_total",
		Help:      "Quantity changes rejected or failed, by error code.",
	}, []string{"code"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_concurrency_retries_total",
		Help:      "Compare-and-swap conflicts retried by the ledger service.",
	})
	drift := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ledger_audit_drift_signboards",
		Help:      "Signboards whose quantity disagreed with their newest history entry at the last audit.",
	})
	reg.MustRegister(changes, failures, retries, drift)
	return &LedgerMetrics{changes: changes, failures: failures, retries: retries, drift: drift}
}

func (m *LedgerMetrics) IncChange(kind string) {
	if m == nil || m.changes == nil {
		return
	}
	m.changes.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *LedgerMetrics) IncFailure(code string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(code)).Inc()
}

func (m *LedgerMetrics) IncRetry() {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.Inc()
}

// SetDrift records how many signboards the latest audit flagged.
func (m *LedgerMetrics) SetDrift(count int) {
	if m == nil || m.drift == nil {
		return
	}
	m.drift.Set(float64(count))
}
