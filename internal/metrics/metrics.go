// Package metrics holds the Prometheus instruments for imports and record
// mutations. Each Metrics owns its registry so tests and multiple servers
// in one process do not collide.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Row results.
const (
	RowImported   = "imported"
	RowSkipped    = "skipped"
	RowValidation = "validation"
	RowPersist    = "persistence"
)

// Run outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomePartial  = "partial"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Mutation operations.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

type Metrics struct {
	registry *prometheus.Registry

	ImportRows      *prometheus.CounterVec // by result
	ImportRuns      *prometheus.CounterVec // by outcome
	ImportDuration  prometheus.Histogram
	ImportsActive   prometheus.Gauge
	RecordMutations *prometheus.CounterVec // by op
}

// New registers the billing instruments, plus Go runtime and process
// collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ImportRows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_import_rows_total",
				Help: "CSV rows processed by import, by result",
			},
			[]string{"result"},
		),
		ImportRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_import_runs_total",
				Help: "Import runs, by outcome",
			},
			[]string{"outcome"},
		),
		ImportDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "billing_import_duration_seconds",
				Help:    "Wall time of an import run",
				Buckets: prometheus.DefBuckets,
			},
		),
		ImportsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "billing_imports_active",
				Help: "Imports currently holding a slot",
			},
		),
		RecordMutations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_record_mutations_total",
				Help: "Billing record writes, by operation",
			},
			[]string{"op"},
		),
	}
}

// ObserveImport records one finished run. Rows is keyed by the Row* constants.
func (m *Metrics) ObserveImport(outcome string, elapsed time.Duration, rows map[string]int) {
	if m == nil {
		return
	}
	m.ImportRuns.WithLabelValues(outcome).Inc()
	m.ImportDuration.Observe(elapsed.Seconds())
	for result, n := range rows {
		if n > 0 {
			m.ImportRows.WithLabelValues(result).Add(float64(n))
		}
	}
}

func (m *Metrics) Mutation(op string) {
	if m == nil {
		return
	}
	m.RecordMutations.WithLabelValues(op).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
