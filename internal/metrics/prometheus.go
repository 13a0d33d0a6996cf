// Package metrics exposes Prometheus instrumentation for the provider.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/trackstore/internal/errs"
)

// Outcome label values.
const (
	OutcomeOK              = "ok"
	OutcomeUnknownResource = "unknown_resource"
	OutcomeInvalidInput    = "invalid_input"
	OutcomeStoreFailure    = "store_failure"
	OutcomeReferential     = "referential"
)

// Metrics holds all Prometheus metrics for the track store.
type Metrics struct {
	// Operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Mutation metrics
	RowsWrittenTotal *prometheus.CounterVec
	RowsDeletedTotal prometheus.Counter
	PendingDeletions prometheus.Gauge

	// Compaction metrics
	CompactionsTotal   prometheus.Counter
	CompactionDuration prometheus.Histogram

	// Notification metrics
	NotificationsTotal prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trackstore",
			Subsystem: "provider",
			Name:      "operations_total",
			Help:      "Total number of provider operations by operation, table and outcome",
		}, []string{"operation", "table", "outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "trackstore",
			Subsystem: "provider",
			Name:      "operation_duration_seconds",
			Help:      "Histogram of provider operation durations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		RowsWrittenTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trackstore",
			Subsystem: "provider",
			Name:      "rows_written_total",
			Help:      "Total number of rows inserted or updated by table",
		}, []string{"table"}),
		RowsDeletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trackstore",
			Subsystem: "provider",
			Name:      "rows_deleted_total",
			Help:      "Total number of rows deleted, including cascaded rows",
		}),
		PendingDeletions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "trackstore",
			Subsystem: "provider",
			Name:      "pending_deleted_rows",
			Help:      "Deleted rows accumulated since the last compaction",
		}),

		CompactionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trackstore",
			Subsystem: "store",
			Name:      "compactions_total",
			Help:      "Total number of VACUUM compactions",
		}),
		CompactionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trackstore",
			Subsystem: "store",
			Name:      "compaction_duration_seconds",
			Help:      "Histogram of VACUUM durations",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		}),

		NotificationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trackstore",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Total number of change notifications published",
		}),
	}
}

// RecordOperation counts one provider call and observes its duration.
func (m *Metrics) RecordOperation(operation, table string, err error, d time.Duration) {
	m.OperationsTotal.WithLabelValues(operation, table, Outcome(err)).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordRowsWritten adds n inserted or updated rows for table.
func (m *Metrics) RecordRowsWritten(table string, n int64) {
	if n > 0 {
		m.RowsWrittenTotal.WithLabelValues(table).Add(float64(n))
	}
}

// RecordRowsDeleted adds n deleted rows and sets the pending total.
func (m *Metrics) RecordRowsDeleted(n, pending int64) {
	if n > 0 {
		m.RowsDeletedTotal.Add(float64(n))
	}
	m.PendingDeletions.Set(float64(pending))
}

// RecordCompaction counts a VACUUM run and resets the pending total.
func (m *Metrics) RecordCompaction(d time.Duration) {
	m.CompactionsTotal.Inc()
	m.CompactionDuration.Observe(d.Seconds())
	m.PendingDeletions.Set(0)
}

// RecordNotification counts a published change notification.
func (m *Metrics) RecordNotification() {
	m.NotificationsTotal.Inc()
}

// Outcome maps an error to its outcome label.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	switch errs.CodeOf(err) {
	case errs.CodeUnknownResource:
		return OutcomeUnknownResource
	case errs.CodeInvalidInput:
		return OutcomeInvalidInput
	case errs.CodeReferential:
		return OutcomeReferential
	}
	return OutcomeStoreFailure
}
