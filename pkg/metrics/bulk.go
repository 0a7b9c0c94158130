package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BulkImportMetrics records outcomes of bulk upload runs.
type BulkImportMetrics struct {
	duration  *prometheus.HistogramVec
	processed *prometheus.CounterVec
	skipped   *prometheus.CounterVec
}

// NewBulkImportMetrics registers the bulk import metrics on the provided registerer.
func NewBulkImportMetrics(reg prometheus.Registerer) *BulkImportMetrics {
	if reg == nil {
		return &BulkImportMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bulk_import_duration_seconds",
		Help:    "Duration of bulk import runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulk_import_rows_processed",
		Help: "Rows materialized into inventory items.",
	}, []string{"source"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulk_import_rows_skipped",
		Help: "Rows discarded during bulk import.",
	}, []string{"source"})
	reg.MustRegister(duration, processed, skipped)
	return &BulkImportMetrics{
		duration:  duration,
		processed: processed,
		skipped:   skipped,
	}
}

// ObserveDuration records the duration of one import run.
func (m *BulkImportMetrics) ObserveDuration(source string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(source)).Observe(duration.Seconds())
}

// AddProcessed adds to the processed-row counter.
func (m *BulkImportMetrics) AddProcessed(source string, n int) {
	if m == nil || m.processed == nil || n <= 0 {
		return
	}
	m.processed.WithLabelValues(normalizeLabel(source)).Add(float64(n))
}

// AddSkipped adds to the skipped-row counter.
func (m *BulkImportMetrics) AddSkipped(source string, n int) {
	if m == nil || m.skipped == nil || n <= 0 {
		return
	}
	m.skipped.WithLabelValues(normalizeLabel(source)).Add(float64(n))
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return strings.ReplaceAll(value, " ", "_")
}
