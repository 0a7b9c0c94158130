package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBulkImportMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBulkImportMetrics(reg)

	m.AddProcessed("csv", 40)
	m.AddSkipped("csv", 5)
	m.AddProcessed("csv", 0)
	m.ObserveDuration("csv", 125*time.Millisecond)

	if got := testutil.ToFloat64(m.processed.WithLabelValues("csv")); got != 40 {
		t.Fatalf("expected processed 40, got %v", got)
	}
	if got := testutil.ToFloat64(m.skipped.WithLabelValues("csv")); got != 5 {
		t.Fatalf("expected skipped 5, got %v", got)
	}
}

func TestBulkImportMetricsNilSafe(t *testing.T) {
	var m *BulkImportMetrics
	m.AddProcessed("csv", 1)
	m.AddSkipped("csv", 1)
	m.ObserveDuration("csv", time.Second)

	empty := NewBulkImportMetrics(nil)
	empty.AddProcessed("csv", 1)
}

func TestNormalizeLabel(t *testing.T) {
	if got := normalizeLabel("  CSV Upload "); got != "csv_upload" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := normalizeLabel(""); got != "unknown" {
		t.Fatalf("unexpected label %q", got)
	}
}
