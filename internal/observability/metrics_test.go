package observability

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveTransfer("SUCCESS", "P2P", 10, 0)
	m.IncRejection("SAME_VPA")
	m.ObserveSweep(3, nil)
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("WritePrometheus on nil: %v", err)
	}
	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 503 {
		t.Fatalf("WriteHTTP nil: want=503 got=%d", rec.Code)
	}
}

func TestWritePrometheus(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("POST", "/api/v1/transfer", "201", 20*time.Millisecond)
	m.ObserveAPI("GET", "/api/v1/transfer/:ref", "500", time.Millisecond)
	m.ObserveTransfer("SUCCESS", "P2M", 1000, 35.4)
	m.ObserveTransfer("FAILED", "P2P", 50, 0)
	m.IncRejection("SAME_VPA")
	m.IncRejection("SAME_VPA")
	m.ObserveSweep(2, nil)
	m.ObserveSweep(0, errors.New("db down"))

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`upi_api_requests_total{method="POST",route="/api/v1/transfer",status="201"} 1.000000`,
		`upi_api_requests_error_total 1.000000`,
		`upi_transfers_total{status="SUCCESS",transaction_type="P2M"} 1.000000`,
		`upi_transfer_charges_rupees_total 35.400000`,
		`upi_transfer_rejections_total{code="SAME_VPA"} 2.000000`,
		`upi_stale_sweeps_total 2.000000`,
		`upi_stale_transfers_expired_total 2.000000`,
		`upi_stale_sweep_errors_total 1.000000`,
		`# TYPE upi_api_request_duration_seconds histogram`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("metrics output missing %q\n%s", want, out)
		}
	}
}

func TestHistogramBuckets(t *testing.T) {
	h := NewHistogramVec("h", "help", []string{"k"}, []float64{1, 2})
	h.Observe(0.5, "a")
	h.Observe(1.5, "a")
	h.Observe(3, "a")
	var buf bytes.Buffer
	if err := h.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`h_bucket{k="a",le="1"} 1`,
		`h_bucket{k="a",le="2"} 2`,
		`h_bucket{k="a",le="+Inf"} 3`,
		`h_count{k="a"} 3`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("histogram output missing %q\n%s", want, out)
		}
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{`x"y`})
	if got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("labelString: got=%q", got)
	}
}
