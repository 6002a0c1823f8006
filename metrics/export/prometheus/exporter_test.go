package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"

	"github.com/skillx/sessiongate"
)

type fakeSource struct {
	snapshot sessiongate.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() sessiongate.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                         { return f.dropped }

func gather(t *testing.T, c prometheus.Collector) map[string]*dto.MetricFamily {
	t.Helper()
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestCollectEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: sessiongate.MetricsSnapshot{
			Counters:   map[sessiongate.MetricID]uint64{},
			Histograms: map[sessiongate.MetricID][]uint64{},
		},
	})

	if families := gather(t, exp); len(families) != 0 {
		t.Fatalf("expected no series for disabled metrics, got %d families", len(families))
	}
}

func TestCollectCountersAndHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: sessiongate.MetricsSnapshot{
			Counters: map[sessiongate.MetricID]uint64{
				sessiongate.MetricLoginSuccess:       7,
				sessiongate.MetricValidateFailClosed: 3,
			},
			Histograms: map[sessiongate.MetricID][]uint64{
				sessiongate.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	families := gather(t, exp)

	if got := families["sessiongate_login_success_total"].GetMetric()[0].GetCounter().GetValue(); got != 7 {
		t.Fatalf("expected login success 7, got %v", got)
	}
	if got := families["sessiongate_validate_fail_closed_total"].GetMetric()[0].GetCounter().GetValue(); got != 3 {
		t.Fatalf("expected fail closed 3, got %v", got)
	}
	if got := families["sessiongate_audit_dropped_total"].GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected audit dropped 2, got %v", got)
	}

	hist := families["sessiongate_validate_latency_seconds"].GetMetric()[0].GetHistogram()
	if hist.GetSampleCount() != 36 {
		t.Fatalf("expected 36 samples, got %d", hist.GetSampleCount())
	}
	buckets := hist.GetBucket()
	if len(buckets) != 7 {
		t.Fatalf("expected 7 finite buckets, got %d", len(buckets))
	}
	if buckets[0].GetUpperBound() != 0.005 || buckets[0].GetCumulativeCount() != 1 {
		t.Fatalf("unexpected first bucket %+v", buckets[0])
	}
	if buckets[6].GetUpperBound() != 0.5 || buckets[6].GetCumulativeCount() != 28 {
		t.Fatalf("unexpected last bucket %+v", buckets[6])
	}
}

func TestCollectSkipsHistogramWhenLatencyDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: sessiongate.MetricsSnapshot{
			Counters:   map[sessiongate.MetricID]uint64{sessiongate.MetricLogout: 1},
			Histograms: map[sessiongate.MetricID][]uint64{},
		},
	})

	families := gather(t, exp)
	if _, ok := families["sessiongate_validate_latency_seconds"]; ok {
		t.Fatal("histogram must be absent when latency is disabled")
	}
	if _, ok := families["sessiongate_logout_total"]; !ok {
		t.Fatal("expected logout counter")
	}
}

func TestHandlerServesExpositionFormat(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: sessiongate.MetricsSnapshot{
			Counters:   map[sessiongate.MetricID]uint64{sessiongate.MetricLoginSuccess: 1},
			Histograms: map[sessiongate.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler(collectors.NewGoCollector()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected text exposition content type, got %q", got)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "sessiongate_login_success_total 1") {
		t.Fatalf("expected login counter in output, got:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected extra collector output, got:\n%s", body)
	}
}
