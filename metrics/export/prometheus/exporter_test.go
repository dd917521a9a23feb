package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/folioauth"
)

type fakeSource struct {
	snapshot folioauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() folioauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: folioauth.MetricsSnapshot{
			Counters:   map[folioauth.MetricID]uint64{},
			Histograms: map[folioauth.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCountersAndHistograms(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: folioauth.MetricsSnapshot{
			Counters: map[folioauth.MetricID]uint64{
				folioauth.MetricLoginSuccess: 7,
				folioauth.MetricLoginLocked:  1,
			},
			Histograms: map[folioauth.MetricID][]uint64{
				folioauth.MetricLoginLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		`folioauth_login_attempts_total{outcome="success"} 7`,
		`folioauth_login_attempts_total{outcome="rate_limited"} 0`,
		"# TYPE folioauth_lockouts_total counter",
		"folioauth_lockouts_total 1",
		`folioauth_refresh_total{outcome="failure"} 0`,
		`folioauth_login_duration_seconds_bucket{le="0.025"} 1`,
		`folioauth_login_duration_seconds_bucket{le="0.05"} 3`,
		`folioauth_login_duration_seconds_bucket{le="2.5"} 28`,
		`folioauth_login_duration_seconds_bucket{le="+Inf"} 36`,
		"folioauth_login_duration_seconds_count 36",
		`folioauth_refresh_duration_seconds_bucket{le="+Inf"} 0`,
		"folioauth_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: folioauth.MetricsSnapshot{
			Counters:   map[folioauth.MetricID]uint64{folioauth.MetricLogout: 1},
			Histograms: map[folioauth.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "folioauth_logout_total 1") {
		t.Fatalf("unexpected body:\n%s", rec.Body.String())
	}
}

func TestRenderNilExporter(t *testing.T) {
	var exp *PrometheusExporter
	if exp.Render() != "" {
		t.Fatal("nil exporter must render nothing")
	}
}
