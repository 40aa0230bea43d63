package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goolstar "github.com/juanqui-art/goolstar-go"
)

type fakeSource struct {
	snapshot goolstar.MetricsSnapshot
}

func (f fakeSource) MetricsSnapshot() goolstar.MetricsSnapshot { return f.snapshot }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goolstar.MetricsSnapshot{
			Counters: map[goolstar.MetricID]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesEveryCounter(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goolstar.MetricsSnapshot{
			Counters: map[goolstar.MetricID]uint64{
				goolstar.MetricLoginSuccess: 7,
				goolstar.MetricCacheHit:     3,
			},
		},
	})

	out := exp.Render()
	if !strings.Contains(out, "goolstar_login_success_total 7") {
		t.Fatalf("expected login_success counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "goolstar_cache_hit_total 3") {
		t.Fatalf("expected cache_hit counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "goolstar_staff_denied_total 0") {
		t.Fatalf("expected zero-valued counters to still render, got:\n%s", out)
	}
	if !strings.Contains(out, "# TYPE goolstar_login_success_total counter") {
		t.Fatalf("expected TYPE line, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goolstar.MetricsSnapshot{
			Counters: map[goolstar.MetricID]uint64{goolstar.MetricLoginSuccess: 1},
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
}
