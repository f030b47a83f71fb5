package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_LabelsRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/cycles/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/private", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusForbidden)
	})

	for _, p := range []string{"/cycles/a", "/cycles/b", "/private"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	if got := promtest.ToFloat64(m.requests.WithLabelValues("/cycles/{id}", "GET", "204")); got != 2 {
		t.Errorf("requests{/cycles/{id}} = %v, want 2", got)
	}
	if got := promtest.ToFloat64(m.authRejections.WithLabelValues("403_forbidden")); got != 1 {
		t.Errorf("auth rejections = %v, want 1", got)
	}
}

func TestMiddleware_DefaultStatus(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hi"))
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := promtest.ToFloat64(m.requests.WithLabelValues("/", "GET", "200")); got != 1 {
		t.Errorf("requests{/} = %v, want 1", got)
	}
}

func TestDomainCounters(t *testing.T) {
	m := New()
	m.Login("success")
	m.Login("invalid")
	m.Login("invalid")
	m.CheckIn("dismiss")
	m.Period("logged")
	m.RateLimited()

	if got := promtest.ToFloat64(m.logins.WithLabelValues("invalid")); got != 2 {
		t.Errorf("logins{invalid} = %v, want 2", got)
	}
	if got := promtest.ToFloat64(m.rateLimited); got != 1 {
		t.Errorf("rate limited = %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Login("success")
	m.CheckIn("complete")
	m.Period("removed")
	m.RateLimited()
}

func TestHandler_Exposes(t *testing.T) {
	m := New()
	m.CheckIn("complete")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `bloom_checkins_total{action="complete"} 1`) {
		t.Error("exposition missing bloom_checkins_total")
	}
}
