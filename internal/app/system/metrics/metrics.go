// Package metrics exposes Prometheus counters for Bloom's HTTP traffic and
// domain events.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
// All recording methods are safe on a nil *Metrics.
type Metrics struct {
	reg *prometheus.Registry

	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	authRejections *prometheus.CounterVec
	logins         *prometheus.CounterVec
	checkIns       *prometheus.CounterVec
	periods        *prometheus.CounterVec
	rateLimited    prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bloom",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bloom",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		authRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bloom",
			Name:      "auth_rejections_total",
			Help:      "Requests answered with 401 or 403.",
		}, []string{"reason"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bloom",
			Name:      "logins_total",
			Help:      "Password sign-in attempts by result.",
		}, []string{"result"}),
		checkIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bloom",
			Name:      "checkins_total",
			Help:      "Daily check-in actions.",
		}, []string{"action"}),
		periods: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bloom",
			Name:      "periods_total",
			Help:      "Logged and removed periods.",
		}, []string{"action"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bloom",
			Name:      "api_rate_limited_total",
			Help:      "API requests rejected by the per-client limiter.",
		}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.authRejections,
		m.logins, m.checkIns, m.periods, m.rateLimited,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Middleware records every request. Routes are labelled with chi's route
// pattern (e.g. /cycles/{id}/delete) to keep label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		route := routePattern(r)
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(code)).Inc()
		m.duration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())

		switch code {
		case http.StatusUnauthorized:
			m.authRejections.WithLabelValues("401_unauthorized").Inc()
		case http.StatusForbidden:
			m.authRejections.WithLabelValues("403_forbidden").Inc()
		}
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// Login records a sign-in outcome: success, invalid, locked or disabled.
func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

// CheckIn records a daily prompt or journal action.
func (m *Metrics) CheckIn(action string) {
	if m == nil {
		return
	}
	m.checkIns.WithLabelValues(action).Inc()
}

// Period records a period being logged or removed.
func (m *Metrics) Period(action string) {
	if m == nil {
		return
	}
	m.periods.WithLabelValues(action).Inc()
}

// RateLimited counts one rejected API request.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
