// Package apilimit throttles JSON API calls with one token bucket per client.
package apilimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bloomcycle/bloom/internal/app/system/jsonutil"
	"github.com/bloomcycle/bloom/internal/app/system/tasks"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out a rate.Limiter per client address.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	// OnReject, when set, is called for every rejected request.
	OnReject func()
}

// New allows rps requests per second with the given burst per client.
// Clients idle for longer than idle are forgotten by Sweep.
func New(rps float64, burst int, idle time.Duration) *Limiter {
	if burst < 1 {
		burst = 1
	}
	if idle <= 0 {
		idle = 3 * time.Minute
	}
	return &Limiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		idle:     idle,
		now:      time.Now,
	}
}

// Middleware answers 429 once a client's bucket is empty.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.get(clientKey(r)).Allow() {
			if l.OnReject != nil {
				l.OnReject()
			}
			w.Header().Set("Retry-After", "1")
			jsonutil.Error(w, http.StatusTooManyRequests, "rate_limited")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = l.now()
	return v.limiter
}

// Sweep forgets idle clients and returns how many were dropped.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idle)
	n := 0
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
			n++
		}
	}
	return n
}

// SweepJob runs Sweep every minute on the background task runner.
func (l *Limiter) SweepJob(logger *zap.Logger) tasks.Job {
	return tasks.Job{
		Name:     "api-limiter-sweep",
		Interval: time.Minute,
		Run: func(ctx context.Context) error {
			if n := l.Sweep(); n > 0 {
				logger.Debug("dropped idle api clients", zap.Int("count", n))
			}
			return nil
		},
	}
}

// clientKey prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// remote address without its port.
func clientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
