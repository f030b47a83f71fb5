// internal/app/features/health/health.go
package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/bloomcycle/bloom/internal/app/system/jsonutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// CheckFunc reports whether one dependency is usable.
type CheckFunc func(ctx context.Context) error

// Handler serves the probes.
type Handler struct {
	checks  map[string]CheckFunc
	version string
	started time.Time
	timeout time.Duration
	logger  *zap.Logger
}

// NewHandler creates a Handler that pings client (when non-nil) on every
// readiness probe.
func NewHandler(client *mongo.Client, version string, logger *zap.Logger) *Handler {
	h := &Handler{
		checks:  map[string]CheckFunc{},
		version: version,
		started: time.Now(),
		timeout: 5 * time.Second,
		logger:  logger,
	}
	if client != nil {
		h.AddCheck("mongodb", func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		})
	}
	return h
}

// AddCheck registers a named dependency check.
func (h *Handler) AddCheck(name string, fn CheckFunc) {
	h.checks[name] = fn
}

// Response is the body of /health.
type Response struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Uptime   string            `json:"uptime"`
	Services map[string]string `json:"services,omitempty"`
}

// Routes mounts /health, /health/ready and /health/live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds the Kubernetes-style probes /ready, /readyz and
// /livez on the root router.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

// run executes every check and returns per-service results.
func (h *Handler) run(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("service", name), zap.Error(err))
			out[name] = "unavailable"
			healthy = false
			continue
		}
		out[name] = "ok"
	}
	return out, healthy
}

// Check reports every dependency, the build version and uptime.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	services, healthy := h.run(r.Context())
	resp := Response{
		Status:   "ok",
		Version:  h.version,
		Uptime:   time.Since(h.started).Round(time.Second).String(),
		Services: services,
	}
	code := http.StatusOK
	if !healthy {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	jsonutil.JSON(w, code, resp)
}

// Ready answers 200 only when every check passes.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if _, healthy := h.run(r.Context()); !healthy {
		jsonutil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	jsonutil.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Live always answers while the process serves requests.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	jsonutil.JSON(w, http.StatusOK, map[string]string{"status": "alive"})
}
