// internal/app/features/checkin/api.go
package checkin

import (
	"errors"
	"net/http"
	"strings"

	checkinstore "github.com/bloomcycle/bloom/internal/app/store/checkins"
	"github.com/bloomcycle/bloom/internal/app/system/auth"
	"github.com/bloomcycle/bloom/internal/app/system/jsonutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MaxResponseLength caps answers to the daily prompt.
const MaxResponseLength = 2000

// APIRoutes mounts the daily prompt endpoints at /api/checkin. Each acts on
// today's record only.
func APIRoutes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Post("/dismiss", h.dismiss)
	r.Post("/complete", h.complete)
	r.Post("/refresh", h.refresh)
	return r
}

// dismiss closes today's prompt. It always reports dismissed: a prompt that
// is already resolved needs nothing more.
func (h *Handler) dismiss(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	err := h.checkIns.Dismiss(r.Context(), u.UserID(), h.prompts.Today())
	if err != nil && !errors.Is(err, checkinstore.ErrNotActionable) {
		h.errLog.Log(r, "failed to dismiss check-in", err)
		jsonutil.InternalError(w, "could not dismiss check-in")
		return
	}
	if err == nil {
		h.metrics.CheckIn("dismissed")
	}
	jsonutil.Status(w, http.StatusOK, "dismissed", nil)
}

// complete stores the answer (form field "response").
func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		jsonutil.BadRequest(w, "invalid form")
		return
	}
	response := strings.TrimSpace(r.FormValue("response"))
	if len([]rune(response)) > MaxResponseLength {
		response = string([]rune(response)[:MaxResponseLength])
	}

	u, _ := auth.CurrentUser(r)
	err := h.checkIns.Complete(r.Context(), u.UserID(), h.prompts.Today(), response)
	switch {
	case errors.Is(err, checkinstore.ErrNotActionable):
		jsonutil.Status(w, http.StatusOK, "already_resolved", nil)
	case err != nil:
		h.errLog.Log(r, "failed to complete check-in", err)
		jsonutil.InternalError(w, "could not save check-in")
	default:
		h.metrics.CheckIn("completed")
		h.logger.Info("daily prompt answered", zap.String("user_id", u.ID))
		jsonutil.Status(w, http.StatusOK, "completed", nil)
	}
}

// refresh swaps today's prompt for a different one.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	ctx := r.Context()
	next, err := h.checkIns.RefreshPrompt(ctx, u.UserID(), h.prompts.Today(), func(current string) string {
		return h.prompts.Bank().Next(ctx, current)
	})
	switch {
	case errors.Is(err, checkinstore.ErrNotActionable):
		jsonutil.Status(w, http.StatusBadRequest, "not_actionable", nil)
	case err != nil:
		h.errLog.Log(r, "failed to refresh prompt", err)
		jsonutil.InternalError(w, "could not refresh prompt")
	default:
		h.metrics.CheckIn("refreshed")
		jsonutil.Status(w, http.StatusOK, "ok", map[string]any{"prompt": next})
	}
}
