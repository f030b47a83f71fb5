// internal/app/features/logout/logout.go
package logout

import (
	"net/http"

	"github.com/bloomcycle/bloom/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// FarewellMessage is flashed on the login page after signing out.
const FarewellMessage = "You've been logged out. See you soon! 🌸"

type Handler struct {
	sessionMgr *auth.SessionManager
	logger     *zap.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{sessionMgr: sessionMgr, logger: logger}
}

// Routes mounts POST / for signed-in members. Signing out is a form post so
// it goes through CSRF like every other state change.
func Routes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.With(sm.RequireSignedIn).Post("/", h.logout)
	return r
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	h.sessionMgr.DestroySession(w, r, FarewellMessage)
	h.logger.Info("member signed out", zap.String("user_id", u.ID), zap.String("login_id", u.LoginID))

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
