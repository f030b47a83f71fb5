// internal/app/features/login/login.go
package login

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	errorsfeature "github.com/bloomcycle/bloom/internal/app/features/errors"
	"github.com/bloomcycle/bloom/internal/app/store/loginattempts"
	userstore "github.com/bloomcycle/bloom/internal/app/store/users"
	"github.com/bloomcycle/bloom/internal/app/system/auth"
	"github.com/bloomcycle/bloom/internal/app/system/authutil"
	"github.com/bloomcycle/bloom/internal/app/system/metrics"
	"github.com/bloomcycle/bloom/internal/app/system/viewdata"
	"github.com/bloomcycle/bloom/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides login handlers.
type Handler struct {
	userStore  *userstore.Store
	attempts   *loginattempts.Store // nil disables lockout
	sessionMgr *auth.SessionManager
	errLog     *errorsfeature.ErrorLogger
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewHandler creates a new login Handler. attempts may be nil to disable
// the failed-attempt lockout.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	attempts *loginattempts.Store,
	errLog *errorsfeature.ErrorLogger,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		userStore:  userstore.New(db),
		attempts:   attempts,
		sessionMgr: sessionMgr,
		errLog:     errLog,
		metrics:    m,
		logger:     logger,
	}
}

// LoginVM is the view model for the login page.
type LoginVM struct {
	viewdata.BaseVM
	Error     string
	LoginID   string
	ReturnURL string
}

// Routes returns a chi.Router with login routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.showLogin)
	r.Post("/", h.handleLogin)
	return r
}

// landing is where a signed-in user belongs: onboarding first, then the
// calendar (or a safe return URL).
func landing(onboarded bool, returnURL string) string {
	if !onboarded {
		return "/onboarding"
	}
	return urlutil.SafeReturn(returnURL, "", "/calendar")
}

// showLogin displays the login form, or sends signed-in users on their way.
func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, landing(u.Onboarded, query.Get(r, "return")), http.StatusSeeOther)
		return
	}

	vm := LoginVM{
		BaseVM:    viewdata.New(r),
		ReturnURL: query.Get(r, "return"),
	}
	vm.Title = "Welcome back"
	templates.Render(w, r, "login/index", vm)
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, loginID, returnURL, msg string) {
	vm := LoginVM{
		BaseVM:    viewdata.New(r),
		Error:     msg,
		LoginID:   loginID,
		ReturnURL: returnURL,
	}
	vm.Title = "Welcome back"
	templates.Render(w, r, "login/index", vm)
}

// lockoutMessage tells the user how long to wait.
func lockoutMessage(until time.Time, now time.Time) string {
	remaining := until.Sub(now)
	if remaining > time.Minute {
		return fmt.Sprintf("Too many failed login attempts. Please try again in %d minute(s).", int(remaining.Minutes())+1)
	}
	if remaining > 0 {
		return fmt.Sprintf("Too many failed login attempts. Please try again in %d second(s).", int(remaining.Seconds())+1)
	}
	return "Too many failed login attempts. Please try again later."
}

// handleLogin checks the password and starts a session.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	loginID := strings.TrimSpace(r.FormValue("login_id"))
	password := r.FormValue("password")
	returnURL := r.FormValue("return")

	if loginID == "" || password == "" {
		h.renderError(w, r, loginID, returnURL, "Please enter your email or username and password.")
		return
	}

	if h.attempts != nil {
		if locked, until := h.attempts.Locked(r.Context(), loginID); locked {
			h.metrics.Login("locked")
			h.renderError(w, r, loginID, returnURL, lockoutMessage(until, time.Now()))
			return
		}
	}

	user, err := h.userStore.GetByLoginOrEmail(r.Context(), loginID)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		h.errLog.Log(r, "failed to look up user", err)
		h.renderError(w, r, loginID, returnURL, "Service temporarily unavailable. Please try again.")
		return
	}

	// Unknown users and wrong passwords get the same answer.
	if user == nil || user.PasswordHash == nil || !authutil.CheckPassword(password, *user.PasswordHash) {
		h.metrics.Login("invalid")
		if h.attempts != nil && h.attempts.Fail(r.Context(), loginID) {
			h.logger.Info("login locked out", zap.String("login_id", loginID))
			_, until := h.attempts.Locked(r.Context(), loginID)
			h.renderError(w, r, loginID, returnURL, lockoutMessage(until, time.Now()))
			return
		}
		h.renderError(w, r, loginID, returnURL, "Invalid credentials")
		return
	}

	if user.Status == models.StatusDisabled {
		h.metrics.Login("disabled")
		h.renderError(w, r, loginID, returnURL, "Account is disabled")
		return
	}

	if h.attempts != nil {
		if err := h.attempts.Clear(r.Context(), loginID); err != nil {
			h.logger.Warn("failed to clear login attempts", zap.Error(err))
		}
	}

	if err := h.sessionMgr.CreateSession(w, r, user.ID, user.Role); err != nil {
		h.errLog.Log(r, "failed to create session", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.metrics.Login("success")

	http.Redirect(w, r, landing(user.OnboardingComplete, returnURL), http.StatusSeeOther)
}
