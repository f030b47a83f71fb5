// internal/app/features/account/account.go
package account

import (
	"context"
	"errors"
	"net/http"

	errorsfeature "github.com/bloomcycle/bloom/internal/app/features/errors"
	checkinstore "github.com/bloomcycle/bloom/internal/app/store/checkins"
	cyclestore "github.com/bloomcycle/bloom/internal/app/store/cycles"
	userstore "github.com/bloomcycle/bloom/internal/app/store/users"
	"github.com/bloomcycle/bloom/internal/app/system/auth"
	"github.com/bloomcycle/bloom/internal/app/system/authutil"
	"github.com/bloomcycle/bloom/internal/app/system/txn"
	"github.com/bloomcycle/bloom/internal/app/system/viewdata"
	"github.com/bloomcycle/bloom/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Flash messages.
const (
	PasswordChangedMessage = "Password updated."
	DeletedMessage         = "Your account and everything you logged have been deleted."
)

// Handler serves the account settings page.
type Handler struct {
	db         *mongo.Database
	users      *userstore.Store
	cycles     *cyclestore.Store
	checkIns   *checkinstore.Store
	sessionMgr *auth.SessionManager
	errLog     *errorsfeature.ErrorLogger
	logger     *zap.Logger
}

// NewHandler creates a new account Handler.
func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		db:         db,
		users:      userstore.New(db),
		cycles:     cyclestore.New(db),
		checkIns:   checkinstore.New(db),
		sessionMgr: sessionMgr,
		errLog:     errLog,
		logger:     logger,
	}
}

// SettingsVM is the view model for the settings page.
type SettingsVM struct {
	viewdata.BaseVM

	// Read-only account details
	FullName        string
	Email           string
	AvgCycleLength  int
	LastPeriodStart string

	PasswordRules string
	PasswordError string
	DeleteError   string
}

// Routes mounts the settings page at /settings.
func Routes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.show)
	r.Post("/password", h.changePassword)
	r.Post("/delete", h.deleteAccount)
	return r
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// load fetches the signed-in user's record.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	u, _ := auth.CurrentUser(r)
	user, err := h.users.GetByID(r.Context(), u.UserID())
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.sessionMgr.DestroySession(w, r)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return nil, false
	}
	if err != nil {
		h.errLog.Log(r, "failed to load user", err)
		errorsfeature.NewHandler().InternalError(w, r)
		return nil, false
	}
	return user, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, user *models.User, vm SettingsVM) {
	vm.BaseVM = viewdata.NewBaseVM(r, "Settings", "/calendar")
	vm.FullName = user.FullName
	vm.Email = deref(user.Email)
	vm.AvgCycleLength = user.AvgCycleLength
	vm.LastPeriodStart = user.LastPeriodStart
	vm.PasswordRules = authutil.PasswordRules()
	templates.Render(w, r, "account/index", vm)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r)
	if !ok {
		return
	}
	h.render(w, r, user, SettingsVM{})
}

// changePassword checks the current password, then stores the new one.
func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	user, ok := h.load(w, r)
	if !ok {
		return
	}

	current := r.FormValue("current_password")
	next := r.FormValue("new_password")
	confirm := r.FormValue("new_password_confirm")

	fail := func(msg string) { h.render(w, r, user, SettingsVM{PasswordError: msg}) }
	switch {
	case user.PasswordHash == nil || !authutil.CheckPassword(current, *user.PasswordHash):
		fail("Your current password is incorrect.")
		return
	case next != confirm:
		fail("The two password fields didn't match.")
		return
	}
	if err := authutil.ValidatePassword(next, deref(user.LoginID)); err != nil {
		fail(err.Error())
		return
	}

	hash, err := authutil.HashPassword(next)
	if err == nil {
		err = h.users.UpdatePassword(r.Context(), user.ID, hash)
	}
	if err != nil {
		h.errLog.Log(r, "failed to update password", err)
		fail("Service temporarily unavailable. Please try again.")
		return
	}

	h.logger.Info("password changed", zap.String("user_id", user.ID.Hex()))
	h.sessionMgr.AddFlash(w, r, PasswordChangedMessage)
	http.Redirect(w, r, "/settings", http.StatusSeeOther)
}

// deleteAccount removes the user's check-ins, periods and account after a
// password confirmation, then ends the session.
func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	user, ok := h.load(w, r)
	if !ok {
		return
	}
	if user.PasswordHash == nil || !authutil.CheckPassword(r.FormValue("password"), *user.PasswordHash) {
		h.render(w, r, user, SettingsVM{DeleteError: "Enter your password to confirm."})
		return
	}

	var checkIns, cycles int64
	err := txn.Run(r.Context(), h.db, h.logger, "delete-account", func(ctx context.Context) error {
		var err error
		if checkIns, err = h.checkIns.DeleteByUser(ctx, user.ID); err != nil {
			return err
		}
		if cycles, err = h.cycles.DeleteByUser(ctx, user.ID); err != nil {
			return err
		}
		_, err = h.users.Delete(ctx, user.ID)
		return err
	})
	if err != nil {
		h.errLog.Log(r, "failed to delete account", err)
		h.render(w, r, user, SettingsVM{DeleteError: "Service temporarily unavailable. Please try again."})
		return
	}

	h.logger.Info("account deleted",
		zap.String("user_id", user.ID.Hex()),
		zap.Int64("check_ins", checkIns),
		zap.Int64("cycles", cycles))
	h.sessionMgr.DestroySession(w, r, DeletedMessage)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
