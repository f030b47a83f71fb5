// internal/app/features/signup/signup.go
package signup

import (
	"errors"
	"net/http"

	errorsfeature "github.com/bloomcycle/bloom/internal/app/features/errors"
	userstore "github.com/bloomcycle/bloom/internal/app/store/users"
	"github.com/bloomcycle/bloom/internal/app/system/auth"
	"github.com/bloomcycle/bloom/internal/app/system/authutil"
	"github.com/bloomcycle/bloom/internal/app/system/viewdata"
	"github.com/bloomcycle/bloom/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides account creation handlers.
type Handler struct {
	userStore  *userstore.Store
	sessionMgr *auth.SessionManager
	errLog     *errorsfeature.ErrorLogger
	logger     *zap.Logger
}

// NewHandler creates a new signup Handler.
func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		userStore:  userstore.New(db),
		sessionMgr: sessionMgr,
		errLog:     errLog,
		logger:     logger,
	}
}

// SignupVM is the view model for the signup page. Passwords are never
// echoed back.
type SignupVM struct {
	viewdata.BaseVM
	Error         string
	FullName      string
	LoginID       string
	Email         string
	PasswordRules string
}

// Routes returns a chi.Router with signup routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.show)
	r.Post("/", h.create)
	return r
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, vm SignupVM) {
	vm.BaseVM = viewdata.New(r)
	vm.Title = "Create your account"
	vm.PasswordRules = authutil.PasswordRules()
	templates.Render(w, r, "signup/index", vm)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/calendar", http.StatusSeeOther)
		return
	}
	h.render(w, r, SignupVM{})
}

// create registers the account, signs the user in and starts onboarding.
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	vm := SignupVM{
		FullName: r.FormValue("full_name"),
		LoginID:  r.FormValue("login_id"),
		Email:    r.FormValue("email"),
	}

	res, err := authutil.ResolveSignup(authutil.SignupInput{
		FullName: vm.FullName,
		LoginID:  vm.LoginID,
		Email:    vm.Email,
		Password: r.FormValue("password"),
		Confirm:  r.FormValue("password_confirm"),
	})
	if err != nil {
		vm.Error = err.Error()
		h.render(w, r, vm)
		return
	}

	user, err := h.userStore.Create(r.Context(), userstore.CreateInput{
		FullName:     res.FullName,
		LoginID:      res.LoginID,
		Email:        res.Email,
		Role:         models.RoleUser,
		PasswordHash: res.PasswordHash,
	})
	if errors.Is(err, userstore.ErrDuplicateLoginID) {
		vm.Error = "A user with that username already exists."
		h.render(w, r, vm)
		return
	}
	if err != nil {
		h.errLog.Log(r, "failed to create user", err)
		vm.Error = "Service temporarily unavailable. Please try again."
		h.render(w, r, vm)
		return
	}

	if err := h.sessionMgr.CreateSession(w, r, user.ID, user.Role); err != nil {
		h.errLog.Log(r, "failed to create session", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("account created", zap.String("user_id", user.ID.Hex()))

	http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
}
