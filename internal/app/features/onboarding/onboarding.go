// internal/app/features/onboarding/onboarding.go
package onboarding

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bloomcycle/bloom/internal/app/calendar"
	errorsfeature "github.com/bloomcycle/bloom/internal/app/features/errors"
	userstore "github.com/bloomcycle/bloom/internal/app/store/users"
	"github.com/bloomcycle/bloom/internal/app/system/auth"
	"github.com/bloomcycle/bloom/internal/app/system/inputval"
	"github.com/bloomcycle/bloom/internal/app/system/viewdata"
	"github.com/bloomcycle/bloom/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the start-tracking form.
type Handler struct {
	userStore *userstore.Store
	clock     calendar.Clock
	errLog    *errorsfeature.ErrorLogger
	logger    *zap.Logger
}

func NewHandler(db *mongo.Database, clock calendar.Clock, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		userStore: userstore.New(db),
		clock:     clock,
		errLog:    errLog,
		logger:    logger,
	}
}

// OnboardingVM is the view model for the start-tracking form.
type OnboardingVM struct {
	viewdata.BaseVM
	Error           string
	EditMode        bool
	AvgCycleLength  string
	LastPeriodStart string
	Today           string
	MinCycleLength  int
	MaxCycleLength  int
}

// Routes returns a chi.Router with onboarding routes mounted.
func Routes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.show)
	r.Post("/", h.save)
	return r
}

// input is the validated shape of the form.
type input struct {
	LastPeriodStart string `validate:"required,isodate" label:"Last period start date"`
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, vm OnboardingVM) {
	vm.BaseVM = viewdata.New(r)
	vm.Title = "Start tracking"
	if vm.EditMode {
		vm.Title = "Update your cycle"
	}
	vm.Today = calendar.FormatDate(h.clock.Now())
	vm.MinCycleLength = models.MinCycleLength
	vm.MaxCycleLength = models.MaxCycleLength
	templates.Render(w, r, "onboarding/index", vm)
}

// show renders the form, prefilled for returning users. Onboarded users are
// sent to the calendar unless they asked to edit (?edit=1).
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	edit := r.URL.Query().Get("edit") == "1"
	if u.Onboarded && !edit {
		http.Redirect(w, r, "/calendar", http.StatusSeeOther)
		return
	}

	vm := OnboardingVM{EditMode: edit}
	user, err := h.userStore.GetByID(r.Context(), u.UserID())
	if err != nil {
		h.errLog.Log(r, "failed to load user for onboarding", err)
	} else {
		if user.AvgCycleLength > 0 {
			vm.AvgCycleLength = strconv.Itoa(user.AvgCycleLength)
		}
		vm.LastPeriodStart = user.LastPeriodStart
	}
	if vm.AvgCycleLength == "" {
		vm.AvgCycleLength = strconv.Itoa(models.DefaultCycleLength)
	}
	h.render(w, r, vm)
}

// parseCycleLength mirrors the form's messages for the cycle length field.
func parseCycleLength(s string) (int, string) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, "Please enter a whole number."
	}
	if n < models.MinCycleLength {
		return 0, "Cycle length must be at least 1 days."
	}
	if n > models.MaxCycleLength {
		return 0, "Cycle length must be 30 days or fewer."
	}
	return n, ""
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	u, _ := auth.CurrentUser(r)

	vm := OnboardingVM{
		EditMode:        r.URL.Query().Get("edit") == "1" || r.FormValue("edit") == "1",
		AvgCycleLength:  r.FormValue("avg_cycle_length"),
		LastPeriodStart: strings.TrimSpace(r.FormValue("last_period_start")),
	}

	length, msg := parseCycleLength(vm.AvgCycleLength)
	if msg != "" {
		vm.Error = msg
		h.render(w, r, vm)
		return
	}
	if res := inputval.Validate(input{LastPeriodStart: vm.LastPeriodStart}); res.HasErrors() {
		vm.Error = res.First()
		h.render(w, r, vm)
		return
	}
	if !inputval.IsNotFuture(vm.LastPeriodStart, h.clock.Now()) {
		vm.Error = "Last period start date cannot be in the future."
		h.render(w, r, vm)
		return
	}

	err := h.userStore.CompleteOnboarding(r.Context(), u.UserID(), userstore.OnboardingInput{
		AvgCycleLength:  length,
		LastPeriodStart: vm.LastPeriodStart,
	})
	if err != nil {
		h.errLog.Log(r, "failed to save onboarding", err)
		vm.Error = "Service temporarily unavailable. Please try again."
		h.render(w, r, vm)
		return
	}

	h.logger.Info("onboarding saved", zap.String("user_id", u.ID), zap.Bool("edit", vm.EditMode))
	http.Redirect(w, r, "/calendar", http.StatusSeeOther)
}
