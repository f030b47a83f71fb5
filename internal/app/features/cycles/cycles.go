// internal/app/features/cycles/cycles.go
package cycles

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bloomcycle/bloom/internal/app/calendar"
	errorsfeature "github.com/bloomcycle/bloom/internal/app/features/errors"
	"github.com/bloomcycle/bloom/internal/app/prediction"
	cyclestore "github.com/bloomcycle/bloom/internal/app/store/cycles"
	"github.com/bloomcycle/bloom/internal/app/system/auth"
	"github.com/bloomcycle/bloom/internal/app/system/inputval"
	"github.com/bloomcycle/bloom/internal/app/system/metrics"
	"github.com/bloomcycle/bloom/internal/app/system/viewdata"
	"github.com/bloomcycle/bloom/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Flash messages.
const (
	LoggedMessage  = "Period logged."
	RemovedMessage = "Period removed."
)

// Handler lists, logs and removes periods.
type Handler struct {
	cycles     *cyclestore.Store
	sessionMgr *auth.SessionManager
	clock      calendar.Clock
	metrics    *metrics.Metrics
	errLog     *errorsfeature.ErrorLogger
	logger     *zap.Logger
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, clock calendar.Clock, m *metrics.Metrics,
	errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		cycles:     cyclestore.New(db),
		sessionMgr: sessionMgr,
		clock:      clock,
		metrics:    m,
		errLog:     errLog,
		logger:     logger,
	}
}

// CycleRow is one logged period in the list.
type CycleRow struct {
	ID        string
	StartDate string
	EndDate   string
	Days      int
	Length    int // days until the next logged start, 0 for the latest
}

// CyclesVM is the view model for the periods page.
type CyclesVM struct {
	viewdata.BaseVM
	Error      string
	StartDate  string
	EndDate    string
	Today      string
	Rows       []CycleRow
	AverageGap int
	HasAverage bool
}

// Routes mounts the periods page at /cycles.
func Routes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn, sm.RequireOnboarded)
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/{id}/delete", h.delete)
	return r
}

// buildRows turns the newest-first list into view rows.
func buildRows(list []models.Cycle) []CycleRow {
	out := make([]CycleRow, 0, len(list))
	for i, c := range list {
		row := CycleRow{ID: c.ID.Hex(), StartDate: c.StartDate, EndDate: c.EndDate, Days: 1}
		start, _ := calendar.ParseDate(c.StartDate)
		if end, ok := calendar.ParseDate(c.EndDate); ok {
			row.Days = int(end.Sub(start).Hours()/24) + 1
		}
		if i > 0 {
			if next, ok := calendar.ParseDate(list[i-1].StartDate); ok {
				row.Length = int(next.Sub(start).Hours() / 24)
			}
		}
		out = append(out, row)
	}
	return out
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, vm CyclesVM) {
	u, _ := auth.CurrentUser(r)
	list, err := h.cycles.ListByUser(r.Context(), u.UserID())
	if err != nil {
		h.errLog.Log(r, "failed to list cycles", err)
		errorsfeature.NewHandler().InternalError(w, r)
		return
	}

	vm.BaseVM = viewdata.NewBaseVM(r, "Periods", "/calendar")
	vm.Today = calendar.FormatDate(h.clock.Now())
	vm.Rows = buildRows(list)
	starts := make([]string, 0, len(list))
	for _, c := range list {
		starts = append(starts, c.StartDate)
	}
	vm.AverageGap, vm.HasAverage = prediction.AverageGap(starts)
	templates.Render(w, r, "cycles/index", vm)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, CyclesVM{})
}

// createMessage maps store errors to form messages.
func createMessage(err error) string {
	switch {
	case errors.Is(err, cyclestore.ErrInvalidDate):
		return "Please enter a valid date."
	case errors.Is(err, cyclestore.ErrEndBeforeStart):
		return "End date cannot be before the start date."
	case errors.Is(err, cyclestore.ErrDuplicateStart):
		return "You already logged a period starting on that day."
	}
	return ""
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	u, _ := auth.CurrentUser(r)
	vm := CyclesVM{
		StartDate: strings.TrimSpace(r.FormValue("start_date")),
		EndDate:   strings.TrimSpace(r.FormValue("end_date")),
	}

	if vm.StartDate == "" {
		vm.Error = "Please choose a start date."
		h.render(w, r, vm)
		return
	}
	if inputval.IsISODate(vm.StartDate) && !inputval.IsNotFuture(vm.StartDate, h.clock.Now()) {
		vm.Error = "Start date cannot be in the future."
		h.render(w, r, vm)
		return
	}

	c, err := h.cycles.Create(r.Context(), u.UserID(), vm.StartDate, vm.EndDate)
	if msg := createMessage(err); msg != "" {
		vm.Error = msg
		h.render(w, r, vm)
		return
	}
	if err != nil {
		h.errLog.Log(r, "failed to log period", err)
		vm.Error = "Service temporarily unavailable. Please try again."
		h.render(w, r, vm)
		return
	}

	h.metrics.Period("logged")
	h.logger.Info("period logged", zap.String("user_id", u.ID), zap.String("start", c.StartDate))
	h.sessionMgr.AddFlash(w, r, LoggedMessage)
	http.Redirect(w, r, "/cycles", http.StatusSeeOther)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		errorsfeature.NewHandler().NotFound(w, r)
		return
	}
	u, _ := auth.CurrentUser(r)

	err = h.cycles.Delete(r.Context(), u.UserID(), id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		errorsfeature.NewHandler().NotFound(w, r)
		return
	}
	if err != nil {
		h.errLog.Log(r, "failed to delete period", err)
		errorsfeature.NewHandler().InternalError(w, r)
		return
	}

	h.metrics.Period("removed")
	h.logger.Info("period removed", zap.String("user_id", u.ID), zap.String("cycle_id", id.Hex()))
	h.sessionMgr.AddFlash(w, r, RemovedMessage)
	http.Redirect(w, r, "/cycles", http.StatusSeeOther)
}
