// internal/app/features/calendarpage/calendarpage.go
package calendarpage

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/bloomcycle/bloom/internal/app/calendar"
	errorsfeature "github.com/bloomcycle/bloom/internal/app/features/errors"
	"github.com/bloomcycle/bloom/internal/app/prediction"
	checkinstore "github.com/bloomcycle/bloom/internal/app/store/checkins"
	cyclestore "github.com/bloomcycle/bloom/internal/app/store/cycles"
	userstore "github.com/bloomcycle/bloom/internal/app/store/users"
	"github.com/bloomcycle/bloom/internal/app/system/auth"
	"github.com/bloomcycle/bloom/internal/app/system/jsonutil"
	"github.com/bloomcycle/bloom/internal/app/system/memdom"
	"github.com/bloomcycle/bloom/internal/app/system/metrics"
	"github.com/bloomcycle/bloom/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Session keys holding the widget state between requests.
const (
	cursorKey   = "cal_cursor"
	selectedKey = "cal_selected"
)

const mountID = "calendar"

// MultiDayNotice is flashed when a toggle hits a day inside a longer period.
const MultiDayNotice = "That day belongs to a longer period. Remove it from the Periods page."

// Handler serves the month view, its click endpoint and the month JSON.
type Handler struct {
	userStore  *userstore.Store
	cycles     *cyclestore.Store
	checkIns   *checkinstore.Store
	sessionMgr *auth.SessionManager
	clock      calendar.Clock
	predCfg    prediction.Config
	metrics    *metrics.Metrics
	errLog     *errorsfeature.ErrorLogger
	logger     *zap.Logger
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, clock calendar.Clock, predCfg prediction.Config,
	m *metrics.Metrics, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		userStore:  userstore.New(db),
		cycles:     cyclestore.New(db),
		checkIns:   checkinstore.New(db),
		sessionMgr: sessionMgr,
		clock:      clock,
		predCfg:    predCfg,
		metrics:    m,
		errLog:     errLog,
		logger:     logger,
	}
}

// CalendarVM is the view model for the month page and its widget snippet.
type CalendarVM struct {
	viewdata.BaseVM
	Widget      template.HTML
	Month       string
	Selected    string
	CanCheckIn  bool
	CycleLength int
	NextPeriod  string
	Predictions []calendar.Prediction
	HasHistory  bool
	Notice      string
}

// Routes mounts the page at /calendar.
func Routes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn, sm.RequireOnboarded)
	r.Get("/", h.show)
	r.Get("/click", h.click)
	r.Post("/click", h.click)
	return r
}

// APIRoutes mounts the month JSON at /api/calendar.
func APIRoutes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn, sm.RequireOnboarded)
	r.Get("/", h.month)
	return r
}

// history is everything the widget shows apart from check-ins.
type history struct {
	periods     []calendar.Period
	predictions []calendar.Prediction
	cycleLength int
}

// loadHistory combines logged cycles with the onboarding answers. The
// onboarding start counts as one more start; duplicates are ignored by the
// gap average.
func (h *Handler) loadHistory(ctx context.Context, uid primitive.ObjectID) (history, error) {
	cycles, err := h.cycles.ListByUser(ctx, uid)
	if err != nil {
		return history{}, err
	}
	user, err := h.userStore.GetByID(ctx, uid)
	if err != nil {
		return history{}, fmt.Errorf("load user: %w", err)
	}

	starts := make([]string, 0, len(cycles)+1)
	for _, c := range cycles {
		starts = append(starts, c.StartDate)
	}
	if user.LastPeriodStart != "" {
		starts = append(starts, user.LastPeriodStart)
	}
	return history{
		periods:     cyclestore.Periods(cycles),
		predictions: prediction.Predict(starts, user.AvgCycleLength, h.predCfg, h.clock.Now()),
		cycleLength: prediction.CycleLength(starts, user.AvgCycleLength),
	}, nil
}

// loadCheckIns returns the month's check-ins in calendar form.
func (h *Handler) loadCheckIns(ctx context.Context, uid primitive.ObjectID, m calendar.Month) (calendar.CheckIns, error) {
	from := calendar.FormatDate(m.First())
	to := calendar.FormatDate(m.First().AddDate(0, 0, m.Days()-1))
	list, err := h.checkIns.ListRange(ctx, uid, from, to)
	if err != nil {
		return nil, err
	}
	return checkinstore.CalendarCheckIns(list), nil
}

// toggle is a period toggle requested by the widget during HandleClick.
type toggle struct {
	date     string
	isPeriod bool
}

// session restores the cursor and selection saved by earlier clicks.
func (h *Handler) session(r *http.Request) (calendar.Month, string) {
	m := calendar.MonthOf(h.clock.Now())
	if saved, err := calendar.ParseMonth(h.sessionMgr.Value(r, cursorKey)); err == nil {
		m = saved
	}
	return m, h.sessionMgr.Value(r, selectedKey)
}

// mount builds the widget on a fresh document.
func (h *Handler) mount(hist history, checkIns calendar.CheckIns, m calendar.Month, selected string, pending *toggle) (*calendar.Widget, error) {
	doc := memdom.Parse(`<div id="` + mountID + `"></div>`)
	w, err := calendar.New(doc, mountID, calendar.Options{
		Periods:     hist.periods,
		Predictions: hist.predictions,
		CheckIns:    checkIns,
		Clock:       h.clock,
		Month:       &m,
		OnPeriodToggle: func(date string, isPeriod bool) {
			if pending != nil {
				*pending = toggle{date: date, isPeriod: isPeriod}
			}
		},
	}, h.logger)
	if err != nil {
		return nil, err
	}
	if selected != "" {
		w.Select(selected)
	}
	return w, nil
}

func (h *Handler) viewModel(r *http.Request, w *calendar.Widget, hist history) CalendarVM {
	vm := CalendarVM{
		BaseVM:      viewdata.New(r),
		Widget:      template.HTML(w.HTML()),
		Month:       w.Cursor().String(),
		Selected:    w.Selected(),
		CycleLength: hist.cycleLength,
		Predictions: hist.predictions,
		HasHistory:  len(hist.periods) > 0,
	}
	vm.Title = "Calendar"
	if len(hist.predictions) > 0 {
		vm.NextPeriod = hist.predictions[0].Date
	}
	if d, ok := calendar.ParseDate(vm.Selected); ok {
		today := calendar.FormatDate(h.clock.Now())
		vm.CanCheckIn = calendar.FormatDate(d) <= today
	}
	return vm
}

// show renders the month page. ?month=YYYY-MM jumps the cursor.
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	uid := u.UserID()
	m, selected := h.session(r)
	if q := r.URL.Query().Get("month"); q != "" {
		if jump, err := calendar.ParseMonth(q); err == nil {
			m = jump
		}
	}

	hist, err := h.loadHistory(r.Context(), uid)
	if err != nil {
		h.errLog.Log(r, "failed to load cycle history", err)
		errorsfeature.NewHandler().InternalError(w, r)
		return
	}
	checkIns, err := h.loadCheckIns(r.Context(), uid, m)
	if err != nil {
		h.errLog.Log(r, "failed to load check-ins", err)
		errorsfeature.NewHandler().InternalError(w, r)
		return
	}

	widget, err := h.mount(hist, checkIns, m, selected, nil)
	if err != nil {
		h.errLog.Log(r, "failed to mount calendar", err)
		errorsfeature.NewHandler().InternalError(w, r)
		return
	}
	templates.Render(w, r, "calendarpage/index", h.viewModel(r, widget, hist))
}

// click applies one widget click (?action= and/or ?date=) and answers with
// the widget snippet for HTMX, or redirects back to the page otherwise.
// Toggling a period day changes data and is accepted on POST only.
func (h *Handler) click(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	target := calendar.Target{
		Action: strings.TrimSpace(r.FormValue("action")),
		Date:   strings.TrimSpace(r.FormValue("date")),
	}
	if target.Action == calendar.ActionTogglePeriod && r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	u, _ := auth.CurrentUser(r)
	uid := u.UserID()
	ctx := r.Context()
	m, selected := h.session(r)

	hist, err := h.loadHistory(ctx, uid)
	if err != nil {
		h.errLog.Log(r, "failed to load cycle history", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	checkIns, err := h.loadCheckIns(ctx, uid, m)
	if err != nil {
		h.errLog.Log(r, "failed to load check-ins", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var pending toggle
	widget, err := h.mount(hist, checkIns, m, selected, &pending)
	if err != nil {
		h.errLog.Log(r, "failed to mount calendar", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	widget.HandleClick(target)

	notice := ""
	if pending.date != "" {
		notice, err = h.applyToggle(ctx, uid, pending)
		if err != nil {
			h.errLog.Log(r, "failed to toggle period day", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if hist, err = h.loadHistory(ctx, uid); err != nil {
			h.errLog.Log(r, "failed to reload cycle history", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		widget.UpdatePeriods(hist.periods)
		widget.UpdatePredictions(hist.predictions)
	}
	if widget.Cursor() != m {
		fresh, err := h.loadCheckIns(ctx, uid, widget.Cursor())
		if err != nil {
			h.errLog.Log(r, "failed to load check-ins", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		widget.UpdateCheckIns(fresh)
	}

	htmx := r.Header.Get("HX-Request") == "true"
	var flashes []string
	if notice != "" && !htmx {
		flashes = append(flashes, notice)
	}
	if err := h.sessionMgr.SetValues(w, r, map[string]string{
		cursorKey:   widget.Cursor().String(),
		selectedKey: widget.Selected(),
	}, flashes...); err != nil {
		h.logger.Warn("failed to save calendar state", zap.Error(err))
	}

	if !htmx {
		http.Redirect(w, r, "/calendar", http.StatusSeeOther)
		return
	}
	vm := h.viewModel(r, widget, hist)
	vm.Notice = notice
	templates.RenderSnippet(w, "calendarpage_widget", vm)
}

// applyToggle marks or unmarks date as a period day. Neighbouring periods
// grow, shrink or merge so back-to-back days stay one period. Days inside
// longer periods are left alone and a notice is returned instead.
func (h *Handler) applyToggle(ctx context.Context, uid primitive.ObjectID, t toggle) (string, error) {
	if !t.isPeriod {
		if err := h.cycles.AddDay(ctx, uid, t.date); err != nil {
			return "", err
		}
		h.metrics.Period("logged")
		h.logger.Info("period day logged", zap.String("user_id", uid.Hex()), zap.String("date", t.date))
		return "", nil
	}

	err := h.cycles.RemoveDay(ctx, uid, t.date)
	if errors.Is(err, cyclestore.ErrInsidePeriod) {
		return MultiDayNotice, nil
	}
	if err != nil {
		return "", err
	}
	h.metrics.Period("removed")
	h.logger.Info("period day removed", zap.String("user_id", uid.Hex()), zap.String("date", t.date))
	return "", nil
}

// monthJSON is the /api/calendar payload.
type monthJSON struct {
	Month       string                `json:"month"`
	Today       string                `json:"today"`
	CycleLength int                   `json:"cycle_length"`
	Periods     []calendar.Period     `json:"periods"`
	Predictions []calendar.Prediction `json:"predictions"`
	CheckIns    calendar.CheckIns     `json:"check_ins"`
}

// month serves one month of data as JSON. ?month=YYYY-MM, default the
// current month.
func (h *Handler) month(w http.ResponseWriter, r *http.Request) {
	m := calendar.MonthOf(h.clock.Now())
	if q := r.URL.Query().Get("month"); q != "" {
		parsed, err := calendar.ParseMonth(q)
		if err != nil {
			jsonutil.BadRequest(w, "invalid month, want YYYY-MM")
			return
		}
		m = parsed
	}

	u, _ := auth.CurrentUser(r)
	uid := u.UserID()
	hist, err := h.loadHistory(r.Context(), uid)
	if err != nil {
		h.errLog.Log(r, "failed to load cycle history", err)
		jsonutil.InternalError(w, "could not load calendar")
		return
	}
	checkIns, err := h.loadCheckIns(r.Context(), uid, m)
	if err != nil {
		h.errLog.Log(r, "failed to load check-ins", err)
		jsonutil.InternalError(w, "could not load calendar")
		return
	}

	out := monthJSON{
		Month:       m.String(),
		Today:       calendar.FormatDate(h.clock.Now()),
		CycleLength: hist.cycleLength,
		Periods:     hist.periods,
		Predictions: hist.predictions,
		CheckIns:    checkIns,
	}
	if out.Periods == nil {
		out.Periods = []calendar.Period{}
	}
	if out.Predictions == nil {
		out.Predictions = []calendar.Prediction{}
	}
	jsonutil.JSON(w, http.StatusOK, out)
}
