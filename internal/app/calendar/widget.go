// Package calendar implements the month-grid widget: it keeps a month cursor
// and a selected date, classifies each day against the injected periods,
// predictions and check-ins, and renders the grid into a mount element.
//
// Every mutation re-renders the whole grid. Injected collections are read,
// never modified.
package calendar

import (
	"errors"
	"time"

	"github.com/bloomcycle/bloom/internal/app/system/dom"
	"go.uber.org/zap"
)

// ErrMountNotFound is returned by New when the mount element does not exist.
var ErrMountNotFound = errors.New("calendar: mount element not found")

// Actions carried by data-action attributes.
const (
	ActionPrevMonth    = "prev-month"
	ActionNextMonth    = "next-month"
	ActionTogglePeriod = "toggle-period"
)

// Clock supplies "today".
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Options configures a Widget. Every field is optional.
type Options struct {
	Periods     []Period
	Predictions []Prediction
	CheckIns    CheckIns

	// OnDateClick runs after a day click has re-rendered the grid.
	OnDateClick func(date string)
	// OnPeriodToggle runs for a toggle-period action with the date's current
	// period classification.
	OnPeriodToggle func(date string, isPeriod bool)

	Clock Clock
	// Month overrides the initial cursor, which otherwise is the clock's month.
	Month *Month
}

// Target describes what was clicked inside the widget.
type Target struct {
	Action string
	Date   string
	Filler bool
}

// Widget is a calendar bound to a mount element.
type Widget struct {
	mount  dom.Element
	logger *zap.Logger

	periods     []Period
	predictions []Prediction
	checkIns    CheckIns

	onDateClick    func(string)
	onPeriodToggle func(string, bool)
	clock          Clock

	cursor   Month
	selected string
	grid     Grid
}

// New mounts a widget on the element with mountID and renders it.
func New(doc dom.Document, mountID string, opts Options, logger *zap.Logger) (*Widget, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mount := doc.GetElementByID(mountID)
	if mount == nil {
		logger.Error("calendar mount not found", zap.String("mount_id", mountID))
		return nil, ErrMountNotFound
	}

	w := &Widget{
		mount:          mount,
		logger:         logger,
		periods:        opts.Periods,
		predictions:    opts.Predictions,
		checkIns:       opts.CheckIns,
		onDateClick:    opts.OnDateClick,
		onPeriodToggle: opts.OnPeriodToggle,
		clock:          opts.Clock,
	}
	if w.checkIns == nil {
		w.checkIns = CheckIns{}
	}
	if w.onDateClick == nil {
		w.onDateClick = func(string) {}
	}
	if w.onPeriodToggle == nil {
		w.onPeriodToggle = func(string, bool) {}
	}
	if w.clock == nil {
		w.clock = systemClock{}
	}
	w.cursor = MonthOf(w.clock.Now())
	if opts.Month != nil {
		w.cursor = *opts.Month
	}

	mount.AddEventListener("click", w.onClick)
	w.render()
	return w, nil
}

// onClick maps a DOM click inside the mount to a Target.
func (w *Widget) onClick(e *dom.Event) {
	if e.Target == nil {
		return
	}
	if el := e.Target.Closest("[data-action]"); el != nil {
		w.HandleClick(Target{Action: el.Dataset("action"), Date: el.Dataset("date")})
		return
	}
	if cell := e.Target.Closest(".calendar-day"); cell != nil {
		w.HandleClick(Target{
			Date:   cell.Dataset("date"),
			Filler: cell.HasClass("calendar-day-other"),
		})
	}
}

// HandleClick applies a click and reports whether it did anything.
func (w *Widget) HandleClick(t Target) bool {
	switch t.Action {
	case ActionPrevMonth:
		w.PrevMonth()
		return true
	case ActionNextMonth:
		w.NextMonth()
		return true
	case ActionTogglePeriod:
		if _, ok := ParseDate(t.Date); !ok {
			return false
		}
		w.onPeriodToggle(t.Date, InPeriod(t.Date, w.periods))
		return true
	case "":
	default:
		w.logger.Debug("unknown calendar action", zap.String("action", t.Action))
		return false
	}

	if t.Filler || t.Date == "" {
		return false
	}
	if _, ok := ParseDate(t.Date); !ok {
		return false
	}
	w.selected = t.Date
	w.render()
	w.onDateClick(t.Date)
	return true
}

// PrevMonth moves the cursor back one month. Selection is kept.
func (w *Widget) PrevMonth() {
	w.cursor = w.cursor.Add(-1)
	w.render()
}

// NextMonth moves the cursor forward one month. Selection is kept.
func (w *Widget) NextMonth() {
	w.cursor = w.cursor.Add(1)
	w.render()
}

// UpdatePeriods replaces the periods and re-renders.
func (w *Widget) UpdatePeriods(periods []Period) {
	w.periods = periods
	w.render()
}

// UpdatePredictions replaces the predictions and re-renders.
func (w *Widget) UpdatePredictions(predictions []Prediction) {
	w.predictions = predictions
	w.render()
}

// UpdateCheckIns replaces the check-ins and re-renders.
func (w *Widget) UpdateCheckIns(checkIns CheckIns) {
	if checkIns == nil {
		checkIns = CheckIns{}
	}
	w.checkIns = checkIns
	w.render()
}

// SetCursor jumps to m and re-renders.
func (w *Widget) SetCursor(m Month) {
	w.cursor = m
	w.render()
}

// Select restores a selection without firing OnDateClick.
func (w *Widget) Select(date string) {
	if _, ok := ParseDate(date); !ok {
		return
	}
	w.selected = date
	w.render()
}

// Cursor returns the displayed month.
func (w *Widget) Cursor() Month { return w.cursor }

// Selected returns the selected ISO date, or "".
func (w *Widget) Selected() string { return w.selected }

// Grid returns the cell model of the last render.
func (w *Widget) Grid() Grid { return w.grid }

// HTML returns the mount's current markup.
func (w *Widget) HTML() string { return w.mount.InnerHTML() }

func (w *Widget) render() {
	w.grid = BuildGrid(w.cursor, State{
		Periods:     w.periods,
		Predictions: w.predictions,
		CheckIns:    w.checkIns,
		Selected:    w.selected,
		Today:       FormatDate(w.clock.Now()),
	})
	out, err := Render(w.grid, w.selected)
	if err != nil {
		w.logger.Error("calendar render failed", zap.Error(err), zap.String("month", w.cursor.String()))
		return
	}
	w.mount.SetInnerHTML(out)
}
