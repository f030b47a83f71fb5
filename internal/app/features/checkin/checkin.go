// internal/app/features/checkin/checkin.go
package checkin

import (
	"errors"
	"html/template"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/bloomcycle/bloom/internal/app/calendar"
	errorsfeature "github.com/bloomcycle/bloom/internal/app/features/errors"
	"github.com/bloomcycle/bloom/internal/app/pagebehaviors"
	checkinstore "github.com/bloomcycle/bloom/internal/app/store/checkins"
	"github.com/bloomcycle/bloom/internal/app/system/auth"
	"github.com/bloomcycle/bloom/internal/app/system/dailyprompt"
	"github.com/bloomcycle/bloom/internal/app/system/dom"
	"github.com/bloomcycle/bloom/internal/app/system/draftstore"
	"github.com/bloomcycle/bloom/internal/app/system/htmlsanitize"
	"github.com/bloomcycle/bloom/internal/app/system/inputval"
	"github.com/bloomcycle/bloom/internal/app/system/memdom"
	"github.com/bloomcycle/bloom/internal/app/system/metrics"
	"github.com/bloomcycle/bloom/internal/app/system/normalize"
	"github.com/bloomcycle/bloom/internal/app/system/viewdata"
	"github.com/bloomcycle/bloom/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// SavedMessage is flashed after a check-in is saved.
const SavedMessage = "Check-in saved. Thank you for taking a moment 🌸"

// MaxNotesLength caps the journal notes.
const MaxNotesLength = 2000

// recentDays is how far back the page lists earlier check-ins.
const recentDays = 14

// Energy levels offered on the form.
var energyLevels = []string{"low", "medium", "high"}

// formMarkup is the field model of the check-in form. The page template
// renders the same names; drafts are applied to this model on the server.
const formMarkup = `<form class="check-in-form">
<input type="hidden" id="mood-input" name="mood">
<input type="radio" name="energy" value="low">
<input type="radio" name="energy" value="medium">
<input type="radio" name="energy" value="high">
<textarea name="notes"></textarea>
</form>`

// Handler serves the check-in form and the daily prompt API.
type Handler struct {
	checkIns   *checkinstore.Store
	sessionMgr *auth.SessionManager
	prompts    *dailyprompt.Loader
	clock      calendar.Clock
	metrics    *metrics.Metrics
	errLog     *errorsfeature.ErrorLogger
	logger     *zap.Logger
}

func NewHandler(db *mongo.Database, sessionMgr *auth.SessionManager, prompts *dailyprompt.Loader, clock calendar.Clock,
	m *metrics.Metrics, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		checkIns:   checkinstore.New(db),
		sessionMgr: sessionMgr,
		prompts:    prompts,
		clock:      clock,
		metrics:    m,
		errLog:     errLog,
		logger:     logger,
	}
}

// MoodOption is one button of the mood picker.
type MoodOption struct {
	Key    string
	Glyph  string
	Active bool
}

// EnergyOption is one energy radio.
type EnergyOption struct {
	Key     string
	Checked bool
}

// RecentEntry is an earlier check-in listed under the form.
type RecentEntry struct {
	Date    string
	Mood    string
	Glyph   string
	Energy  string
	Notes   template.HTML
	Excerpt string
}

// CheckInVM is the view model for the check-in page.
type CheckInVM struct {
	viewdata.BaseVM
	Error     string
	Date      string
	Today     string
	Mood      string
	Notes     string
	Moods     []MoodOption
	Energies  []EnergyOption
	Prompt    string
	Response  string
	Completed bool
	MaxNotes  int
	Recent    []RecentEntry
}

// Routes mounts the form at /checkin.
func Routes(h *Handler, sm *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn, sm.RequireOnboarded)
	r.Get("/", h.show)
	r.Post("/", h.save)
	r.Post("/draft", h.draft)
	return r
}

// fields is what the form shows.
type fields struct {
	Mood   string
	Energy string
	Notes  string
}

// formModel builds the form with f filled in.
func formModel(f fields) (*memdom.Document, dom.Element) {
	doc := memdom.Parse(formMarkup)
	form := doc.QuerySelector(".check-in-form")
	for _, el := range form.QuerySelectorAll("input, textarea") {
		switch el.Name() {
		case "mood":
			el.SetValue(f.Mood)
		case "notes":
			el.SetValue(f.Notes)
		case "energy":
			if el.Value() == f.Energy {
				el.SetAttribute("checked", "checked")
			}
		}
	}
	return doc, form
}

// read collects the values back out of the form model.
func read(form dom.Element) fields {
	var f fields
	for _, el := range form.QuerySelectorAll("input, textarea") {
		switch el.Name() {
		case "mood":
			f.Mood = el.Value()
		case "notes":
			f.Notes = el.Value()
		case "energy":
			if _, ok := el.GetAttribute("checked"); ok {
				f.Energy = el.Value()
			}
		}
	}
	return f
}

// fieldByName finds a draftable field of the form model.
func fieldByName(form dom.Element, name string) *memdom.Element {
	for _, el := range form.QuerySelectorAll("input, textarea") {
		if el.Name() == name {
			return el.(*memdom.Element)
		}
	}
	return nil
}

func moodOptions(active string) []MoodOption {
	out := make([]MoodOption, 0, len(calendar.Moods()))
	for _, m := range calendar.Moods() {
		out = append(out, MoodOption{Key: m, Glyph: calendar.MoodGlyph(m), Active: m == active})
	}
	return out
}

func energyOptions(checked string) []EnergyOption {
	out := make([]EnergyOption, 0, len(energyLevels))
	for _, e := range energyLevels {
		out = append(out, EnergyOption{Key: e, Checked: e == checked})
	}
	return out
}

func isEnergy(s string) bool {
	for _, e := range energyLevels {
		if e == s {
			return true
		}
	}
	return false
}

// dateParam returns the requested date, or today when it is missing,
// malformed or in the future.
func (h *Handler) dateParam(r *http.Request) (string, string) {
	today := calendar.FormatDate(h.clock.Now())
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	switch {
	case date == "":
		return today, ""
	case !inputval.IsISODate(date):
		return today, "That date isn't valid, so we opened today instead."
	case !inputval.IsNotFuture(date, h.clock.Now()):
		return today, "Check-ins can't be in the future, so we opened today instead."
	}
	return date, ""
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, vm CheckInVM, f fields) {
	u, _ := auth.CurrentUser(r)
	vm.BaseVM = viewdata.NewBaseVM(r, "Check in", "/calendar")
	vm.Today = calendar.FormatDate(h.clock.Now())
	vm.MaxNotes = MaxNotesLength
	vm.Mood = f.Mood
	vm.Notes = f.Notes
	vm.Moods = moodOptions(f.Mood)
	vm.Energies = energyOptions(f.Energy)

	from := calendar.FormatDate(h.clock.Now().AddDate(0, 0, -recentDays))
	list, err := h.checkIns.ListRange(r.Context(), u.UserID(), from, vm.Today)
	if err != nil {
		h.errLog.Log(r, "failed to list recent check-ins", err)
	}
	for i := len(list) - 1; i >= 0; i-- {
		c := list[i]
		if c.Status != models.CheckInCompleted || c.Date == vm.Date {
			continue
		}
		e := RecentEntry{Date: c.Date, Mood: c.Mood, Energy: c.Energy, Notes: htmlsanitize.PrepareForDisplay(c.Notes), Excerpt: htmlsanitize.Excerpt(c.Notes, 80)}
		if c.Mood != "" {
			e.Glyph = calendar.MoodGlyph(c.Mood)
		}
		vm.Recent = append(vm.Recent, e)
	}
	templates.Render(w, r, "checkin/index", vm)
}

// show renders the form for ?date= (default today). Saved values come
// first; drafts recorded since then override them.
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	date, notice := h.dateParam(r)
	vm := CheckInVM{Date: date, Error: notice}

	var saved fields
	rec, err := h.checkIns.Get(r.Context(), u.UserID(), date)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
	case err != nil:
		h.errLog.Log(r, "failed to load check-in", err)
	default:
		saved = fields{Mood: rec.Mood, Energy: rec.Energy, Notes: rec.Notes}
		vm.Prompt = rec.PromptText
		vm.Response = rec.ResponseText
		vm.Completed = rec.Status == models.CheckInCompleted
	}

	doc, form := formModel(saved)
	pagebehaviors.InitCheckInForm(doc, draftstore.Load(h.sessionMgr, r))
	h.render(w, r, vm, read(form))
}

// draft records one field change (name, value) the way the browser form
// does on its change event.
func (h *Handler) draft(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	value := clampNotes(r.FormValue("value"))

	doc, form := formModel(fields{})
	store := draftstore.Load(h.sessionMgr, r)
	pagebehaviors.InitCheckInForm(doc, store)

	field := fieldByName(form, name)
	if field == nil {
		http.Error(w, "unknown field", http.StatusBadRequest)
		return
	}
	field.SetValue(value)
	field.Dispatch("change")

	if err := store.Save(w); err != nil {
		h.errLog.Log(r, "failed to save draft", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// clampNotes cuts s to MaxNotesLength characters.
func clampNotes(s string) string {
	if utf8.RuneCountInString(s) <= MaxNotesLength {
		return s
	}
	return string([]rune(s)[:MaxNotesLength])
}

// entryInput is the validated shape of a submitted check-in.
type entryInput struct {
	Date string `validate:"required,isodate" label:"Date"`
	Mood string `validate:"mood" label:"Mood"`
}

// save stores the entry, marks the day completed and clears the drafts.
func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	u, _ := auth.CurrentUser(r)

	date := strings.TrimSpace(r.FormValue("date"))
	f := fields{
		Mood:   normalize.Mood(r.FormValue("mood")),
		Energy: normalize.Status(r.FormValue("energy")),
		Notes:  normalize.Notes(r.FormValue("notes")),
	}
	vm := CheckInVM{Date: date}

	if res := inputval.Validate(entryInput{Date: date, Mood: f.Mood}); res.HasErrors() {
		vm.Error = res.First()
		if !inputval.IsISODate(date) {
			vm.Date = calendar.FormatDate(h.clock.Now())
		}
		h.render(w, r, vm, f)
		return
	}
	if !inputval.IsNotFuture(date, h.clock.Now()) {
		vm.Error = "Date cannot be in the future."
		vm.Date = calendar.FormatDate(h.clock.Now())
		h.render(w, r, vm, f)
		return
	}
	if f.Energy != "" && !isEnergy(f.Energy) {
		vm.Error = "Energy must be one of: " + strings.Join(energyLevels, ", ") + "."
		h.render(w, r, vm, f)
		return
	}
	if len([]rune(f.Notes)) > MaxNotesLength {
		vm.Error = "Notes must be at most 2000 characters."
		h.render(w, r, vm, f)
		return
	}
	if f.Mood == "" && f.Energy == "" && f.Notes == "" {
		vm.Error = "Pick a mood or write a few words first."
		h.render(w, r, vm, f)
		return
	}

	if _, err := h.checkIns.SaveEntry(r.Context(), u.UserID(), date, checkinstore.Entry{
		Mood:   f.Mood,
		Energy: f.Energy,
		Notes:  f.Notes,
	}); err != nil {
		h.errLog.Log(r, "failed to save check-in", err)
		vm.Error = "Service temporarily unavailable. Please try again."
		h.render(w, r, vm, f)
		return
	}

	doc, form := formModel(f)
	store := draftstore.Load(h.sessionMgr, r)
	pagebehaviors.InitCheckInForm(doc, store)
	form.(*memdom.Element).Dispatch("submit")
	if err := store.Save(w, SavedMessage); err != nil {
		h.logger.Warn("failed to clear check-in drafts", zap.Error(err))
	}

	h.metrics.CheckIn("entry")
	h.logger.Info("check-in saved", zap.String("user_id", u.ID), zap.String("date", date), zap.String("mood", f.Mood))
	http.Redirect(w, r, "/calendar?month="+date[:7], http.StatusSeeOther)
}
