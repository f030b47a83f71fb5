// internal/app/features/home/home.go
package home

import (
	"net/http"

	"github.com/bloomcycle/bloom/internal/app/system/auth"
	"github.com/bloomcycle/bloom/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler provides home page handlers.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new home Handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{logger: logger}
}

// Feature is one point on the landing page.
type Feature struct {
	Glyph string
	Title string
	Text  string
}

// HomeVM is the view model for the landing page.
type HomeVM struct {
	viewdata.BaseVM
	Features []Feature
}

var features = []Feature{
	{"🌸", "Log your period", "Tap a day on the calendar or add a start and end date."},
	{"🔮", "See what's next", "Predictions are drawn from the gaps between your own cycles."},
	{"📝", "Check in daily", "Mood, energy and a few words. Drafts are kept until you save."},
}

// Routes returns a chi.Router with home routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Index)
	return r
}

// Index renders the landing page. Signed-in users go straight to their
// calendar, or to onboarding when it is unfinished.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		dest := "/calendar"
		if !u.Onboarded {
			dest = "/onboarding"
		}
		http.Redirect(w, r, dest, http.StatusSeeOther)
		return
	}

	vm := HomeVM{BaseVM: viewdata.New(r), Features: features}
	vm.Title = "Track gently"
	templates.Render(w, r, "home/index", vm)
}
