// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"
	"strings"

	"github.com/bloomcycle/bloom/internal/app/system/auth"
	"github.com/bloomcycle/bloom/internal/app/system/dailyprompt"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
)

// SiteName is shown in the menu header and page titles.
const SiteName = "Bloom"

// Footer is the footer line rendered by the shared layout.
const Footer = "Bloom 🌸 track gently"

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	vm := myPageData{BaseVM: viewdata.New(r)}
//	vm.Title = "Page Title"
type BaseVM struct {
	SiteName string
	Footer   string

	// User context (from auth middleware)
	IsLoggedIn bool
	Onboarded  bool
	UserID     string
	LoginID    string
	Role       string
	UserName   string

	// Page context
	Title       string
	BackURL     string
	CurrentPath string

	// Security
	CSRFToken string // CSRF token for forms (use in hidden input field)

	// Flash messages queued by the previous request; rendered as .alert
	// elements that auto-dismiss.
	Flashes []string

	// Today's check-in prompt, when the user has one pending.
	CheckIn dailyprompt.Card
}

// New creates a BaseVM for the request. A session user whose ID is not a
// valid ObjectID is treated as signed out.
func New(r *http.Request) BaseVM {
	vm := BaseVM{
		SiteName:    SiteName,
		Footer:      Footer,
		Role:        "visitor",
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
		Flashes:     auth.FlashesFrom(r),
	}
	if card, ok := dailyprompt.From(r); ok {
		vm.CheckIn = card
	}
	if user, ok := auth.CurrentUser(r); ok && !user.UserID().IsZero() {
		vm.IsLoggedIn = true
		vm.Onboarded = user.Onboarded
		vm.UserID = user.ID
		vm.LoginID = user.LoginID
		vm.Role = strings.ToLower(user.Role)
		vm.UserName = user.Name
	}
	return vm
}

// NewBaseVM is New plus a title and a resolved back link.
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	vm := New(r)
	vm.Title = title
	vm.BackURL = httpnav.ResolveBackURL(r, backDefault)
	return vm
}
