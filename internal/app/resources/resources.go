// internal/app/resources/resources.go
package resources

import (
	"embed"
	"io/fs"
	"net/http"
	"sync"

	"github.com/dalemusser/waffle/pantry/templates"
)

// Shared layout, menu and check-in card.
//
//go:embed templates/*.gohtml
var sharedFS embed.FS

// Stylesheet and the calendar / check-in script.
//
//go:embed assets/css/*.css assets/js/*.js
var assetsFS embed.FS

var registerOnce sync.Once

// LoadSharedTemplates registers the "shared" set with the template engine.
// Call it before the engine boots.
func LoadSharedTemplates() {
	registerOnce.Do(func() {
		templates.Register(templates.Set{
			Name:     "shared",
			FS:       sharedFS,
			Patterns: []string{"templates/*.gohtml"},
		})
	})
}

// assetCacheControl lets browsers keep bloom.css and bloom.js for a day.
const assetCacheControl = "public, max-age=86400"

// AssetsHandler serves the embedded assets under prefix, for example
// /assets/css/bloom.css. Only GET and HEAD are allowed.
func AssetsHandler(prefix string) http.Handler {
	sub, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		panic("resources: assets subdirectory missing: " + err.Error())
	}
	files := http.StripPrefix(prefix, http.FileServerFS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Cache-Control", assetCacheControl)
		files.ServeHTTP(w, r)
	})
}
