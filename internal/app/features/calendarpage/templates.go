// internal/app/features/calendarpage/templates.go
package calendarpage

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "calendarpage",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
