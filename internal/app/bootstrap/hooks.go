// internal/app/bootstrap/hooks.go
package bootstrap

import "github.com/dalemusser/waffle/app"

// Hooks is Bloom's WAFFLE lifecycle, run in field order by app.Run.
var Hooks = app.Hooks[AppConfig, DBDeps]{
	Name:           "bloom",
	LoadConfig:     LoadConfig,
	ValidateConfig: ValidateConfig,
	ConnectDB:      ConnectDB,
	EnsureSchema:   EnsureSchema,
	Startup:        Startup,
	BuildHandler:   BuildHandler,
	Shutdown:       Shutdown,
}
