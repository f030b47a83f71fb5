package testutil

import (
	"sync"

	"github.com/bloomcycle/bloom/internal/app/resources"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

var (
	bootOnce sync.Once
	bootErr  error
)

// MustBootTemplates registers the shared layout and boots the engine once
// per test binary. Feature template sets register themselves in init, so
// importing the feature under test is enough.
func MustBootTemplates(t interface{ Fatalf(string, ...any) }) {
	bootOnce.Do(func() {
		resources.LoadSharedTemplates()
		eng := templates.New(false)
		if bootErr = eng.Boot(zap.NewNop()); bootErr == nil {
			templates.UseEngine(eng, zap.NewNop())
		}
	})
	if bootErr != nil {
		t.Fatalf("failed to boot templates: %v", bootErr)
	}
}
