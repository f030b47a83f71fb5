// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	"github.com/bloomcycle/bloom/internal/app/resources"
	checkinstore "github.com/bloomcycle/bloom/internal/app/store/checkins"
	"github.com/bloomcycle/bloom/internal/app/system/apilimit"
	"github.com/bloomcycle/bloom/internal/app/system/tasks"
	"github.com/bloomcycle/bloom/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs once after the schema is in place and before BuildHandler.
// It loads the shared layout templates, creates the /api limiter and starts
// the background task runner.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{Short: appCfg.ShortTimeout, Long: appCfg.LongTimeout})
	resources.LoadSharedTemplates()

	apiLimiter = apilimit.New(float64(appCfg.APIRatePerSecond), appCfg.APIBurst, appCfg.APIIdleEvict)
	startTaskRunner(deps.MongoDatabase, appCfg, logger)

	logger.Info("bloom started",
		zap.String("version", appCfg.Version),
		zap.String("timezone", appCfg.Timezone),
		zap.String("today", appClock(appCfg).Now().Format(time.DateOnly)),
	)
	return nil
}

var (
	// taskRunner is stopped in Shutdown.
	taskRunner *tasks.Runner

	// apiLimiter is shared by BuildHandler and the sweep job.
	apiLimiter *apilimit.Limiter
)

// startTaskRunner registers Bloom's background jobs and starts them.
func startTaskRunner(db *mongo.Database, appCfg AppConfig, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	taskRunner.Register(tasks.StalePromptJob(checkinstore.New(db), appClock(appCfg), logger))
	taskRunner.Register(apiLimiter.SweepJob(logger))

	taskRunner.Start()
}
