// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/bloomcycle/bloom/internal/app/system/indexes"
	"github.com/bloomcycle/bloom/internal/app/system/seeding"
	"github.com/bloomcycle/bloom/internal/app/system/timeouts"
	"github.com/bloomcycle/bloom/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// ConnectDB opens the Mongo pool. ctx is bounded by coreCfg.DBConnectTimeout.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	poolCfg := wafflemongo.DefaultPoolConfig()
	if appCfg.MongoMaxPoolSize > 0 {
		poolCfg.MaxPoolSize = appCfg.MongoMaxPoolSize
	}
	if appCfg.MongoMinPoolSize > 0 {
		poolCfg.MinPoolSize = appCfg.MongoMinPoolSize
	}

	client, err := wafflemongo.ConnectWithPool(ctx, appCfg.MongoURI, appCfg.MongoDatabase, poolCfg)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}

	logger.Info("mongo connected", zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("pool_max", poolCfg.MaxPoolSize), zap.Uint64("pool_min", poolCfg.MinPoolSize))

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema prepares the database on every boot: collections and their
// validators, then indexes, then the default prompt bank.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase
	timeouts.Configure(timeouts.Config{Short: appCfg.ShortTimeout, Long: appCfg.LongTimeout})

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), logger, "ensure-schema")
	defer cancel()

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"collections", func(ctx context.Context) error { return validators.EnsureAll(ctx, db) }},
		{"indexes", func(ctx context.Context) error { return indexes.EnsureAll(ctx, db) }},
		{"seed prompts", func(ctx context.Context) error { return seeding.SeedAll(ctx, db, logger) }},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			logger.Error("schema step failed", zap.String("step", step.name), zap.Error(err))
			return fmt.Errorf("%s: %w", step.name, err)
		}
		logger.Debug("schema step done", zap.String("step", step.name))
	}

	logger.Info("database ready", zap.String("database", db.Name()))
	return nil
}
