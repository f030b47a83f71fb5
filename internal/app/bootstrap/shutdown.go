// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown runs after the HTTP server has drained. Jobs stop first so none
// is mid-write when the Mongo pool closes. ctx carries the deadline.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	var errs []error

	if taskRunner != nil {
		if err := taskRunner.Stop(ctx); err != nil {
			logger.Warn("jobs still running at shutdown deadline", zap.Strings("jobs", taskRunner.Running()))
			errs = append(errs, fmt.Errorf("stop jobs: %w", err))
		}
	}

	if deps.MongoClient != nil {
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("disconnect mongo: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		logger.Error("shutdown incomplete", zap.Error(err))
	} else {
		logger.Info("bloom stopped")
	}
	return err
}
