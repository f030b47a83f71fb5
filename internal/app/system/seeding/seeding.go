// internal/app/system/seeding/seeding.go
package seeding

import (
	"context"

	"github.com/bloomcycle/bloom/internal/app/prompts"
	promptstore "github.com/bloomcycle/bloom/internal/app/store/prompts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// SeedAll seeds default data if not already present.
func SeedAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	return seedPrompts(ctx, db, logger)
}

// seedPrompts stores the built-in check-in questions that are missing.
// Retired prompts keep their active flag.
func seedPrompts(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	store := promptstore.New(db)

	added := 0
	for _, text := range prompts.Defaults() {
		exists, err := store.Exists(ctx, text)
		if err != nil {
			logger.Error("failed to check if prompt exists", zap.String("prompt", text), zap.Error(err))
			return err
		}
		if exists {
			continue
		}
		if err := store.Add(ctx, text); err != nil {
			logger.Error("failed to seed prompt", zap.String("prompt", text), zap.Error(err))
			return err
		}
		added++
	}
	if added > 0 {
		logger.Info("seeded default prompts", zap.Int("count", added))
	}
	return nil
}
