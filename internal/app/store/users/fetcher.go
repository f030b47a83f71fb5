// internal/app/store/users/fetcher.go
package userstore

import (
	"context"
	"errors"

	"github.com/bloomcycle/bloom/internal/app/system/auth"
	"github.com/bloomcycle/bloom/internal/app/system/normalize"
	"github.com/bloomcycle/bloom/internal/app/system/timeouts"
	"github.com/bloomcycle/bloom/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// sessionProjection is the slice of a user document a request needs.
var sessionProjection = bson.M{
	"full_name":           1,
	"login_id":            1,
	"role":                1,
	"status":              1,
	"onboarding_complete": 1,
}

// Fetcher is the auth.UserFetcher backed by the users collection. It runs
// on every signed-in request, so onboarding and disabling take effect
// without a new login.
type Fetcher struct {
	store  *Store
	logger *zap.Logger
}

func NewFetcher(db *mongo.Database, logger *zap.Logger) *Fetcher {
	return &Fetcher{store: New(db), logger: logger}
}

// FetchUser returns nil for unknown, disabled or unreadable users.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	err = f.store.c.FindOne(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(sessionProjection)).Decode(&u)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			f.logger.Warn("fetch session user failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}
	if normalize.Status(u.Status) == models.StatusDisabled {
		return nil
	}

	su := &auth.SessionUser{
		ID:        u.ID.Hex(),
		Name:      u.FullName,
		Role:      normalize.Role(u.Role),
		Onboarded: u.OnboardingComplete,
	}
	if u.LoginID != nil {
		su.LoginID = *u.LoginID
	}
	return su
}
