// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/bloomcycle/bloom/internal/app/calendar"
	"github.com/bloomcycle/bloom/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server error codes handled during setup.
const (
	codeNamespaceExists = 48
	codeCommandNotFound = 59
	codeNotImplemented  = 115
)

// EnsureAll creates Bloom's collections and attaches JSON-Schema validators
// where a schema is defined. Deployments without collMod support (some
// DocumentDB versions) keep the collections and skip validation.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	collections := []struct {
		name   string
		schema bson.M
	}{
		{"users", usersSchema()},
		{"cycles", cyclesSchema()},
		{"checkins", checkInsSchema()},
		{"login_attempts", nil},
		{"prompts", nil},
	}

	var errs []error
	for _, c := range collections {
		if err := ensureCollection(ctx, db, c.name, slices.Contains(existing, c.name)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		if c.schema == nil {
			continue
		}
		if err := setValidator(ctx, db, c.name, c.schema); err != nil {
			if hasCode(err, codeCommandNotFound, codeNotImplemented) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", c.name))
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, exists bool) error {
	if exists {
		return nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		// Another instance won the race.
		if hasCode(err, codeNamespaceExists) {
			return nil
		}
		return err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, schema bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	return db.RunCommand(ctx, cmd).Err()
}

// hasCode reports whether err is a server command error with one of codes.
func hasCode(err error, codes ...int32) bool {
	var ce mongo.CommandError
	return errors.As(err, &ce) && slices.Contains(codes, ce.Code)
}

func enum(values ...string) bson.A {
	out := make(bson.A, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

const isoDatePattern = `^\d{4}-\d{2}-\d{2}$`

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"full_name", "role", "status"},
			"properties": bson.M{
				"full_name":           bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"full_name_ci":        bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"login_id":            bson.M{"bsonType": bson.A{"string", "null"}},
				"login_id_ci":         bson.M{"bsonType": bson.A{"string", "null"}},
				"email":               bson.M{"bsonType": bson.A{"string", "null"}},
				"role":                bson.M{"enum": enum(models.AllRoles()...)},
				"status":              bson.M{"enum": bson.A{models.StatusActive, models.StatusDisabled}},
				"avg_cycle_length":    bson.M{"bsonType": bson.A{"int", "long"}, "minimum": models.MinCycleLength, "maximum": models.MaxCycleLength},
				"last_period_start":   bson.M{"bsonType": "string", "pattern": isoDatePattern},
				"onboarding_complete": bson.M{"bsonType": "bool"},
			},
		},
	}
}

func cyclesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "start_date"},
			"properties": bson.M{
				"user_id":    bson.M{"bsonType": "objectId"},
				"start_date": bson.M{"bsonType": "string", "pattern": isoDatePattern},
				"end_date":   bson.M{"bsonType": "string", "pattern": isoDatePattern},
			},
		},
	}
}

func checkInsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "date", "status"},
			"properties": bson.M{
				"user_id": bson.M{"bsonType": "objectId"},
				"date":    bson.M{"bsonType": "string", "pattern": isoDatePattern},
				"status":  bson.M{"enum": bson.A{models.CheckInPending, models.CheckInDismissed, models.CheckInCompleted}},
				"mood":    bson.M{"enum": enum(calendar.Moods()...)},
			},
		},
	}
}
