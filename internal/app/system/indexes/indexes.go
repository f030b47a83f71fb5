// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// EnsureAll creates or repairs every collection's indexes. It is safe to run
// on each boot; all collection failures are reported together.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	steps := []struct {
		collection string
		ensure     func(context.Context, *mongo.Database) error
	}{
		{"users", ensureUsers},
		{"cycles", ensureCycles},
		{"checkins", ensureCheckIns},
		{"login_attempts", ensureLoginAttempts},
		{"prompts", ensurePrompts},
	}

	var errs []error
	for _, s := range steps {
		if err := s.ensure(ctx, db); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.collection, err))
		}
	}
	return errors.Join(errs...)
}

// indexSpec is the part of an index definition Bloom cares about when
// deciding whether an existing index still matches.
type indexSpec struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique"`
	TTL    *int32 `bson:"expireAfterSeconds"`
}

func (s indexSpec) keys() string {
	var b strings.Builder
	for i, e := range s.Key {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s:%v", e.Key, e.Value)
	}
	return b.String()
}

func (s indexSpec) matches(o indexSpec) bool {
	if s.keys() != o.keys() || s.Unique != o.Unique {
		return false
	}
	if (s.TTL == nil) != (o.TTL == nil) {
		return false
	}
	return s.TTL == nil || *s.TTL == *o.TTL
}

func wantedSpec(m mongo.IndexModel) indexSpec {
	s := indexSpec{Key: m.Keys.(bson.D)}
	if m.Options != nil {
		if m.Options.Name != nil {
			s.Name = *m.Options.Name
		}
		if m.Options.Unique != nil {
			s.Unique = *m.Options.Unique
		}
		s.TTL = m.Options.ExpireAfterSeconds
	}
	return s
}

func listIndexes(ctx context.Context, c *mongo.Collection) (map[string]indexSpec, error) {
	cur, err := c.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	var specs []indexSpec
	if err := cur.All(ctx, &specs); err != nil {
		return nil, err
	}
	byName := make(map[string]indexSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}
	return byName, nil
}

// ensureIndexSet brings c's named indexes in line with want. An index whose
// name exists with different keys, uniqueness or TTL is dropped and rebuilt.
// A unique index that fails on duplicate data is reported, never forced.
func ensureIndexSet(ctx context.Context, c *mongo.Collection, want []mongo.IndexModel) error {
	have, err := listIndexes(ctx, c)
	if err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}

	log := zap.L().With(zap.String("collection", c.Name()))
	for _, m := range want {
		spec := wantedSpec(m)
		if cur, ok := have[spec.Name]; ok {
			if cur.matches(spec) {
				continue
			}
			log.Info("rebuilding index", zap.String("index", spec.Name),
				zap.String("had", cur.keys()), zap.String("want", spec.keys()))
			if _, err := c.Indexes().DropOne(ctx, spec.Name); err != nil {
				return fmt.Errorf("drop %s: %w", spec.Name, err)
			}
		}

		if _, err := c.Indexes().CreateOne(ctx, m); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("create %s: duplicate data blocks unique index: %w", spec.Name, err)
			}
			return fmt.Errorf("create %s: %w", spec.Name, err)
		}
		log.Info("created index", zap.String("index", spec.Name))
	}
	return nil
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "login_id_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_loginidci"),
		},
		// Sign-in by email
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_users_email"),
		},
		// Admin listing: role + status + name sort
		{
			Keys: bson.D{
				{Key: "role", Value: 1},
				{Key: "status", Value: 1},
				{Key: "full_name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_users_role_status_fullnameci_id"),
		},
	})
}

func ensureCycles(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("cycles")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One logged period per start day per user; also the list path (newest first)
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "start_date", Value: -1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_cycles_user_start"),
		},
	})
}

func ensureCheckIns(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("checkins")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_checkins_user_date"),
		},
		// Stale pending cleanup
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().SetName("idx_checkins_status_date"),
		},
	})
}

func ensureLoginAttempts(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("login_attempts")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "login_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_login_attempts_loginid"),
		},
		// Drop idle records after a day
		{
			Keys:    bson.D{{Key: "last_attempt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(86400).SetName("idx_login_attempts_ttl"),
		},
	})
}

func ensurePrompts(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("prompts")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "text", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_prompts_text"),
		},
		{
			Keys:    bson.D{{Key: "active", Value: 1}},
			Options: options.Index().SetName("idx_prompts_active"),
		},
	})
}
