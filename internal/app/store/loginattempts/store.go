// internal/app/store/loginattempts/store.go
package loginattempts

import (
	"context"
	"time"

	"github.com/bloomcycle/bloom/internal/app/system/normalize"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Record counts failed sign-ins for one login id within a window.
type Record struct {
	LoginID     string     `bson:"login_id"`
	Failures    int        `bson:"failures"`
	WindowStart time.Time  `bson:"window_start"`
	LockedUntil *time.Time `bson:"locked_until,omitempty"`
	LastAttempt time.Time  `bson:"last_attempt"`
}

// Policy bounds failed attempts.
type Policy struct {
	MaxFailures int
	Window      time.Duration
	Lockout     time.Duration
}

// DefaultPolicy allows five failures per 15 minutes, then locks for 15 minutes.
func DefaultPolicy() Policy {
	return Policy{MaxFailures: 5, Window: 15 * time.Minute, Lockout: 15 * time.Minute}
}

// Store tracks failed sign-ins in the login_attempts collection. Lookups
// fail open: a database error never locks anyone out.
type Store struct {
	c      *mongo.Collection
	policy Policy
	now    func() time.Time
}

func New(db *mongo.Database, p Policy) *Store {
	if p.MaxFailures <= 0 {
		p = DefaultPolicy()
	}
	return &Store{c: db.Collection("login_attempts"), policy: p, now: time.Now}
}

// Locked reports whether loginID is locked and until when.
func (s *Store) Locked(ctx context.Context, loginID string) (bool, time.Time) {
	var rec Record
	if err := s.c.FindOne(ctx, bson.M{"login_id": normalize.LoginID(loginID)}).Decode(&rec); err != nil {
		return false, time.Time{}
	}
	if rec.LockedUntil != nil && s.now().Before(*rec.LockedUntil) {
		return true, *rec.LockedUntil
	}
	return false, time.Time{}
}

// Fail records one failed attempt and reports whether it triggered a lockout.
func (s *Store) Fail(ctx context.Context, loginID string) bool {
	id := normalize.LoginID(loginID)
	now := s.now()

	var rec Record
	err := s.c.FindOne(ctx, bson.M{"login_id": id}).Decode(&rec)
	switch {
	case err == mongo.ErrNoDocuments:
		rec = Record{LoginID: id, WindowStart: now}
	case err != nil:
		return false
	case now.After(rec.WindowStart.Add(s.policy.Window)):
		rec.Failures = 0
		rec.WindowStart = now
		rec.LockedUntil = nil
	}

	rec.Failures++
	rec.LastAttempt = now
	locked := false
	if rec.Failures >= s.policy.MaxFailures {
		until := now.Add(s.policy.Lockout)
		rec.LockedUntil = &until
		locked = true
	}

	_, _ = s.c.UpdateOne(ctx, bson.M{"login_id": id}, bson.M{"$set": bson.M{
		"failures":     rec.Failures,
		"window_start": rec.WindowStart,
		"locked_until": rec.LockedUntil,
		"last_attempt": rec.LastAttempt,
	}}, options.Update().SetUpsert(true))
	return locked
}

// Clear forgets the failures after a successful sign-in.
func (s *Store) Clear(ctx context.Context, loginID string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"login_id": normalize.LoginID(loginID)})
	return err
}
