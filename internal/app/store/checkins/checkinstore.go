// internal/app/store/checkins/checkinstore.go
package checkinstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bloomcycle/bloom/internal/app/calendar"
	"github.com/bloomcycle/bloom/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotActionable is returned when the day's prompt is missing or already
// dismissed or completed.
var ErrNotActionable = errors.New("check-in is not pending")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("checkins")}
}

func key(userID primitive.ObjectID, date string) bson.M {
	return bson.M{"user_id": userID, "date": date}
}

// Get loads the user's record for date. Returns mongo.ErrNoDocuments if none.
func (s *Store) Get(ctx context.Context, userID primitive.ObjectID, date string) (*models.CheckIn, error) {
	var c models.CheckIn
	if err := s.c.FindOne(ctx, key(userID, date)).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetOrCreatePending returns the day's record, creating a pending one with
// prompt when the user has none yet. An existing record is never modified.
func (s *Store) GetOrCreatePending(ctx context.Context, userID primitive.ObjectID, date, prompt string) (*models.CheckIn, error) {
	now := time.Now().UTC()
	update := bson.M{"$setOnInsert": bson.M{
		"_id":         primitive.NewObjectID(),
		"status":      models.CheckInPending,
		"prompt_text": prompt,
		"created_at":  now,
		"updated_at":  now,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var c models.CheckIn
	err := s.c.FindOneAndUpdate(ctx, key(userID, date), update, opts).Decode(&c)
	if mongo.IsDuplicateKeyError(err) {
		// Lost an upsert race on the unique index; the winner's record is there now.
		return s.Get(ctx, userID, date)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert pending check-in: %w", err)
	}
	return &c, nil
}

func (s *Store) resolve(ctx context.Context, userID primitive.ObjectID, date string, set bson.M) error {
	filter := key(userID, date)
	filter["status"] = models.CheckInPending
	set["updated_at"] = time.Now().UTC()

	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update check-in: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotActionable
	}
	return nil
}

// Dismiss closes a pending prompt without an answer.
func (s *Store) Dismiss(ctx context.Context, userID primitive.ObjectID, date string) error {
	return s.resolve(ctx, userID, date, bson.M{"status": models.CheckInDismissed})
}

// Complete stores the answer to a pending prompt.
func (s *Store) Complete(ctx context.Context, userID primitive.ObjectID, date, response string) error {
	return s.resolve(ctx, userID, date, bson.M{
		"status":        models.CheckInCompleted,
		"response_text": response,
	})
}

// RefreshPrompt swaps the prompt of a pending record for pick(current) and
// returns the new prompt.
func (s *Store) RefreshPrompt(ctx context.Context, userID primitive.ObjectID, date string, pick func(current string) string) (string, error) {
	c, err := s.Get(ctx, userID, date)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotActionable
	}
	if err != nil {
		return "", err
	}
	if !c.IsActionable() {
		return "", ErrNotActionable
	}

	next := pick(c.PromptText)
	filter := key(userID, date)
	filter["status"] = models.CheckInPending
	filter["prompt_text"] = c.PromptText
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"prompt_text": next,
		"updated_at":  time.Now().UTC(),
	}})
	if err != nil {
		return "", fmt.Errorf("refresh prompt: %w", err)
	}
	if res.MatchedCount == 0 {
		return "", ErrNotActionable
	}
	return next, nil
}

// Entry is the journal part of a check-in submitted from the form.
type Entry struct {
	Mood   string
	Energy string
	Notes  string
}

// SaveEntry records the journal entry for date and marks the day completed.
func (s *Store) SaveEntry(ctx context.Context, userID primitive.ObjectID, date string, e Entry) (*models.CheckIn, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"mood":       e.Mood,
			"energy":     e.Energy,
			"notes":      e.Notes,
			"status":     models.CheckInCompleted,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"created_at": now,
		},
	}
	if e.Mood == "" {
		// The schema only admits known moods; leave the field out instead.
		set := update["$set"].(bson.M)
		delete(set, "mood")
		update["$unset"] = bson.M{"mood": ""}
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var c models.CheckIn
	if err := s.c.FindOneAndUpdate(ctx, key(userID, date), update, opts).Decode(&c); err != nil {
		return nil, fmt.Errorf("save check-in entry: %w", err)
	}
	return &c, nil
}

// ListRange returns the user's records with from <= date <= to, oldest first.
func (s *Store) ListRange(ctx context.Context, userID primitive.ObjectID, from, to string) ([]models.CheckIn, error) {
	filter := bson.M{
		"user_id": userID,
		"date":    bson.M{"$gte": from, "$lte": to},
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find check-ins: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.CheckIn
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode check-ins: %w", err)
	}
	return out, nil
}

// DismissStale marks pending prompts dated before the given day dismissed.
func (s *Store) DismissStale(ctx context.Context, before string) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"status": models.CheckInPending, "date": bson.M{"$lt": before}},
		bson.M{"$set": bson.M{"status": models.CheckInDismissed, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteByUser removes every record for the user.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CalendarCheckIns keeps the days the user actually checked in on (completed
// or carrying a mood) in the calendar's form.
func CalendarCheckIns(list []models.CheckIn) calendar.CheckIns {
	out := make(calendar.CheckIns, len(list))
	for _, c := range list {
		if c.Status == models.CheckInCompleted || c.Mood != "" {
			out[c.Date] = calendar.CheckIn{Mood: c.Mood}
		}
	}
	return out
}
