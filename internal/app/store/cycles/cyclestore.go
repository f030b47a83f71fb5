// internal/app/store/cycles/cyclestore.go
package cyclestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bloomcycle/bloom/internal/app/calendar"
	"github.com/bloomcycle/bloom/internal/app/system/txn"
	"github.com/bloomcycle/bloom/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrInvalidDate is returned when a start or end date is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("dates must be YYYY-MM-DD")
	// ErrEndBeforeStart is returned when the end date precedes the start date.
	ErrEndBeforeStart = errors.New("end date is before start date")
	// ErrDuplicateStart is returned when a period already starts on that day.
	ErrDuplicateStart = errors.New("a period already starts on this day")
	// ErrInsidePeriod is returned by RemoveDay for a day strictly inside a
	// longer period.
	ErrInsidePeriod = errors.New("day is inside a longer period")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("cycles")}
}

// Create logs a period for the user. An end date equal to the start date is
// stored as a single-day period.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID, start, end string) (models.Cycle, error) {
	sd, ok := calendar.ParseDate(start)
	if !ok {
		return models.Cycle{}, ErrInvalidDate
	}
	if end != "" {
		ed, ok := calendar.ParseDate(end)
		if !ok {
			return models.Cycle{}, ErrInvalidDate
		}
		if ed.Before(sd) {
			return models.Cycle{}, ErrEndBeforeStart
		}
		if ed.Equal(sd) {
			end = ""
		}
	}

	now := time.Now().UTC()
	c := models.Cycle{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		StartDate: calendar.FormatDate(sd),
		EndDate:   end,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Cycle{}, ErrDuplicateStart
		}
		return models.Cycle{}, fmt.Errorf("insert cycle: %w", err)
	}
	return c, nil
}

// ListByUser returns the user's periods, newest start first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Cycle, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find cycles: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.Cycle
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode cycles: %w", err)
	}
	return out, nil
}

// Covering returns the period that contains date, if any.
func (s *Store) Covering(ctx context.Context, userID primitive.ObjectID, date string) (*models.Cycle, error) {
	filter := bson.M{
		"user_id":    userID,
		"start_date": bson.M{"$lte": date},
		"$or": bson.A{
			bson.M{"end_date": bson.M{"$gte": date}},
			bson.M{"start_date": date},
		},
	}
	var c models.Cycle
	if err := s.c.FindOne(ctx, filter).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// AddDay marks date as a period day. A period ending the day before is
// extended and a period starting the day after is moved back; when date
// bridges two periods they become one. Otherwise a single-day period is
// created. A day that is already covered is left as is.
func (s *Store) AddDay(ctx context.Context, userID primitive.ObjectID, date string) error {
	d, ok := calendar.ParseDate(date)
	if !ok {
		return ErrInvalidDate
	}
	date = calendar.FormatDate(d)
	_, err := s.Covering(ctx, userID, date)
	if err == nil {
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	prev, err := s.findOne(ctx, endingOn(userID, calendar.FormatDate(d.AddDate(0, 0, -1))))
	if err != nil {
		return err
	}
	next, err := s.findOne(ctx, bson.M{"user_id": userID, "start_date": calendar.FormatDate(d.AddDate(0, 0, 1))})
	if err != nil {
		return err
	}

	switch {
	case prev != nil && next != nil:
		return txn.Run(ctx, s.c.Database(), nil, "merge-periods", func(ctx context.Context) error {
			if err := s.setRange(ctx, prev.ID, prev.StartDate, lastDay(*next)); err != nil {
				return err
			}
			if err := s.Delete(ctx, userID, next.ID); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
				return err
			}
			return nil
		})
	case prev != nil:
		return s.setRange(ctx, prev.ID, prev.StartDate, date)
	case next != nil:
		return s.setRange(ctx, next.ID, date, lastDay(*next))
	}
	if _, err := s.Create(ctx, userID, date, ""); err != nil && !errors.Is(err, ErrDuplicateStart) {
		return err
	}
	return nil
}

// RemoveDay unmarks date. A single-day period is deleted and a longer one
// loses its first or last day. Days strictly inside a longer period return
// ErrInsidePeriod. An unmarked day is left as is.
func (s *Store) RemoveDay(ctx context.Context, userID primitive.ObjectID, date string) error {
	d, ok := calendar.ParseDate(date)
	if !ok {
		return ErrInvalidDate
	}
	date = calendar.FormatDate(d)
	c, err := s.Covering(ctx, userID, date)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}

	last := lastDay(*c)
	switch {
	case c.StartDate == last:
		if err := s.Delete(ctx, userID, c.ID); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return err
		}
		return nil
	case date == c.StartDate:
		return s.setRange(ctx, c.ID, calendar.FormatDate(d.AddDate(0, 0, 1)), last)
	case date == last:
		return s.setRange(ctx, c.ID, c.StartDate, calendar.FormatDate(d.AddDate(0, 0, -1)))
	}
	return ErrInsidePeriod
}

// endingOn matches a period whose last day is date, single-day periods
// included.
func endingOn(userID primitive.ObjectID, date string) bson.M {
	return bson.M{
		"user_id": userID,
		"$or": bson.A{
			bson.M{"end_date": date},
			bson.M{"start_date": date, "end_date": bson.M{"$in": bson.A{"", nil}}},
		},
	}
}

func lastDay(c models.Cycle) string {
	if c.EndDate == "" {
		return c.StartDate
	}
	return c.EndDate
}

// findOne returns nil without error when nothing matches.
func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Cycle, error) {
	var c models.Cycle
	err := s.c.FindOne(ctx, filter).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find cycle: %w", err)
	}
	return &c, nil
}

// setRange rewrites a period's dates. An end equal to the start is stored
// as a single-day period.
func (s *Store) setRange(ctx context.Context, id primitive.ObjectID, start, end string) error {
	update := bson.M{"$set": bson.M{"start_date": start, "end_date": end, "updated_at": time.Now().UTC()}}
	if end == start {
		update = bson.M{
			"$set":   bson.M{"start_date": start, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"end_date": ""},
		}
	}
	if _, err := s.c.UpdateByID(ctx, id, update); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateStart
		}
		return fmt.Errorf("update cycle: %w", err)
	}
	return nil
}

// Delete removes one of the user's periods. Returns mongo.ErrNoDocuments if
// the period does not exist or belongs to someone else.
func (s *Store) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("delete cycle: %w", err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteByUser removes every period logged by the user.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Periods converts cycles to the calendar's period form.
func Periods(cycles []models.Cycle) []calendar.Period {
	out := make([]calendar.Period, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, calendar.Period{StartDate: c.StartDate, EndDate: c.EndDate})
	}
	return out
}
