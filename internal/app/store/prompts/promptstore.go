// internal/app/store/prompts/promptstore.go
package promptstore

import (
	"context"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Prompt is one daily check-in question.
type Prompt struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Text      string             `bson:"text"`
	Active    bool               `bson:"active"`
	CreatedAt time.Time          `bson:"created_at"`
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("prompts")}
}

// Exists reports whether a prompt with this exact text is stored.
func (s *Store) Exists(ctx context.Context, text string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"text": text}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Add stores an active prompt. Adding an existing text is a no-op.
func (s *Store) Add(ctx context.Context, text string) error {
	_, err := s.c.InsertOne(ctx, Prompt{
		ID:        primitive.NewObjectID(),
		Text:      text,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil && wafflemongo.IsDup(err) {
		return nil
	}
	return err
}

// SetActive enables or retires a prompt.
func (s *Store) SetActive(ctx context.Context, text string, active bool) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"text": text}, bson.M{"$set": bson.M{"active": active}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ListActive returns the texts of active prompts in insertion order.
func (s *Store) ListActive(ctx context.Context) ([]string, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetProjection(bson.M{"text": 1})
	cur, err := s.c.Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []Prompt
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, p := range rows {
		out = append(out, p.Text)
	}
	return out, nil
}
