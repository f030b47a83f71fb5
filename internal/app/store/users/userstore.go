// internal/app/store/users/userstore.go
package userstore

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"context"
	"errors"
	"time"

	"github.com/bloomcycle/bloom/internal/app/system/normalize"
	"github.com/bloomcycle/bloom/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateLoginID is returned when attempting to create a user with a login_id that already exists.
	ErrDuplicateLoginID = errors.New("a user with this login ID already exists")
	errBadRole          = errors.New("invalid role")
	errBadStatus        = errors.New(`status must be "active"|"disabled"`)
)

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByLoginID looks up a user by case/diacritic-insensitive login_id. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByLoginID(ctx context.Context, loginID string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"login_id_ci": text.Fold(loginID)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByLoginOrEmail resolves what a user typed into the sign-in form: a
// login_id first, then an email address.
func (s *Store) GetByLoginOrEmail(ctx context.Context, identifier string) (*models.User, error) {
	u, err := s.GetByLoginID(ctx, identifier)
	if err == nil || !errors.Is(err, mongo.ErrNoDocuments) {
		return u, err
	}
	var byEmail models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(identifier)}).Decode(&byEmail); err != nil {
		return nil, err
	}
	return &byEmail, nil
}

// CreateInput holds the fields for creating a new user.
type CreateInput struct {
	FullName     string
	LoginID      string
	Email        string
	Role         string
	PasswordHash string
}

// Create inserts a new user after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, in CreateInput) (models.User, error) {
	loginID := normalize.LoginID(in.LoginID)
	loginIDCI := text.Fold(loginID)
	u := models.User{
		ID:        primitive.NewObjectID(),
		FullName:  normalize.Name(in.FullName),
		LoginID:   &loginID,
		LoginIDCI: &loginIDCI,
		Role:      in.Role,
		Status:    models.StatusActive,
	}
	u.FullNameCI = text.Fold(u.FullName)
	if in.Email != "" {
		email := normalize.Email(in.Email)
		u.Email = &email
	}
	if in.PasswordHash != "" {
		hash := in.PasswordHash
		u.PasswordHash = &hash
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}

	if !models.IsValidRole(u.Role) {
		return models.User{}, errBadRole
	}
	if !models.IsValidStatus(u.Status) {
		return models.User{}, errBadStatus
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateLoginID
		}
		return models.User{}, err
	}
	return u, nil
}

// OnboardingInput carries the answers from the start-tracking form.
type OnboardingInput struct {
	AvgCycleLength  int
	LastPeriodStart string
}

// CompleteOnboarding stores the onboarding answers and marks the user onboarded.
func (s *Store) CompleteOnboarding(ctx context.Context, id primitive.ObjectID, in OnboardingInput) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"avg_cycle_length":    in.AvgCycleLength,
		"last_period_start":   in.LastPeriodStart,
		"onboarding_complete": true,
		"updated_at":          time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// UpdatePassword replaces a user's password hash.
func (s *Store) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password_hash": passwordHash,
		"updated_at":    time.Now().UTC(),
	}})
	return err
}

// SetRole changes a user's role.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	if !models.IsValidRole(role) {
		return errBadRole
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"role":       role,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// SetStatus enables or disables a user.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, st string) error {
	st = normalize.Status(st)
	if !models.IsValidStatus(st) {
		return errBadStatus
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":     st,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// Delete deletes a user by ID.
// Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
