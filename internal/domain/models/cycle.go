// internal/domain/models/cycle.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cycle is a logged period. StartDate and EndDate are YYYY-MM-DD; an empty
// EndDate means the period is a single day or still ongoing.
type Cycle struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	StartDate string             `bson:"start_date" json:"start_date"`
	EndDate   string             `bson:"end_date,omitempty" json:"end_date,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
