// internal/domain/models/checkin.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Daily check-in statuses. A check-in starts pending when the day's prompt is
// first shown and ends dismissed or completed.
const (
	CheckInPending   = "pending"
	CheckInDismissed = "dismissed"
	CheckInCompleted = "completed"
)

// CheckIn is one user's record for one calendar day (unique on user_id+date).
type CheckIn struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`
	Date   string             `bson:"date" json:"date"` // YYYY-MM-DD

	Status       string `bson:"status" json:"status"`
	PromptText   string `bson:"prompt_text,omitempty" json:"prompt_text,omitempty"`
	ResponseText string `bson:"response_text,omitempty" json:"response_text,omitempty"`

	Mood   string `bson:"mood,omitempty" json:"mood,omitempty"`
	Energy string `bson:"energy,omitempty" json:"energy,omitempty"`
	Notes  string `bson:"notes,omitempty" json:"notes,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsActionable reports whether the daily prompt can still be answered,
// dismissed or refreshed.
func (c CheckIn) IsActionable() bool {
	return c.Status == CheckInPending
}
