// internal/domain/models/user.go
package models

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a Bloom account.
//
// LoginID is stored lowercase; LoginIDCI is its folded form used for
// case/diacritic-insensitive lookups. The onboarding fields seed predictions
// until enough cycles are logged to compute an average.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"full_name_ci"`

	LoginID      *string `bson:"login_id" json:"login_id"`
	LoginIDCI    *string `bson:"login_id_ci" json:"login_id_ci"`
	Email        *string `bson:"email" json:"email"`
	PasswordHash *string `bson:"password_hash,omitempty" json:"-"`

	Role   string `bson:"role" json:"role"`
	Status string `bson:"status,omitempty" json:"status,omitempty"`

	// Onboarding
	AvgCycleLength     int    `bson:"avg_cycle_length,omitempty" json:"avg_cycle_length,omitempty"`
	LastPeriodStart    string `bson:"last_period_start,omitempty" json:"last_period_start,omitempty"` // YYYY-MM-DD
	OnboardingComplete bool   `bson:"onboarding_complete" json:"onboarding_complete"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User statuses. A disabled account cannot sign in.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// IsValidStatus reports whether s is a known user status.
func IsValidStatus(s string) bool {
	return s == StatusActive || s == StatusDisabled
}

// Onboarding bounds for AvgCycleLength.
const (
	MinCycleLength     = 1
	MaxCycleLength     = 30
	DefaultCycleLength = 28
)

// AllRoles returns all valid user roles.
func AllRoles() []string {
	return []string{
		RoleUser,
		RoleAdmin,
	}
}

// IsValidRole checks if a role is valid.
func IsValidRole(role string) bool {
	for _, r := range AllRoles() {
		if r == role {
			return true
		}
	}
	return false
}
