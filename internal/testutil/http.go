package testutil

import (
	"net/http"
	"net/http/httptest"

	"github.com/bloomcycle/bloom/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser is the session identity injected into handler requests.
type TestUser struct {
	ID        string
	Name      string
	Email     string
	Role      string
	Onboarded bool
}

// Member returns an onboarded user with a fresh ID.
func Member() TestUser {
	return TestUser{
		ID:        primitive.NewObjectID().Hex(),
		Name:      "Test Member",
		Email:     "member@test.com",
		Role:      "user",
		Onboarded: true,
	}
}

// NewMember returns a user who has not finished onboarding.
func NewMember() TestUser {
	u := Member()
	u.Onboarded = false
	return u
}

// WithUser puts user in the request context, bypassing the session cookie.
// Email doubles as the login ID.
func WithUser(r *http.Request, user TestUser) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:        user.ID,
		Name:      user.Name,
		LoginID:   user.Email,
		Role:      user.Role,
		Onboarded: user.Onboarded,
	})
}

// NewAuthenticatedRequest is httptest.NewRequest with user signed in.
func NewAuthenticatedRequest(method, target string, user TestUser) *http.Request {
	return WithUser(httptest.NewRequest(method, target, nil), user)
}
