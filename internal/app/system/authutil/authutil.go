// internal/app/system/authutil/authutil.go
// Package authutil provides centralized credential handling for the signup
// and login forms.
package authutil

import (
	"errors"
	"strings"
)

// SignupInput holds the raw signup form values.
type SignupInput struct {
	FullName string
	LoginID  string
	Email    string
	Password string
	Confirm  string
}

// SignupResult holds the validated fields ready for storage.
type SignupResult struct {
	FullName     string
	LoginID      string
	Email        string
	PasswordHash string
}

// Common validation errors
var (
	ErrLoginIDRequired  = errors.New("Username is required.")
	ErrLoginIDInvalid   = errors.New("Username may only contain letters, numbers, and . _ - @ +")
	ErrEmailRequired    = errors.New("Email is required.")
	ErrInvalidEmail     = errors.New("Please enter a valid email address.")
	ErrPasswordMismatch = errors.New("The two password fields didn't match.")
)

// isValidEmail performs a basic email format validation.
// It checks for the presence of @ and at least one character on each side.
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	if len(parts[0]) == 0 {
		return false
	}
	// Domain must contain at least one dot after @
	domain := parts[1]
	dotIdx := strings.LastIndex(domain, ".")
	if dotIdx < 1 || dotIdx >= len(domain)-1 {
		return false
	}
	return true
}

// isValidLoginID allows the characters of a typical username or an email.
func isValidLoginID(id string) bool {
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("._-@+", r):
		default:
			return false
		}
	}
	return len(id) <= 150
}

// ResolveSignup validates the signup fields and hashes the password.
// A blank full name falls back to the login ID.
func ResolveSignup(in SignupInput) (*SignupResult, error) {
	loginID := strings.TrimSpace(in.LoginID)
	email := strings.TrimSpace(in.Email)

	if loginID == "" {
		return nil, ErrLoginIDRequired
	}
	if !isValidLoginID(loginID) {
		return nil, ErrLoginIDInvalid
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if in.Password != in.Confirm {
		return nil, ErrPasswordMismatch
	}
	if err := ValidatePassword(in.Password, loginID); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.FullName)
	if name == "" {
		name = loginID
	}
	return &SignupResult{
		FullName:     name,
		LoginID:      loginID,
		Email:        email,
		PasswordHash: hash,
	}, nil
}
