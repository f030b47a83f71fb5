// internal/app/system/authutil/password.go
package authutil

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Password policy.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt ignores everything past 72 bytes
	BcryptCost        = 12
)

var (
	ErrPasswordTooShort = errors.New("This password is too short. It must contain at least 8 characters.")
	ErrPasswordTooLong  = errors.New("This password is too long. It must contain at most 72 characters.")
	ErrPasswordNumeric  = errors.New("This password is entirely numeric.")
	ErrPasswordCommon   = errors.New("This password is too common.")
	ErrPasswordSimilar  = errors.New("The password is too similar to the username.")
)

// commonPasswords are refused regardless of case.
var commonPasswords = map[string]bool{
	"password":   true,
	"password1":  true,
	"password12": true,
	"qwerty123":  true,
	"qwertyuiop": true,
	"iloveyou":   true,
	"sunshine":   true,
	"princess":   true,
	"football":   true,
	"baseball":   true,
	"superman":   true,
	"letmein1":   true,
	"welcome1":   true,
	"trustno1":   true,
	"whatever":   true,
	"starwars":   true,
	"abcd1234":   true,
	"passw0rd":   true,
	"flowers1":   true,
	"butterfly":  true,
	"bloom123":   true,
	"period123":  true,
}

// PasswordRules describes the policy for the signup form.
func PasswordRules() string {
	return "Use at least 8 characters. Avoid common passwords, all-number passwords and your username."
}

// ValidatePassword checks password against the policy. loginID may be empty.
func ValidatePassword(password, loginID string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	if isNumeric(password) {
		return ErrPasswordNumeric
	}
	lower := strings.ToLower(password)
	if commonPasswords[lower] {
		return ErrPasswordCommon
	}
	if tooSimilar(lower, strings.ToLower(loginID)) {
		return ErrPasswordSimilar
	}
	return nil
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// tooSimilar rejects passwords that contain the username, or the local part
// of an email-style username, when that part is at least four characters.
func tooSimilar(password, loginID string) bool {
	if local, _, ok := strings.Cut(loginID, "@"); ok {
		loginID = local
	}
	if len(loginID) < 4 {
		return false
	}
	return strings.Contains(password, loginID)
}

// HashPassword hashes a validated password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
