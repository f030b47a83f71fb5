package authutil

import (
	"testing"
)

func TestResolveSignup(t *testing.T) {
	base := SignupInput{LoginID: "rose", Email: "rose@example.com", Password: "petals42", Confirm: "petals42"}

	res, err := ResolveSignup(base)
	if err != nil {
		t.Fatalf("ResolveSignup() error = %v", err)
	}
	if res.FullName != "rose" {
		t.Errorf("FullName = %q, want login id fallback", res.FullName)
	}
	if !CheckPassword("petals42", res.PasswordHash) {
		t.Error("PasswordHash does not verify")
	}

	tests := []struct {
		name   string
		modify func(*SignupInput)
		want   error
	}{
		{"missing login", func(in *SignupInput) { in.LoginID = "  " }, ErrLoginIDRequired},
		{"bad login", func(in *SignupInput) { in.LoginID = "rose petal" }, ErrLoginIDInvalid},
		{"missing email", func(in *SignupInput) { in.Email = "" }, ErrEmailRequired},
		{"bad email", func(in *SignupInput) { in.Email = "rose@localhost" }, ErrInvalidEmail},
		{"mismatch", func(in *SignupInput) { in.Confirm = "petals43" }, ErrPasswordMismatch},
		{"short", func(in *SignupInput) { in.Password, in.Confirm = "abc", "abc" }, ErrPasswordTooShort},
		{"common", func(in *SignupInput) { in.Password, in.Confirm = "password", "password" }, ErrPasswordCommon},
		{"numeric", func(in *SignupInput) { in.Password, in.Confirm = "20240304", "20240304" }, ErrPasswordNumeric},
		{"similar", func(in *SignupInput) { in.LoginID, in.Password, in.Confirm = "marigold", "marigold99", "marigold99" }, ErrPasswordSimilar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.modify(&in)
			if _, err := ResolveSignup(in); err != tt.want {
				t.Errorf("ResolveSignup() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	for email, want := range map[string]bool{
		"a@b.co":         true,
		"rose@bloom.app": true,
		"@b.co":          false,
		"a@b":            false,
		"a@b.":           false,
		"a@@b.co":        false,
	} {
		if got := isValidEmail(email); got != want {
			t.Errorf("isValidEmail(%q) = %v, want %v", email, got, want)
		}
	}
}
