package testutil

import (
	"context"
	"net/http"
)

// csrfTokenKey is the context key gorilla/csrf reads in csrf.Token.
const csrfTokenKey = "gorilla.csrf.Token"

// TestCSRFToken is the token WithCSRFToken injects.
const TestCSRFToken = "test-csrf-token-12345"

// WithCSRFToken stands in for csrf.Protect so forms render a token.
func WithCSRFToken(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), csrfTokenKey, TestCSRFToken))
}

// NewAuthenticatedRequestWithCSRF combines NewAuthenticatedRequest and
// WithCSRFToken for form-rendering handlers.
func NewAuthenticatedRequestWithCSRF(method, target string, user TestUser) *http.Request {
	return WithCSRFToken(NewAuthenticatedRequest(method, target, user))
}
