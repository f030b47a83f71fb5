package testutil

import (
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/bloomcycle/bloom/internal/app/system/auth"
	"go.uber.org/zap"
)

// TestSessionKey is a 32-byte signing key for test session managers.
const TestSessionKey = "this-is-a-32-character-long-key!"

// NewSessionManager returns a cookie session manager for handler tests.
func NewSessionManager(t interface{ Fatalf(string, ...any) }) *auth.SessionManager {
	sm, err := auth.NewSessionManager(TestSessionKey, "", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	return sm
}

// CarryCookies copies the cookies set on rec onto req, the way a browser
// would on its next request.
func CarryCookies(req *http.Request, rec *httptest.ResponseRecorder) *http.Request {
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}
