package logout

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bloomcycle/bloom/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestLogout_RedirectsWithFarewell(t *testing.T) {
	sm := testutil.NewSessionManager(t)
	h := NewHandler(sm, zap.NewNop())

	// Sign in to get a real session cookie.
	login := httptest.NewRecorder()
	if err := sm.CreateSession(login, httptest.NewRequest(http.MethodPost, "/login", nil), primitive.NewObjectID(), "user"); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	req := testutil.NewAuthenticatedRequest(http.MethodPost, "/", testutil.Member())
	req = testutil.CarryCookies(req, login)
	rec := httptest.NewRecorder()
	Routes(h, sm).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}

	next := testutil.CarryCookies(httptest.NewRequest(http.MethodGet, "/login", nil), rec)
	if v := sm.Value(next, "user_id"); v != "" {
		t.Errorf("user_id still in session: %q", v)
	}
	msgs := sm.Flashes(httptest.NewRecorder(), next)
	if len(msgs) != 1 || msgs[0] != FarewellMessage {
		t.Errorf("Flashes() = %v, want [%q]", msgs, FarewellMessage)
	}
}

func TestLogout_RequiresAuth(t *testing.T) {
	sm := testutil.NewSessionManager(t)
	h := NewHandler(sm, zap.NewNop())

	rec := httptest.NewRecorder()
	Routes(h, sm).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLogout_GetNotAllowed(t *testing.T) {
	sm := testutil.NewSessionManager(t)
	h := NewHandler(sm, zap.NewNop())

	rec := httptest.NewRecorder()
	Routes(h, sm).ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.Member()))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestLogout_HTMX(t *testing.T) {
	sm := testutil.NewSessionManager(t)
	h := NewHandler(sm, zap.NewNop())

	req := testutil.NewAuthenticatedRequest(http.MethodPost, "/", testutil.Member())
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	Routes(h, sm).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent || rec.Header().Get("HX-Redirect") != "/login" {
		t.Errorf("status = %d, HX-Redirect = %q", rec.Code, rec.Header().Get("HX-Redirect"))
	}
}
