package signup

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	errorsfeature "github.com/bloomcycle/bloom/internal/app/features/errors"
	userstore "github.com/bloomcycle/bloom/internal/app/store/users"
	"github.com/bloomcycle/bloom/internal/app/system/authutil"
	"github.com/bloomcycle/bloom/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(t *testing.T, db *mongo.Database) *Handler {
	t.Helper()
	testutil.MustBootTemplates(t)
	logger := zap.NewNop()
	return NewHandler(db, testutil.NewSessionManager(t), errorsfeature.NewErrorLogger(logger), logger)
}

func post(h *Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	Routes(h).ServeHTTP(rec, testutil.WithCSRFToken(req))
	return rec
}

func validForm() url.Values {
	return url.Values{
		"login_id":         {"rose"},
		"email":            {"rose@example.com"},
		"password":         {"meadow-lark-42"},
		"password_confirm": {"meadow-lark-42"},
	}
}

func TestShow(t *testing.T) {
	h := newHandler(t, testutil.SetupTestDB(t))

	rec := httptest.NewRecorder()
	Routes(h).ServeHTTP(rec, testutil.WithCSRFToken(httptest.NewRequest(http.MethodGet, "/", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `name="password_confirm"`) {
		t.Error("form missing password confirmation")
	}

	rec = httptest.NewRecorder()
	Routes(h).ServeHTTP(rec, testutil.NewAuthenticatedRequestWithCSRF(http.MethodGet, "/", testutil.Member()))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/calendar" {
		t.Errorf("signed-in GET = %d %q, want 303 /calendar", rec.Code, rec.Header().Get("Location"))
	}
}

func TestCreate_SignsInAndStartsOnboarding(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)

	rec := post(h, validForm())
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303; body: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/onboarding" {
		t.Errorf("Location = %q, want /onboarding", loc)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("no session cookie set")
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, err := userstore.New(db).GetByLoginID(ctx, "rose")
	if err != nil {
		t.Fatalf("GetByLoginID() error = %v", err)
	}
	if u.PasswordHash == nil || !authutil.CheckPassword("meadow-lark-42", *u.PasswordHash) {
		t.Error("stored password hash does not verify")
	}
	if u.FullName != "rose" {
		t.Errorf("FullName = %q, want login id fallback", u.FullName)
	}
}

func TestCreate_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)

	mismatch := validForm()
	mismatch.Set("password_confirm", "something-else")
	badEmail := validForm()
	badEmail.Set("email", "rose-at-example")

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"mismatch", mismatch, "didn&#39;t match"},
		{"bad email", badEmail, "Please enter a valid email address."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(h, tt.form)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			body := rec.Body.String()
			if !strings.Contains(body, tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
			if strings.Contains(body, "meadow-lark-42") {
				t.Error("password echoed back into the form")
			}
		})
	}

	if rec := post(h, validForm()); rec.Code != http.StatusSeeOther {
		t.Fatalf("first signup status = %d", rec.Code)
	}
	rec := post(h, validForm())
	if !strings.Contains(rec.Body.String(), "already exists") {
		t.Error("duplicate username not reported")
	}
}
