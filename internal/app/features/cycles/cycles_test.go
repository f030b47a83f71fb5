package cycles

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bloomcycle/bloom/internal/app/calendar"
	errorsfeature "github.com/bloomcycle/bloom/internal/app/features/errors"
	cyclestore "github.com/bloomcycle/bloom/internal/app/store/cycles"
	"github.com/bloomcycle/bloom/internal/domain/models"
	"github.com/bloomcycle/bloom/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var fixedClock = calendar.ClockFunc(func() time.Time {
	return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
})

func setup(t *testing.T) (*Handler, *mongo.Database, testutil.TestUser) {
	t.Helper()
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	h := NewHandler(db, testutil.NewSessionManager(t), fixedClock, nil, errorsfeature.NewErrorLogger(logger), logger)
	return h, db, testutil.Member()
}

func serve(t *testing.T, h *Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	Routes(h, h.sessionMgr).ServeHTTP(rec, testutil.WithCSRFToken(req))
	return rec
}

func postForm(user testutil.TestUser, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return testutil.WithUser(req, user)
}

func TestList(t *testing.T) {
	h, db, user := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	uid, _ := primitive.ObjectIDFromHex(user.ID)
	store := cyclestore.New(db)
	_, _ = store.Create(ctx, uid, "2024-01-05", "2024-01-09")
	_, _ = store.Create(ctx, uid, "2024-02-02", "")

	rec := serve(t, h, testutil.NewAuthenticatedRequest(http.MethodGet, "/", user))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"2024-01-09", "28 days", `name="start_date"`, `max="2024-03-15"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestCreate(t *testing.T) {
	h, db, user := setup(t)

	rec := serve(t, h, postForm(user, "/", url.Values{"start_date": {"2024-03-01"}, "end_date": {"2024-03-05"}}))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/cycles" {
		t.Fatalf("POST = %d %q, want 303 /cycles", rec.Code, rec.Header().Get("Location"))
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	uid, _ := primitive.ObjectIDFromHex(user.ID)
	list, err := cyclestore.New(db).ListByUser(ctx, uid)
	if err != nil || len(list) != 1 || list[0].EndDate != "2024-03-05" {
		t.Errorf("ListByUser() = %+v, %v", list, err)
	}
}

func TestCreate_Rejects(t *testing.T) {
	h, db, user := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	uid, _ := primitive.ObjectIDFromHex(user.ID)
	_, _ = cyclestore.New(db).Create(ctx, uid, "2024-02-01", "")

	tests := []struct {
		name  string
		start string
		end   string
		want  string
	}{
		{"missing start", "", "", "Please choose a start date."},
		{"bad start", "yesterday", "", "Please enter a valid date."},
		{"future start", "2024-03-16", "", "Start date cannot be in the future."},
		{"end before start", "2024-03-05", "2024-03-01", "End date cannot be before the start date."},
		{"duplicate", "2024-02-01", "", "You already logged a period starting on that day."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, h, postForm(user, "/", url.Values{"start_date": {tt.start}, "end_date": {tt.end}}))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	h, db, user := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	uid, _ := primitive.ObjectIDFromHex(user.ID)
	store := cyclestore.New(db)
	c, _ := store.Create(ctx, uid, "2024-02-01", "")

	rec := serve(t, h, postForm(user, "/"+c.ID.Hex()+"/delete", nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("delete status = %d, want 303", rec.Code)
	}
	if _, err := store.Covering(ctx, uid, "2024-02-01"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("period still present: %v", err)
	}

	rec = serve(t, h, postForm(user, "/"+c.ID.Hex()+"/delete", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
	rec = serve(t, h, postForm(user, "/not-an-id/delete", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("bad id delete = %d, want 404", rec.Code)
	}
}

func TestDelete_OtherUsersPeriod(t *testing.T) {
	h, db, user := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	c, _ := cyclestore.New(db).Create(ctx, primitive.NewObjectID(), "2024-02-01", "")

	rec := serve(t, h, postForm(user, "/"+c.ID.Hex()+"/delete", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete other user's period = %d, want 404", rec.Code)
	}
}

func TestBuildRows(t *testing.T) {
	got := buildRows([]models.Cycle{
		{StartDate: "2024-03-01", EndDate: "2024-03-05"},
		{StartDate: "2024-02-02"},
	})
	if got[0].Days != 5 || got[0].Length != 0 {
		t.Errorf("rows[0] = %+v", got[0])
	}
	if got[1].Days != 1 || got[1].Length != 28 {
		t.Errorf("rows[1] = %+v", got[1])
	}
}
