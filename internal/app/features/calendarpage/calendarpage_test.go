package calendarpage

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bloomcycle/bloom/internal/app/calendar"
	errorsfeature "github.com/bloomcycle/bloom/internal/app/features/errors"
	"github.com/bloomcycle/bloom/internal/app/prediction"
	cyclestore "github.com/bloomcycle/bloom/internal/app/store/cycles"
	userstore "github.com/bloomcycle/bloom/internal/app/store/users"
	"github.com/bloomcycle/bloom/internal/app/system/auth"
	"github.com/bloomcycle/bloom/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var fixedClock = calendar.ClockFunc(func() time.Time {
	return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
})

type fixture struct {
	h    *Handler
	sm   *auth.SessionManager
	db   *mongo.Database
	user testutil.TestUser
	uid  primitive.ObjectID
}

func setup(t *testing.T) fixture {
	t.Helper()
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := userstore.New(db)
	u, err := users.Create(ctx, userstore.CreateInput{LoginID: "ivy", Email: "ivy@example.com"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := users.CompleteOnboarding(ctx, u.ID, userstore.OnboardingInput{AvgCycleLength: 28, LastPeriodStart: "2024-03-01"}); err != nil {
		t.Fatalf("CompleteOnboarding() error = %v", err)
	}

	sm := testutil.NewSessionManager(t)
	logger := zap.NewNop()
	h := NewHandler(db, sm, fixedClock, prediction.DefaultConfig(), nil, errorsfeature.NewErrorLogger(logger), logger)
	user := testutil.TestUser{ID: u.ID.Hex(), Name: "ivy", Email: "ivy", Role: "user", Onboarded: true}
	return fixture{h: h, sm: sm, db: db, user: user, uid: u.ID}
}

func (f fixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	Routes(f.h, f.sm).ServeHTTP(rec, testutil.WithCSRFToken(testutil.WithUser(req, f.user)))
	return rec
}

func htmx(req *http.Request) *http.Request {
	req.Header.Set("HX-Request", "true")
	return req
}

func TestShow_RendersWidget(t *testing.T) {
	f := setup(t)

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"March 2024",
		`data-date="2024-03-15"`,
		"calendar-day-today",
		"2024-03-29",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestShow_MonthQuery(t *testing.T) {
	f := setup(t)

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/?month=2024-12", nil))
	if !strings.Contains(rec.Body.String(), "December 2024") {
		t.Error("?month=2024-12 did not move the cursor")
	}
}

func TestClick_NavigationPersists(t *testing.T) {
	f := setup(t)

	rec := f.serve(htmx(httptest.NewRequest(http.MethodGet, "/click?action=next-month", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("click status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "April 2024") {
		t.Error("snippet does not show April 2024")
	}
	if strings.Contains(rec.Body.String(), "<html") {
		t.Error("HTMX click rendered the full layout")
	}

	req := testutil.CarryCookies(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	page := f.serve(req)
	if !strings.Contains(page.Body.String(), "April 2024") {
		t.Error("cursor was not restored from the session")
	}
}

func TestClick_SelectRedirectsWithoutHTMX(t *testing.T) {
	f := setup(t)

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/click?date=2024-03-10", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/calendar" {
		t.Fatalf("click = %d %q, want 303 /calendar", rec.Code, rec.Header().Get("Location"))
	}

	page := f.serve(testutil.CarryCookies(httptest.NewRequest(http.MethodGet, "/", nil), rec))
	body := page.Body.String()
	if !strings.Contains(body, "calendar-day-selected") {
		t.Error("selection was not restored")
	}
	if !strings.Contains(body, "/checkin?date=2024-03-10") {
		t.Error("check-in link missing for a past selection")
	}
}

func TestClick_FutureSelectionHasNoCheckInLink(t *testing.T) {
	f := setup(t)

	rec := f.serve(htmx(httptest.NewRequest(http.MethodGet, "/click?date=2024-03-20", nil)))
	if strings.Contains(rec.Body.String(), "/checkin?date=") {
		t.Error("future day offered a check-in link")
	}
	if !strings.Contains(rec.Body.String(), "Log period day") {
		t.Error("toggle control missing for the selected day")
	}
}

func TestClick_ToggleRequiresPost(t *testing.T) {
	f := setup(t)

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/click?action=toggle-period&date=2024-03-10", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET toggle = %d, want 405", rec.Code)
	}
}

func TestClick_ToggleLogsAndRemoves(t *testing.T) {
	f := setup(t)
	cycles := cyclestore.New(f.db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rec := f.serve(htmx(httptest.NewRequest(http.MethodPost, "/click?action=toggle-period&date=2024-03-10", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d, want 200", rec.Code)
	}
	if _, err := cycles.Covering(ctx, f.uid, "2024-03-10"); err != nil {
		t.Fatalf("Covering() after log error = %v", err)
	}
	if !strings.Contains(rec.Body.String(), "calendar-day-period") {
		t.Error("snippet does not show the logged day")
	}

	f.serve(htmx(httptest.NewRequest(http.MethodPost, "/click?action=toggle-period&date=2024-03-10", nil)))
	if _, err := cycles.Covering(ctx, f.uid, "2024-03-10"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("Covering() after remove error = %v, want ErrNoDocuments", err)
	}
}

func TestClick_ToggleInsideLongPeriod(t *testing.T) {
	f := setup(t)
	cycles := cyclestore.New(f.db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := cycles.Create(ctx, f.uid, "2024-03-04", "2024-03-08"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec := f.serve(htmx(httptest.NewRequest(http.MethodPost, "/click?action=toggle-period&date=2024-03-06", nil)))
	if !strings.Contains(rec.Body.String(), "longer period") {
		t.Error("notice missing for a multi-day period")
	}
	if _, err := cycles.Covering(ctx, f.uid, "2024-03-06"); err != nil {
		t.Errorf("multi-day period was modified: %v", err)
	}
}

func TestClick_ToggleConsecutiveDaysFormOnePeriod(t *testing.T) {
	f := setup(t)
	cycles := cyclestore.New(f.db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, d := range []string{"2024-03-04", "2024-03-05", "2024-03-06"} {
		f.serve(htmx(httptest.NewRequest(http.MethodPost, "/click?action=toggle-period&date="+d, nil)))
	}
	list, err := cycles.ListByUser(ctx, f.uid)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(list) != 1 || list[0].StartDate != "2024-03-04" || list[0].EndDate != "2024-03-06" {
		t.Fatalf("periods = %+v, want one 2024-03-04..2024-03-06", list)
	}

	// Unmarking the last day shrinks the period instead of raising a notice.
	rec := f.serve(htmx(httptest.NewRequest(http.MethodPost, "/click?action=toggle-period&date=2024-03-06", nil)))
	if strings.Contains(rec.Body.String(), "longer period") {
		t.Error("notice shown for the last day of a period")
	}
	if _, err := cycles.Covering(ctx, f.uid, "2024-03-06"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("Covering(2024-03-06) error = %v, want ErrNoDocuments", err)
	}
}

func TestMonthAPI(t *testing.T) {
	f := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	_, _ = cyclestore.New(f.db).Create(ctx, f.uid, "2024-02-02", "2024-02-05")

	rec := httptest.NewRecorder()
	req := testutil.WithUser(httptest.NewRequest(http.MethodGet, "/?month=2024-02", nil), f.user)
	APIRoutes(f.h, f.sm).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got monthJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Month != "2024-02" || got.Today != "2024-03-15" {
		t.Errorf("month/today = %q/%q", got.Month, got.Today)
	}
	if len(got.Periods) != 1 || got.Periods[0].EndDate != "2024-02-05" {
		t.Errorf("periods = %+v", got.Periods)
	}
	if got.CycleLength != 28 {
		t.Errorf("cycle_length = %d, want 28", got.CycleLength)
	}
	if len(got.Predictions) != 3 || got.Predictions[0].Date != "2024-03-29" {
		t.Errorf("predictions = %+v", got.Predictions)
	}
}

func TestMonthAPI_BadMonth(t *testing.T) {
	f := setup(t)

	rec := httptest.NewRecorder()
	req := testutil.WithUser(httptest.NewRequest(http.MethodGet, "/?month=March", nil), f.user)
	APIRoutes(f.h, f.sm).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
