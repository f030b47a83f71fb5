package errors

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bloomcycle/bloom/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPages(t *testing.T) {
	testutil.MustBootTemplates(t)
	h := NewHandler()

	tests := []struct {
		name   string
		handle http.HandlerFunc
		status int
		text   string
	}{
		{"forbidden", h.Forbidden, http.StatusForbidden, "Access denied"},
		{"unauthorized", h.Unauthorized, http.StatusUnauthorized, "Please log in"},
		{"not found", h.NotFound, http.StatusNotFound, "Page not found"},
		{"internal", h.InternalError, http.StatusInternalServerError, "Something went wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.WithCSRFToken(httptest.NewRequest(http.MethodGet, "/somewhere", nil))
			rec := httptest.NewRecorder()
			tt.handle(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if !strings.Contains(rec.Body.String(), tt.text) {
				t.Errorf("body missing %q", tt.text)
			}
		})
	}
}

func TestNotFound_API(t *testing.T) {
	h := NewHandler()

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want JSON", ct)
	}
	if !strings.Contains(rec.Body.String(), `"not_found"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestWantsJSON(t *testing.T) {
	tests := []struct {
		path, accept string
		want         bool
	}{
		{"/api/calendar", "", true},
		{"/calendar", "", false},
		{"/calendar", "application/json", true},
		{"/calendar", "text/html,application/json", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		req.Header.Set("Accept", tt.accept)
		if got := wantsJSON(req); got != tt.want {
			t.Errorf("wantsJSON(%s, %q) = %v, want %v", tt.path, tt.accept, got, tt.want)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewHandler()

	rec := httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodGet, "/api/checkin/dismiss", nil))
	if rec.Code != http.StatusMethodNotAllowed || !strings.Contains(rec.Body.String(), "method_not_allowed") {
		t.Errorf("API 405 = %d %s", rec.Code, rec.Body.String())
	}
}

func TestErrorLogger_Fields(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	errLog := NewErrorLogger(zap.New(core))

	req := testutil.NewAuthenticatedRequest(http.MethodPost, "/cycles", testutil.Member())
	errLog.LogWithFields(req, "failed to log period", errors.New("boom"), zap.String("start", "2024-03-01"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/cycles" || fields["method"] != "POST" || fields["start"] != "2024-03-01" {
		t.Errorf("fields = %v", fields)
	}
	if fields["user_id"] == nil {
		t.Error("user_id missing for a signed-in request")
	}
}
