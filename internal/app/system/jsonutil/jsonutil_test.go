package jsonutil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		data     any
		wantBody string
	}{
		{"with data", http.StatusOK, map[string]string{"month": "2024-03"}, `{"month":"2024-03"}`},
		{"nil data", http.StatusOK, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			JSON(rec, tt.status, tt.data)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
			if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
				t.Errorf("Cache-Control = %q, want no-store", cc)
			}
			if body := strings.TrimSpace(rec.Body.String()); body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	Status(rec, http.StatusOK, "ok", map[string]any{"prompt": "How are you?"})

	body := strings.TrimSpace(rec.Body.String())
	if body != `{"prompt":"How are you?","status":"ok"}` {
		t.Errorf("body = %s", body)
	}

	rec = httptest.NewRecorder()
	Status(rec, http.StatusBadRequest, "not_actionable", nil)
	if rec.Code != http.StatusBadRequest || strings.TrimSpace(rec.Body.String()) != `{"status":"not_actionable"}` {
		t.Errorf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	BadRequest(rec, "bad month")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"error":"bad month"}` {
		t.Errorf("body = %s", body)
	}

	rec = httptest.NewRecorder()
	InternalError(rec, "internal error")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestDecode(t *testing.T) {
	type input struct {
		Response string `json:"response"`
	}

	var in input
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"response":"rested"}`))
	if err := Decode(httptest.NewRecorder(), req, &in); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if in.Response != "rested" {
		t.Errorf("Response = %q", in.Response)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"other":1}`))
	if err := Decode(httptest.NewRecorder(), req, &in); err == nil {
		t.Error("Decode() accepted an unknown field")
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	if err := Decode(httptest.NewRecorder(), req, &in); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("Decode(empty) error = %v, want ErrEmptyBody", err)
	}
}
