// Package jsonutil writes the JSON bodies of Bloom's /api endpoints.
//
// Prompt endpoints answer with {"status": "..."} (plus extra fields such as
// "prompt"); failures that are not part of that protocol use {"error": "..."}.
package jsonutil

import (
	"encoding/json"
	"errors"
	"net/http"
)

// maxBody bounds request bodies read by Decode.
const maxBody = 64 << 10

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// OK writes a 200 response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Status writes {"status": status} plus any extra fields.
func Status(w http.ResponseWriter, code int, status string, extra map[string]any) {
	body := map[string]any{"status": status}
	for k, v := range extra {
		body[k] = v
	}
	JSON(w, code, body)
}

// Error writes {"error": message}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

// InternalError writes a 500 error. Log the cause separately; message is
// shown to the client.
func InternalError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message)
}

// ErrEmptyBody is returned by Decode for a request without a body.
var ErrEmptyBody = errors.New("request body is empty")

// Decode reads a JSON body of at most 64 KiB into v.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return ErrEmptyBody
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
