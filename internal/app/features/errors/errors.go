// internal/app/features/errors/errors.go
package errors

import (
	"net/http"
	"strings"

	"github.com/bloomcycle/bloom/internal/app/system/auth"
	"github.com/bloomcycle/bloom/internal/app/system/jsonutil"
	"github.com/bloomcycle/bloom/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// ErrorLogger logs handler failures with the request's path, method and,
// when signed in, the user id.
type ErrorLogger struct {
	logger *zap.Logger
}

func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{logger: logger}
}

// Log logs err under msg.
func (e *ErrorLogger) Log(r *http.Request, msg string, err error) {
	e.LogWithFields(r, msg, err)
}

// LogWithFields logs err under msg with extra fields.
func (e *ErrorLogger) LogWithFields(r *http.Request, msg string, err error, fields ...zap.Field) {
	all := []zap.Field{
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	}
	if u, ok := auth.CurrentUser(r); ok {
		all = append(all, zap.String("user_id", u.ID))
	}
	e.logger.Error(msg, append(all, fields...)...)
}

// Handler renders error pages. API requests get a JSON body instead.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// wantsJSON reports whether the client expects JSON rather than a page.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, page, title, code string) {
	if wantsJSON(r) {
		jsonutil.Error(w, status, code)
		return
	}
	vm := viewdata.New(r)
	vm.Title = title
	w.WriteHeader(status)
	templates.Render(w, r, page, vm)
}

// Forbidden answers 403.
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusForbidden, "errors/forbidden", "Access Denied", "forbidden")
}

// Unauthorized answers 401.
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusUnauthorized, "errors/unauthorized", "Please log in", "unauthorized")
}

// NotFound answers 404. It is also the router's NotFound handler.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusNotFound, "errors/not_found", "Not Found", "not_found")
}

// InternalError answers 500.
func (h *Handler) InternalError(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusInternalServerError, "errors/internal", "Something went wrong", "internal_error")
}

// MethodNotAllowed answers 405.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		jsonutil.Error(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
}
