package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

type ctxKey int

const (
	userCtxKey ctxKey = iota
	flashesCtxKey
)

// CurrentUser returns the member LoadSessionUser attached to r.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(userCtxKey).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser attaches u to r as if LoadSessionUser had found it.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userCtxKey, u))
}

// LoadSessionUser attaches the signed-in member to the request. With a
// fetcher set, a member who was deleted or disabled is signed out.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sm.session(r)
		userID, _ := sess.Values[userIDKey].(string)
		if signedIn, _ := sess.Values[signedInKey].(bool); !signedIn || userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		if sm.fetcher == nil {
			role, _ := sess.Values[roleKey].(string)
			next.ServeHTTP(w, withUser(r, &SessionUser{ID: userID, Role: role}))
			return
		}
		if u := sm.fetcher.FetchUser(r.Context(), userID); u != nil {
			next.ServeHTTP(w, withUser(r, u))
			return
		}

		sm.logger.Info("signed out missing or disabled user", zap.String("user_id", userID))
		delete(sess.Values, signedInKey)
		delete(sess.Values, userIDKey)
		if err := sess.Save(r, w); err != nil {
			sm.logger.Warn("failed to save session", zap.Error(err))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn lets signed-in members through. Browsers are sent to
// /login with a return URL; htmx gets HX-Redirect; other callers get 401.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		target := "/login?return=" + url.QueryEscape(r.URL.RequestURI())
		switch {
		case isHTMX(r):
			w.Header().Set("HX-Redirect", target)
			w.WriteHeader(http.StatusUnauthorized)
		case wantsHTML(r):
			http.Redirect(w, r, target, http.StatusSeeOther)
		default:
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}
	})
}

// RequireOnboarded sends members who have not finished onboarding to
// /onboarding; API callers get 409. Mount it after RequireSignedIn.
func (sm *SessionManager) RequireOnboarded(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := CurrentUser(r)
		if !ok || u.Onboarded {
			next.ServeHTTP(w, r)
			return
		}
		if wantsHTML(r) {
			http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
			return
		}
		http.Error(w, "onboarding required", http.StatusConflict)
	})
}

// LoadFlashes pops queued flashes into the context on full page loads, so
// view models can read them with FlashesFrom.
func (sm *SessionManager) LoadFlashes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && wantsHTML(r) && !isHTMX(r) {
			if msgs := sm.Flashes(w, r); len(msgs) > 0 {
				r = r.WithContext(context.WithValue(r.Context(), flashesCtxKey, msgs))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// FlashesFrom returns the messages LoadFlashes placed on r.
func FlashesFrom(r *http.Request) []string {
	msgs, _ := r.Context().Value(flashesCtxKey).([]string)
	return msgs
}

func isHTMX(r *http.Request) bool { return r.Header.Get("HX-Request") == "true" }

func wantsHTML(r *http.Request) bool {
	return isHTMX(r) || strings.Contains(r.Header.Get("Accept"), "text/html")
}
