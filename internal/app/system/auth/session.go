// Package auth keeps the signed-in member in a gorilla cookie session and
// provides the middleware that loads and requires it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Session value keys.
const (
	signedInKey = "signed_in"
	userIDKey   = "user_id"
	roleKey     = "role"
	flashKey    = "_flash"
)

const defaultCookieName = "bloom-session"

// minKeyLen is the shortest session key accepted in production.
const minKeyLen = 32

// ErrWeakSessionKey is returned when production is configured with a short
// or placeholder key.
var ErrWeakSessionKey = errors.New("auth: session key must be 32+ random characters in production")

// UserFetcher loads the current state of a member on each request. It
// returns nil when the member no longer exists or is disabled.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// SessionUser is the member attached to a request.
type SessionUser struct {
	ID        string
	Name      string
	LoginID   string
	Role      string
	Onboarded bool
}

// UserID parses ID, returning NilObjectID when it is malformed.
func (u *SessionUser) UserID() primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

// SessionManager owns the cookie store and the session middleware.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	fetcher UserFetcher
	logger  *zap.Logger
}

// NewSessionManager builds the cookie store. A weak key is rejected when
// secure (production) is set and only warned about otherwise.
func NewSessionManager(key, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if key == "" {
		return nil, errors.New("auth: session key is empty")
	}
	if weak := weakKey(key); weak {
		if secure {
			return nil, ErrWeakSessionKey
		}
		logger.Warn("weak session key; use 32+ random characters outside dev", zap.Int("length", len(key)))
	}
	if name == "" {
		name = defaultCookieName
	}

	store := sessions.NewCookieStore([]byte(key))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	logger.Info("session manager ready", zap.String("cookie", name), zap.Bool("secure", secure))
	return &SessionManager{store: store, name: name, logger: logger}, nil
}

// SetUserFetcher makes LoadSessionUser re-read the member on every request.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) { sm.fetcher = f }

// session returns the request's session. An unreadable cookie yields a
// fresh session and is logged by severity.
func (sm *SessionManager) session(r *http.Request) *sessions.Session {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		sm.logCookieProblem(r, err)
	}
	return sess
}

// CreateSession signs userID in.
func (sm *SessionManager) CreateSession(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID, role string) error {
	sess := sm.session(r)
	sess.Values[signedInKey] = true
	sess.Values[userIDKey] = userID.Hex()
	sess.Values[roleKey] = role
	return sess.Save(r, w)
}

// DestroySession signs the member out. Queued flashes survive, and any
// flashes given are added in the same cookie write.
func (sm *SessionManager) DestroySession(w http.ResponseWriter, r *http.Request, flashes ...string) {
	sess := sm.session(r)
	for k := range sess.Values {
		if k != flashKey {
			delete(sess.Values, k)
		}
	}
	for _, f := range flashes {
		sess.AddFlash(f, flashKey)
	}
	if err := sess.Save(r, w); err != nil {
		sm.logger.Warn("failed to save session", zap.Error(err))
	}
}

// Value reads a string stored in the session.
func (sm *SessionManager) Value(r *http.Request, key string) string {
	s, _ := sm.session(r).Values[key].(string)
	return s
}

// SetValues stores kv in the session, deleting keys whose value is empty,
// and queues flashes in the same save.
func (sm *SessionManager) SetValues(w http.ResponseWriter, r *http.Request, kv map[string]string, flashes ...string) error {
	sess := sm.session(r)
	for k, v := range kv {
		if v == "" {
			delete(sess.Values, k)
		} else {
			sess.Values[k] = v
		}
	}
	for _, f := range flashes {
		sess.AddFlash(f, flashKey)
	}
	return sess.Save(r, w)
}

// AddFlash queues a message for the next rendered page.
func (sm *SessionManager) AddFlash(w http.ResponseWriter, r *http.Request, msg string) {
	if err := sm.SetValues(w, r, nil, msg); err != nil {
		sm.logger.Warn("failed to save flash", zap.Error(err))
	}
}

// Flashes pops the queued messages.
func (sm *SessionManager) Flashes(w http.ResponseWriter, r *http.Request) []string {
	sess := sm.session(r)
	raw := sess.Flashes(flashKey)
	if len(raw) == 0 {
		return nil
	}
	if err := sess.Save(r, w); err != nil {
		sm.logger.Warn("failed to clear flashes", zap.Error(err))
	}
	msgs := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			msgs = append(msgs, s)
		}
	}
	return msgs
}

func weakKey(key string) bool {
	if len(key) < minKeyLen {
		return true
	}
	lower := strings.ToLower(key)
	for _, p := range []string{"change-me", "changeme", "dev-only", "placeholder", "example", "insecure", "secret"} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// cookieProblem names why a session cookie could not be decoded:
// expired, tampered, corrupt or backend.
func cookieProblem(err error) string {
	var sc securecookie.Error
	if !errors.As(err, &sc) || !sc.IsDecode() {
		return "backend"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "expired"):
		return "expired"
	case strings.Contains(msg, "not valid"), strings.Contains(msg, "mac"):
		return "tampered"
	default:
		return "corrupt"
	}
}

func (sm *SessionManager) logCookieProblem(r *http.Request, err error) {
	kind := cookieProblem(err)
	fields := []zap.Field{zap.String("problem", kind), zap.String("path", r.URL.Path)}
	switch kind {
	case "expired":
		sm.logger.Debug("session cookie expired", fields...)
	case "tampered":
		sm.logger.Warn("session cookie failed MAC check", append(fields, zap.String("remote_addr", r.RemoteAddr))...)
	case "corrupt":
		sm.logger.Info("session cookie unreadable", fields...)
	default:
		sm.logger.Error("session store error", append(fields, zap.Error(fmt.Errorf("session %s: %w", sm.name, err)))...)
	}
}
