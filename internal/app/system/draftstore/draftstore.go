// Package draftstore keeps check-in form drafts in the signed session cookie
// so the server-rendered form behaves like one backed by browser storage.
package draftstore

import (
	"net/http"

	"github.com/bloomcycle/bloom/internal/app/system/auth"
)

// sessionPrefix keeps draft keys apart from the auth values.
const sessionPrefix = "draft:"

// Store implements pagebehaviors.Storage for one request. Reads see the
// session as it arrived plus this request's writes; Save persists the writes.
type Store struct {
	sm      *auth.SessionManager
	r       *http.Request
	pending map[string]string // "" marks a removal
}

// Load binds a Store to the request's session.
func Load(sm *auth.SessionManager, r *http.Request) *Store {
	return &Store{sm: sm, r: r, pending: map[string]string{}}
}

func (s *Store) GetItem(key string) (string, bool) {
	if v, ok := s.pending[key]; ok {
		return v, v != ""
	}
	v := s.sm.Value(s.r, sessionPrefix+key)
	return v, v != ""
}

func (s *Store) SetItem(key, value string) {
	s.pending[key] = value
}

func (s *Store) RemoveItem(key string) {
	s.pending[key] = ""
}

// Dirty reports whether Save has anything to write.
func (s *Store) Dirty() bool {
	return len(s.pending) > 0
}

// Save writes pending changes, and any flashes, to the session cookie.
func (s *Store) Save(w http.ResponseWriter, flashes ...string) error {
	if len(s.pending) == 0 && len(flashes) == 0 {
		return nil
	}
	kv := make(map[string]string, len(s.pending))
	for k, v := range s.pending {
		kv[sessionPrefix+k] = v
	}
	if err := s.sm.SetValues(w, s.r, kv, flashes...); err != nil {
		return err
	}
	s.pending = map[string]string{}
	return nil
}
