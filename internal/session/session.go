// Package session holds the authenticated identity of the running client.
//
// A Store is created explicitly and passed to every component that needs the
// token; there is no package-level singleton. Token and user are always set and
// cleared together.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/healthtic/internal/logger"
	"github.com/healthtic/internal/model"
	"github.com/healthtic/internal/storage"
)

// DefaultKey is the storage key of the persisted session document.
const DefaultKey = "auth-storage"

// ErrNotAuthenticated is returned by components that require a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// persisted mirrors the document written by the web front-end's persisted store,
// so a session saved by either client can be read by the other.
type persisted struct {
	State struct {
		Token           string      `json:"token"`
		User            *model.User `json:"user"`
		IsAuthenticated bool        `json:"isAuthenticated"`
	} `json:"state"`
	Version int `json:"version"`
}

type Store struct {
	mu    sync.RWMutex
	token string
	user  *model.User

	persister storage.SessionStore
	key       string
}

// New creates an empty (logged-out) store. Call Load before the first request.
func New(persister storage.SessionStore, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{persister: persister, key: key}
}

// Load rehydrates the session from durable storage. A missing, malformed or
// incomplete document leaves the store logged out; a corrupt one is removed.
// Only storage I/O failures are returned.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	data, err := s.persister.Load(ctx, s.key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.token, s.user = "", nil
	s.mu.Unlock()
	if data == nil {
		return nil
	}

	var doc persisted
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warnf("session: stored state is not valid json, treating as logged out: %v", err)
		s.discard(ctx)
		return nil
	}
	if doc.State.Token == "" && doc.State.User == nil {
		return nil
	}
	if doc.State.Token == "" || doc.State.User == nil || !doc.State.User.Role.Valid() {
		logger.Warnf("session: stored state incomplete (token=%t user=%t), treating as logged out",
			doc.State.Token != "", doc.State.User != nil)
		s.discard(ctx)
		return nil
	}

	u := *doc.State.User
	s.mu.Lock()
	s.token, s.user = doc.State.Token, &u
	s.mu.Unlock()
	logger.Debugf("session: restored user=%s role=%s", u.Username, u.Role)
	return nil
}

func (s *Store) discard(ctx context.Context) {
	if err := s.persister.Delete(ctx, s.key); err != nil {
		logger.Errorf("session: delete corrupt state: %v", err)
	}
}

// Login overwrites the session unconditionally. It must only be called after the
// backend accepted the credentials. Persistence failures are logged; the in-memory
// session is still updated.
func (s *Store) Login(ctx context.Context, token string, user model.User) {
	u := user
	s.mu.Lock()
	s.token, s.user = token, &u
	s.mu.Unlock()
	s.persist(ctx)
}

// Logout clears token and user and removes the persisted document.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.token, s.user = "", nil
	s.mu.Unlock()
	if s.persister == nil {
		return
	}
	if err := s.persister.Delete(ctx, s.key); err != nil {
		logger.Errorf("session: delete on logout: %v", err)
	}
}

func (s *Store) persist(ctx context.Context) {
	if s.persister == nil {
		return
	}
	var doc persisted
	s.mu.RLock()
	doc.State.Token = s.token
	doc.State.User = s.user
	doc.State.IsAuthenticated = s.token != ""
	s.mu.RUnlock()
	data, err := json.Marshal(doc)
	if err != nil {
		logger.Errorf("session: marshal: %v", err)
		return
	}
	if err := s.persister.Save(ctx, s.key, data); err != nil {
		logger.Errorf("session: save: %v", err)
	}
}

// Token returns the current credential or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the current user, or nil when logged out.
func (s *Store) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated is derived from the token on every call.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// Snapshot returns token and user read under one lock.
func (s *Store) Snapshot() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := model.Session{Token: s.token}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// Role returns the session role or "" when logged out.
func (s *Store) Role() model.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.Role
}
