// Package session holds the client-side session: the bearer token and the
// identity it belongs to, kept in memory and mirrored to durable Storage.
//
// Sign-in and sign-out are single operations over both layers. Callers never
// write the token to memory and storage separately.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/me/journal/pkg/model"
)

// Session is the page-lifetime session state. It is safe for concurrent use.
type Session struct {
	storage Storage

	mu  sync.RWMutex
	rec model.SessionRecord
}

// New returns an unauthenticated Session backed by storage. Call Initialize
// to pick up a previously persisted sign-in.
func New(storage Storage) *Session {
	return &Session{storage: storage}
}

// Initialize loads the persisted keys. A missing token leaves the session
// unauthenticated, and username and role are then ignored.
func (s *Session) Initialize(ctx context.Context) error {
	token, ok, err := s.storage.Get(ctx, KeyToken)
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	if !ok || token == "" {
		s.mu.Lock()
		s.rec = model.SessionRecord{}
		s.mu.Unlock()
		return nil
	}

	username, _, err := s.storage.Get(ctx, KeyUsername)
	if err != nil {
		return fmt.Errorf("load username: %w", err)
	}
	role, _, err := s.storage.Get(ctx, KeyRole)
	if err != nil {
		return fmt.Errorf("load role: %w", err)
	}

	s.mu.Lock()
	s.rec = model.SessionRecord{Token: token, Username: username, Role: role}
	s.mu.Unlock()
	return nil
}

// SetToken replaces the in-memory token without touching storage.
// Flows use SignIn and SignOut; this only changes what the current process sees.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.Token = token
	if token == "" {
		s.rec.Username = ""
		s.rec.Role = ""
	}
}

// SignIn persists token, username and role and then publishes them in
// memory. If any write fails, keys already written are removed and the
// session stays signed out.
func (s *Session) SignIn(ctx context.Context, token, username, role string) error {
	if token == "" {
		return errors.New("sign in: empty token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values := map[string]string{
		KeyToken:    token,
		KeyUsername: username,
		KeyRole:     role,
	}
	for i, key := range Keys {
		if err := s.storage.Set(ctx, key, values[key]); err != nil {
			for _, written := range Keys[:i] {
				_ = s.storage.Remove(ctx, written)
			}
			s.rec = model.SessionRecord{}
			return fmt.Errorf("persist %s: %w", key, err)
		}
	}

	s.rec = model.SessionRecord{Token: token, Username: username, Role: role}
	return nil
}

// SignOut clears memory first, then every persisted key. Readers never see
// the old token once SignOut has started, even if a removal fails; the first
// removal error is returned after all keys have been attempted.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec = model.SessionRecord{}

	var firstErr error
	for _, key := range Keys {
		if err := s.storage.Remove(ctx, key); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("remove %s: %w", key, err)
		}
	}
	return firstErr
}

// SetUsername persists and publishes a new username for the signed-in user.
func (s *Session) SetUsername(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rec.Token == "" {
		return errors.New("set username: not signed in")
	}
	if err := s.storage.Set(ctx, KeyUsername, username); err != nil {
		return fmt.Errorf("persist username: %w", err)
	}
	s.rec.Username = username
	return nil
}

// Token returns the current bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.Token
}

// Username returns the signed-in username.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.Username
}

// Role returns the signed-in role as the backend reported it.
func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.Role
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// IsAdmin reports whether the signed-in role is ADMIN.
func (s *Session) IsAdmin() bool {
	return s.Snapshot().IsAdmin()
}

// Snapshot returns a copy of the current record.
func (s *Session) Snapshot() model.SessionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec
}
