package ui

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/me/journal/internal/store"
	"github.com/me/journal/pkg/model"
)

const (
	// SessionCookieName is the name of the browser session cookie.
	SessionCookieName = "journal_session"
	// SessionDuration is the default browser session lifetime.
	SessionDuration = 7 * 24 * time.Hour
)

// SessionManager issues and looks up browser sessions. A browser session
// only names a scope of persisted values; whether the browser is signed in
// is decided by the token stored under that scope.
type SessionManager struct {
	store store.Store
	ttl   time.Duration
}

// NewSessionManager creates a new session manager. A zero ttl means
// SessionDuration.
func NewSessionManager(st store.Store, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = SessionDuration
	}
	return &SessionManager{store: st, ttl: ttl}
}

// CreateSession starts a new browser session.
func (sm *SessionManager) CreateSession(ctx context.Context, userAgent string) (*model.BrowserSession, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	now := time.Now()
	bs := &model.BrowserSession{
		ID:        sessionID,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(sm.ttl),
	}
	if err := sm.store.CreateBrowserSession(ctx, bs); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return bs, nil
}

// GetSession retrieves a browser session by ID.
// Returns nil if the session doesn't exist or has expired.
func (sm *SessionManager) GetSession(ctx context.Context, sessionID string) (*model.BrowserSession, error) {
	bs, err := sm.store.GetBrowserSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if bs == nil {
		return nil, nil
	}
	if bs.IsExpired() {
		_ = sm.store.DeleteBrowserSession(ctx, sessionID)
		return nil, nil
	}
	return bs, nil
}

// DeleteSession removes a browser session and its values.
func (sm *SessionManager) DeleteSession(ctx context.Context, sessionID string) error {
	return sm.store.DeleteBrowserSession(ctx, sessionID)
}

// CleanupExpiredSessions removes all expired browser sessions.
func (sm *SessionManager) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return sm.store.DeleteExpiredSessions(ctx)
}

// GetSessionFromRequest extracts the browser session from the request cookie.
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) (*model.BrowserSession, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, nil // No cookie, no session
	}
	return sm.GetSession(r.Context(), cookie.Value)
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, bs *model.BrowserSession, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    bs.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  bs.ExpiresAt,
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// generateSessionID generates a cryptographically secure random session ID.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "sess_" + hex.EncodeToString(b), nil
}
