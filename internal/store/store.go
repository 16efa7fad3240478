package store

import (
	"context"

	"github.com/me/journal/internal/session"
	"github.com/me/journal/pkg/model"
)

// Store persists browser sessions for the web front end and the session
// values (token, username, role) each one holds.
type Store interface {
	// Browser sessions
	CreateBrowserSession(ctx context.Context, bs *model.BrowserSession) error
	GetBrowserSession(ctx context.Context, id string) (*model.BrowserSession, error)
	DeleteBrowserSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)

	// Values scoped to a browser session
	GetValue(ctx context.Context, sessionID, key string) (string, bool, error)
	SetValue(ctx context.Context, sessionID, key, value string) error
	DeleteValue(ctx context.Context, sessionID, key string) error
	Scope(sessionID string) session.Storage

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
