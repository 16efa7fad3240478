package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/journal/internal/session"
	"github.com/me/journal/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
		now:    time.Now,
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Browser session operations ---

func (s *SQLiteStore) CreateBrowserSession(ctx context.Context, bs *model.BrowserSession) error {
	s.logger.Debug("sql", "op", "insert", "table", "browser_sessions", "id", bs.ID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO browser_sessions (id, user_agent, created_at, expires_at)
		 VALUES (?, ?, ?, ?)`,
		bs.ID, bs.UserAgent, bs.CreatedAt.Unix(), bs.ExpiresAt.Unix(),
	)
	return err
}

// GetBrowserSession returns the browser session, or nil if there is none.
func (s *SQLiteStore) GetBrowserSession(ctx context.Context, id string) (*model.BrowserSession, error) {
	s.logger.Debug("sql", "op", "select", "table", "browser_sessions", "id", id)

	var bs model.BrowserSession
	var createdAt, expiresAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_agent, created_at, expires_at
		 FROM browser_sessions WHERE id = ?`, id,
	).Scan(&bs.ID, &bs.UserAgent, &createdAt, &expiresAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	bs.CreatedAt = time.Unix(createdAt, 0)
	bs.ExpiresAt = time.Unix(expiresAt, 0)
	return &bs, nil
}

// DeleteBrowserSession removes the browser session and every value it holds.
func (s *SQLiteStore) DeleteBrowserSession(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "browser_sessions", "id", id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_values WHERE session_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM browser_sessions WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteExpiredSessions removes expired browser sessions and their values.
// It returns the number of browser sessions removed.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	s.logger.Debug("sql", "op", "delete_expired", "table", "browser_sessions")

	now := s.now().Unix()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM session_values WHERE session_id IN
		 (SELECT id FROM browser_sessions WHERE expires_at < ?)`, now); err != nil {
		return 0, err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM browser_sessions WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// --- Session value operations ---

func (s *SQLiteStore) GetValue(ctx context.Context, sessionID, key string) (string, bool, error) {
	s.logger.Debug("sql", "op", "select", "table", "session_values", "session_id", sessionID, "key", key)

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_values WHERE session_id = ? AND key = ?`, sessionID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLiteStore) SetValue(ctx context.Context, sessionID, key, value string) error {
	s.logger.Debug("sql", "op", "upsert", "table", "session_values", "session_id", sessionID, "key", key)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_values (session_id, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		sessionID, key, value, s.now().Unix(),
	)
	return err
}

func (s *SQLiteStore) DeleteValue(ctx context.Context, sessionID, key string) error {
	s.logger.Debug("sql", "op", "delete", "table", "session_values", "session_id", sessionID, "key", key)

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE session_id = ? AND key = ?`, sessionID, key)
	return err
}

// Scope returns the values of one browser session as a session.Storage.
func (s *SQLiteStore) Scope(sessionID string) session.Storage {
	return &scopedStorage{store: s, id: sessionID}
}

type scopedStorage struct {
	store *SQLiteStore
	id    string
}

func (sc *scopedStorage) Get(ctx context.Context, key string) (string, bool, error) {
	return sc.store.GetValue(ctx, sc.id, key)
}

func (sc *scopedStorage) Set(ctx context.Context, key, value string) error {
	return sc.store.SetValue(ctx, sc.id, key, value)
}

func (sc *scopedStorage) Remove(ctx context.Context, key string) error {
	return sc.store.DeleteValue(ctx, sc.id, key)
}
