package ui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/me/journal/internal/logging"
	"github.com/me/journal/internal/store"
	"github.com/me/journal/pkg/model"
)

func setupTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:", logging.Discard())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
	return st
}

func TestSessionManager_CreateAndGet(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()

	sm := NewSessionManager(st, 0)
	ctx := context.Background()

	bs, err := sm.CreateSession(ctx, "test-agent")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if len(bs.ID) != len("sess_")+64 {
		t.Errorf("unexpected session ID %q", bs.ID)
	}
	if got := bs.ExpiresAt.Sub(bs.CreatedAt); got != SessionDuration {
		t.Errorf("expected lifetime %v, got %v", SessionDuration, got)
	}

	retrieved, err := sm.GetSession(ctx, bs.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if retrieved == nil {
		t.Fatal("expected session to be found")
	}
	if retrieved.UserAgent != "test-agent" {
		t.Errorf("expected UserAgent 'test-agent', got %q", retrieved.UserAgent)
	}
}

func TestSessionManager_GetSession_NotFound(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()

	sm := NewSessionManager(st, 0)
	sess, err := sm.GetSession(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess != nil {
		t.Error("expected nil session for nonexistent ID")
	}
}

func TestSessionManager_GetSession_Expired(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()

	sm := NewSessionManager(st, 0)
	ctx := context.Background()

	expired := &model.BrowserSession{
		ID:        "sess_expired",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := st.CreateBrowserSession(ctx, expired); err != nil {
		t.Fatalf("CreateBrowserSession failed: %v", err)
	}

	sess, err := sm.GetSession(ctx, expired.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess != nil {
		t.Error("expected nil for expired session")
	}

	// The expired row is removed on lookup.
	if bs, _ := st.GetBrowserSession(ctx, expired.ID); bs != nil {
		t.Error("expected expired session to be deleted")
	}
}

func TestSetSessionCookie(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	sm := NewSessionManager(st, time.Hour)

	bs, err := sm.CreateSession(context.Background(), "test-agent")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	rec := httptest.NewRecorder()
	SetSessionCookie(rec, bs, true)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != SessionCookieName || c.Value != bs.ID {
		t.Errorf("unexpected cookie %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly || !c.Secure {
		t.Error("expected HttpOnly and Secure cookie")
	}

	// The cookie resolves back to the stored session.
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(c)
	got, err := sm.GetSessionFromRequest(req)
	if err != nil {
		t.Fatalf("GetSessionFromRequest failed: %v", err)
	}
	if got == nil || got.ID != bs.ID {
		t.Errorf("expected session %s, got %+v", bs.ID, got)
	}
}
func TestSessionManager_CleanupExpired(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()

	sm := NewSessionManager(st, 0)
	ctx := context.Background()

	for i, ttl := range []time.Duration{-time.Hour, -time.Minute, time.Hour} {
		st.CreateBrowserSession(ctx, &model.BrowserSession{
			ID:        "sess_" + string(rune('a'+i)),
			CreatedAt: time.Now().Add(-2 * time.Hour),
			ExpiresAt: time.Now().Add(ttl),
		})
	}

	count, err := sm.CleanupExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("CleanupExpiredSessions failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 expired sessions deleted, got %d", count)
	}
}

func TestClearSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearSessionCookie(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].MaxAge >= 0 {
		t.Errorf("expected negative MaxAge, got %d", cookies[0].MaxAge)
	}
}

func TestViewCache_Prune(t *testing.T) {
	c := newViewCache()
	now := time.Now()
	c.putIfAbsent("old", &clientState{expiresAt: now.Add(-time.Minute)})
	c.putIfAbsent("live", &clientState{expiresAt: now.Add(time.Hour)})

	first := &clientState{expiresAt: now.Add(time.Hour)}
	if got := c.putIfAbsent("live", first); got == first {
		t.Error("putIfAbsent replaced an existing entry")
	}

	if n := c.prune(now); n != 1 {
		t.Errorf("expected 1 pruned, got %d", n)
	}
	if _, ok := c.get("old"); ok {
		t.Error("expired entry still cached")
	}
	if c.size() != 1 {
		t.Errorf("expected 1 entry, got %d", c.size())
	}
}
