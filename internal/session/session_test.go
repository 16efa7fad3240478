package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// flakyStorage fails Set or Remove for one key.
type flakyStorage struct {
	*MemoryStorage
	failSet    string
	failRemove string
}

func (f *flakyStorage) Set(ctx context.Context, key, value string) error {
	if key == f.failSet {
		return errors.New("disk full")
	}
	return f.MemoryStorage.Set(ctx, key, value)
}

func (f *flakyStorage) Remove(ctx context.Context, key string) error {
	if key == f.failRemove {
		return errors.New("read-only")
	}
	return f.MemoryStorage.Remove(ctx, key)
}

func TestSession_InitializeEmpty(t *testing.T) {
	s := New(NewMemoryStorage())
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if s.Authenticated() {
		t.Error("fresh session should be unauthenticated")
	}
}

func TestSession_InitializeIgnoresIdentityWithoutToken(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()
	st.Set(ctx, KeyUsername, "alice")
	st.Set(ctx, KeyRole, "ROLE_ADMIN")

	s := New(st)
	if err := s.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if s.Authenticated() || s.Username() != "" || s.IsAdmin() {
		t.Errorf("want empty session, got %+v", s.Snapshot())
	}
}

func TestSession_SignInPersistsAllKeys(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()
	s := New(st)

	if err := s.SignIn(ctx, "tok-1", "alice", "ROLE_USER"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if s.Token() != "tok-1" || s.Username() != "alice" || s.Role() != "ROLE_USER" {
		t.Errorf("memory = %+v", s.Snapshot())
	}
	for key, want := range map[string]string{KeyToken: "tok-1", KeyUsername: "alice", KeyRole: "ROLE_USER"} {
		got, ok, _ := st.Get(ctx, key)
		if !ok || got != want {
			t.Errorf("storage[%s] = %q (present=%v), want %q", key, got, ok, want)
		}
	}

	// A second Session over the same storage picks the sign-in up.
	reloaded := New(st)
	if err := reloaded.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if reloaded.Snapshot() != s.Snapshot() {
		t.Errorf("reloaded = %+v, want %+v", reloaded.Snapshot(), s.Snapshot())
	}
}

func TestSession_SignInRollsBackOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	st := &flakyStorage{MemoryStorage: NewMemoryStorage(), failSet: KeyRole}
	s := New(st)

	if err := s.SignIn(ctx, "tok-1", "alice", "ROLE_USER"); err == nil {
		t.Fatal("expected SignIn error")
	}
	if s.Authenticated() {
		t.Error("session must stay signed out after failed persist")
	}
	if n := st.Len(); n != 0 {
		t.Errorf("storage holds %d keys after rollback, want 0", n)
	}
}

func TestSession_SignInRejectsEmptyToken(t *testing.T) {
	st := NewMemoryStorage()
	s := New(st)
	if err := s.SignIn(context.Background(), "", "alice", "ROLE_USER"); err == nil {
		t.Fatal("expected error for empty token")
	}
	if st.Len() != 0 {
		t.Error("nothing should be persisted")
	}
}

func TestSession_SignOutClearsEverything(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()
	s := New(st)
	s.SignIn(ctx, "tok-1", "alice", "ROLE_ADMIN")

	if err := s.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if s.Authenticated() || s.Username() != "" || s.Role() != "" {
		t.Errorf("memory not cleared: %+v", s.Snapshot())
	}
	if st.Len() != 0 {
		t.Errorf("storage holds %d keys, want 0", st.Len())
	}
}

func TestSession_SignOutClearsMemoryEvenIfStorageFails(t *testing.T) {
	ctx := context.Background()
	st := &flakyStorage{MemoryStorage: NewMemoryStorage()}
	s := New(st)
	s.SignIn(ctx, "tok-1", "alice", "ROLE_USER")
	st.failRemove = KeyUsername

	if err := s.SignOut(ctx); err == nil {
		t.Fatal("expected SignOut error")
	}
	if s.Authenticated() {
		t.Error("token must be cleared from memory")
	}
	// The other keys were still attempted.
	if _, ok, _ := st.Get(ctx, KeyToken); ok {
		t.Error("token key should be removed")
	}
	if _, ok, _ := st.Get(ctx, KeyRole); ok {
		t.Error("role key should be removed")
	}
}

func TestSession_SetTokenDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()
	s := New(st)

	s.SetToken("ephemeral")
	if s.Token() != "ephemeral" {
		t.Errorf("Token = %q", s.Token())
	}
	if st.Len() != 0 {
		t.Error("SetToken must not write storage")
	}

	s.SignIn(ctx, "tok-1", "alice", "ROLE_USER")
	s.SetToken("")
	if s.Authenticated() || s.Username() != "" {
		t.Errorf("clearing the token should clear identity: %+v", s.Snapshot())
	}
}

func TestSession_SetUsername(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()
	s := New(st)

	if err := s.SetUsername(ctx, "bob"); err == nil {
		t.Error("expected error when signed out")
	}

	s.SignIn(ctx, "tok-1", "alice", "ROLE_USER")
	if err := s.SetUsername(ctx, "alice2"); err != nil {
		t.Fatalf("SetUsername: %v", err)
	}
	if got, _, _ := st.Get(ctx, KeyUsername); got != "alice2" || s.Username() != "alice2" {
		t.Errorf("username = %q / stored %q", s.Username(), got)
	}
}

func TestSession_ConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStorage())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rec := s.Snapshot()
				if rec.Token == "" && (rec.Username != "" || rec.Role != "") {
					t.Errorf("torn record: %+v", rec)
					return
				}
			}
		}()
	}
	for j := 0; j < 50; j++ {
		s.SignIn(ctx, "tok", "alice", "ROLE_USER")
		s.SignOut(ctx)
	}
	wg.Wait()
}

func TestFileStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	st := NewFileStorage(path)

	if _, ok, err := st.Get(ctx, KeyToken); err != nil || ok {
		t.Fatalf("Get on missing file = ok %v, err %v", ok, err)
	}

	s := New(st)
	if err := s.SignIn(ctx, "tok-1", "alice", "ROLE_USER"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	other := New(NewFileStorage(path))
	if err := other.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if other.Token() != "tok-1" || other.Username() != "alice" {
		t.Errorf("reloaded = %+v", other.Snapshot())
	}

	if err := s.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("session file should be gone after sign-out, stat err = %v", err)
	}
}

func TestFileStorage_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := New(NewFileStorage(path))
	if err := s.Initialize(context.Background()); err == nil {
		t.Error("expected error for corrupt session file")
	}
}
