package view

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"github.com/me/journal/internal/api"
	"github.com/me/journal/internal/apistub"
	"github.com/me/journal/internal/config"
	"github.com/me/journal/internal/logging"
	"github.com/me/journal/internal/session"
	"github.com/me/journal/pkg/model"
	"golang.org/x/crypto/bcrypt"
)

type env struct {
	stub    *apistub.Server
	client  *api.Client
	storage *session.MemoryStorage
	sess    *session.Session
}

// authed returns a client that authorizes with the env's session.
func (e *env) authed() *api.Client {
	return e.client.WithToken(e.sess)
}

func setupEnv(t *testing.T) *env {
	t.Helper()
	stub, err := apistub.New(apistub.Config{Secret: "test", BcryptCost: bcrypt.MinCost}, logging.Discard())
	if err != nil {
		t.Fatalf("apistub.New: %v", err)
	}
	ts := httptest.NewServer(stub.Handler())
	t.Cleanup(ts.Close)

	cfg, _ := config.Profile(config.ProfileDeployed)
	cfg.BaseURL = ts.URL
	storage := session.NewMemoryStorage()
	return &env{
		stub:    stub,
		client:  api.New(cfg, logging.Discard()),
		storage: storage,
		sess:    session.New(storage),
	}
}

func (e *env) signIn(t *testing.T, username string) {
	t.Helper()
	if _, err := NewLogin(e.sess, e.client).Submit(context.Background(), username, "pw"); err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	e := setupEnv(t)
	e.stub.Seed("alice", "good", "", false)

	l := NewLogin(e.sess, e.client)
	route, err := l.Submit(context.Background(), "alice", "bad")
	if err == nil {
		t.Fatal("expected error")
	}
	if route != "" {
		t.Errorf("route = %q, want none", route)
	}
	if l.State() != LoginFailed {
		t.Errorf("state = %v", l.State())
	}
	if l.ErrorMessage() != "Invalid credentials" {
		t.Errorf("ErrorMessage = %q", l.ErrorMessage())
	}
	if e.sess.Token() != "" {
		t.Error("token should stay empty")
	}
	if e.storage.Len() != 0 {
		t.Errorf("storage has %d keys, want 0", e.storage.Len())
	}
}

func TestLogin_GenericMessageOnTransportFailure(t *testing.T) {
	cfg, _ := config.Profile(config.ProfileDeployed)
	cfg.BaseURL = "http://127.0.0.1:1"
	sess := session.New(session.NewMemoryStorage())

	l := NewLogin(sess, api.New(cfg, logging.Discard()))
	if _, err := l.Submit(context.Background(), "alice", "pw"); err == nil {
		t.Fatal("expected error")
	}
	if l.ErrorMessage() != MsgLoginFailed {
		t.Errorf("ErrorMessage = %q", l.ErrorMessage())
	}
}

func TestLogin_RequiredFields(t *testing.T) {
	e := setupEnv(t)
	before := e.stub.Requests()

	l := NewLogin(e.sess, e.client)
	if _, err := l.Submit(context.Background(), " ", "pw"); err == nil {
		t.Fatal("expected error")
	}
	if e.stub.Requests() != before {
		t.Error("request sent for empty username")
	}
	if l.ErrorMessage() != MsgLoginRequired {
		t.Errorf("ErrorMessage = %q", l.ErrorMessage())
	}
}

func TestLogin_SuccessPersistsAndRoutesByRole(t *testing.T) {
	e := setupEnv(t)
	e.stub.Seed("alice", "pw", "", false)
	e.stub.Seed("root", "pw", "", true)
	ctx := context.Background()

	l := NewLogin(e.sess, e.client)
	route, err := l.Submit(ctx, "alice", "pw")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if route != RouteDashboard {
		t.Errorf("route = %q", route)
	}
	if l.State() != LoginAuthenticated {
		t.Errorf("state = %v", l.State())
	}
	for key, want := range map[string]string{
		session.KeyToken:    e.sess.Token(),
		session.KeyUsername: "alice",
		session.KeyRole:     "ROLE_USER",
	} {
		got, ok, _ := e.storage.Get(ctx, key)
		if !ok || got != want || got == "" {
			t.Errorf("%s = %q (ok=%v), want %q", key, got, ok, want)
		}
	}

	route, err = NewLogin(e.sess, e.client).Submit(ctx, "root", "pw")
	if err != nil {
		t.Fatalf("Submit root: %v", err)
	}
	if route != RouteAdmin {
		t.Errorf("admin route = %q", route)
	}
}

func TestLogin_FailureAfterSuccessClearsSession(t *testing.T) {
	e := setupEnv(t)
	e.stub.Seed("alice", "pw", "", false)
	e.signIn(t, "alice")

	if _, err := NewLogin(e.sess, e.client).Submit(context.Background(), "alice", "wrong"); err == nil {
		t.Fatal("expected error")
	}
	if e.sess.Authenticated() || e.storage.Len() != 0 {
		t.Error("failed login should leave the session signed out")
	}
}

func TestSignup(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	s := NewSignup(e.client)
	route, err := s.Submit(ctx, "bob", "b@example.com", "pw")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if route != RouteLogin || !s.Succeeded() {
		t.Errorf("route = %q succeeded = %v", route, s.Succeeded())
	}
	if s.Message() != "User created successfully" {
		t.Errorf("Message = %q", s.Message())
	}

	if _, err := s.Submit(ctx, "bob", "b@example.com", "pw"); err == nil {
		t.Fatal("expected duplicate error")
	}
	if s.Succeeded() || s.Message() != "Username already exists" {
		t.Errorf("duplicate: succeeded = %v message = %q", s.Succeeded(), s.Message())
	}

	if _, err := s.Submit(ctx, "carol", "", "pw"); err == nil {
		t.Fatal("expected required-field error")
	}
	if s.Message() != MsgSignupRequired {
		t.Errorf("Message = %q", s.Message())
	}
}

func TestSignup_DefaultMessages(t *testing.T) {
	s := NewSignup(&fakeAuth{})
	if _, err := s.Submit(context.Background(), "a", "b", "c"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.Message() != MsgSignupOK {
		t.Errorf("Message = %q", s.Message())
	}

	s = NewSignup(&fakeAuth{err: errors.New("boom")})
	s.Submit(context.Background(), "a", "b", "c")
	if s.Message() != MsgSignupFailed {
		t.Errorf("Message = %q", s.Message())
	}
}

type fakeAuth struct{ err error }

func (f *fakeAuth) Login(context.Context, model.Credentials) (*model.LoginResponse, error) {
	return nil, f.err
}

func (f *fakeAuth) Signup(context.Context, model.Signup) (*model.MessageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.MessageResponse{}, nil
}

func TestLogout(t *testing.T) {
	e := setupEnv(t)
	e.stub.Seed("alice", "pw", "", false)
	e.signIn(t, "alice")

	route, err := Logout(context.Background(), e.sess)
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if route != RouteLogin {
		t.Errorf("route = %q", route)
	}
	if e.sess.Token() != "" || e.storage.Len() != 0 {
		t.Error("logout should clear memory and storage")
	}
}

func TestMessageOf(t *testing.T) {
	err := alert(MsgSaveJournal, errors.New("500"))
	if MessageOf(err) != MsgSaveJournal {
		t.Errorf("MessageOf = %q", MessageOf(err))
	}
	if !errors.Is(err, ErrSaveFailed) {
		t.Error("errors.Is(err, ErrSaveFailed) = false")
	}
	if errors.Is(err, ErrDeleteFailed) {
		t.Error("errors.Is(err, ErrDeleteFailed) = true")
	}
	if MessageOf(nil) != "" {
		t.Error("MessageOf(nil) should be empty")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "hello..."},
		{"héllo wörld", 2, "hé..."},
		{"日記を書きました", 3, "日記を..."},
		{"abc", -1, "..."},
	}
	for _, tt := range tests {
		got := Truncate(tt.in, tt.n)
		if got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("Truncate(%q, %d) is not valid UTF-8", tt.in, tt.n)
		}
	}
}
