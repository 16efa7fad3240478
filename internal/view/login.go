package view

import (
	"context"
	"strings"
	"sync"

	"github.com/me/journal/internal/api"
	"github.com/me/journal/internal/session"
	"github.com/me/journal/pkg/model"
)

// LoginState is the login form's state.
type LoginState int

const (
	LoginIdle LoginState = iota
	LoginSubmitting
	LoginAuthenticated
	LoginFailed
)

func (s LoginState) String() string {
	switch s {
	case LoginIdle:
		return "idle"
	case LoginSubmitting:
		return "submitting"
	case LoginAuthenticated:
		return "authenticated"
	case LoginFailed:
		return "failed"
	}
	return "unknown"
}

// Login drives the login form.
type Login struct {
	sess    *session.Session
	backend AuthBackend

	mu     sync.Mutex
	state  LoginState
	errMsg string
}

// NewLogin returns an idle login form bound to sess.
func NewLogin(sess *session.Session, backend AuthBackend) *Login {
	return &Login{sess: sess, backend: backend}
}

// State returns the current state.
func (l *Login) State() LoginState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// ErrorMessage returns the text to show after a failed attempt.
func (l *Login) ErrorMessage() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errMsg
}

// Submit sends the credentials. On success the session is signed in with
// the typed username and the role from the response, and the landing route
// for that role is returned. On failure the session is signed out.
func (l *Login) Submit(ctx context.Context, username, password string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		l.state = LoginFailed
		l.errMsg = MsgLoginRequired
		return "", alert(MsgLoginRequired, nil)
	}

	l.state = LoginSubmitting
	l.errMsg = ""

	resp, err := l.backend.Login(ctx, model.Credentials{Username: username, Password: password})
	if err == nil {
		err = l.sess.SignIn(ctx, resp.Token, username, resp.Role)
	}
	if err != nil {
		_ = l.sess.SignOut(ctx)
		l.state = LoginFailed
		l.errMsg = api.UserMessage(err, MsgLoginFailed)
		return "", alert(l.errMsg, err)
	}

	l.state = LoginAuthenticated
	if model.NormalizeRole(resp.Role) == model.RoleAdmin {
		return RouteAdmin, nil
	}
	return RouteDashboard, nil
}
