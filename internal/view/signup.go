package view

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/me/journal/internal/api"
	"github.com/me/journal/pkg/model"
)

// SignupRedirectDelay is how long the success message stays up before the
// web view moves on to the login page.
const SignupRedirectDelay = 1500 * time.Millisecond

// Signup drives the signup form.
type Signup struct {
	backend AuthBackend

	mu        sync.Mutex
	message   string
	succeeded bool
}

// NewSignup returns an empty signup form.
func NewSignup(backend AuthBackend) *Signup {
	return &Signup{backend: backend}
}

// Message returns the last success or failure text.
func (s *Signup) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// Succeeded reports whether the last submission created the account.
func (s *Signup) Succeeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.succeeded
}

// Submit registers a new account and returns the route to show next.
func (s *Signup) Submit(ctx context.Context, username, email, password string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	s.succeeded = false
	if username == "" || email == "" || password == "" {
		s.message = MsgSignupRequired
		return "", alert(s.message, nil)
	}

	resp, err := s.backend.Signup(ctx, model.Signup{Username: username, Password: password, Email: email})
	if err != nil {
		s.message = api.UserMessage(err, MsgSignupFailed)
		return "", alert(s.message, err)
	}

	s.succeeded = true
	s.message = MsgSignupOK
	if resp != nil && resp.Message != "" {
		s.message = resp.Message
	}
	return RouteLogin, nil
}
