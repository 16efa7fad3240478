package view

import (
	"context"
	"strings"
	"sync"

	"github.com/me/journal/internal/session"
	"github.com/me/journal/pkg/model"
)

// Admin is the user-management dashboard. Every mutation is followed by a
// full refetch rather than a local patch.
type Admin struct {
	sess    *session.Session
	backend AdminBackend

	mu        sync.Mutex
	users     []model.User
	loaded    bool
	loadedFor string
	banner    string
}

// NewAdmin returns an unloaded admin dashboard. backend must authorize with
// sess's token.
func NewAdmin(sess *session.Session, backend AdminBackend) *Admin {
	return &Admin{sess: sess, backend: backend}
}

// Stale reports whether the user list needs fetching for the current token.
func (a *Admin) Stale() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.loaded || a.loadedFor != a.sess.Token()
}

// Load fetches every user with their journal entries.
func (a *Admin) Load(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load(ctx)
}

func (a *Admin) load(ctx context.Context) error {
	token := a.sess.Token()
	users, err := a.backend.ListUsers(ctx)
	if err != nil {
		a.banner = MsgFetchUsers
		return alert(MsgFetchUsers, err)
	}
	a.users = users
	a.loaded = true
	a.loadedFor = token
	a.banner = ""
	return nil
}

// Banner returns the fetch error banner, or "".
func (a *Admin) Banner() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.banner
}

// Users returns a copy of the full list.
func (a *Admin) Users() []model.User {
	return a.Filter("")
}

// Filter returns the users whose username contains query, ignoring case.
func (a *Admin) Filter(query string) []model.User {
	a.mu.Lock()
	defer a.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.User, 0, len(a.users))
	for _, u := range a.users {
		if q == "" || strings.Contains(strings.ToLower(u.Username), q) {
			out = append(out, u)
		}
	}
	return out
}

// Promote grants the admin role to userID after confirmation.
func (a *Admin) Promote(ctx context.Context, userID string, c Confirmer) error {
	if !confirmed(c, ConfirmPromoteUser) {
		return ErrCancelled
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.backend.PromoteUser(ctx, userID); err != nil {
		return alert(MsgPromoteUser, err)
	}
	// A failed refetch only sets the banner; the promotion itself went through.
	_ = a.load(ctx)
	return nil
}

// DeleteUser deletes userID after confirmation.
func (a *Admin) DeleteUser(ctx context.Context, userID string, c Confirmer) error {
	if !confirmed(c, ConfirmDeleteUser) {
		return ErrCancelled
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.backend.DeleteUser(ctx, userID); err != nil {
		return alert(MsgDeleteUser, err)
	}
	_ = a.load(ctx)
	return nil
}
