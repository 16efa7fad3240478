// Package view holds the view models behind the login, signup, dashboard and
// admin screens. They are rendered by the web UI and by the CLI; neither
// front end talks to the backend directly.
package view

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/me/journal/internal/api"
	"github.com/me/journal/internal/session"
	"github.com/me/journal/pkg/model"
)

// Landing routes.
const (
	RouteLogin     = "/login"
	RouteSignup    = "/signup"
	RouteDashboard = "/dashboard"
	RouteAdmin     = "/admin"
)

// User-facing messages.
const (
	MsgLoginFailed       = "An unexpected error occurred. Please try again."
	MsgLoginRequired     = "Please enter a username and password."
	MsgSignupOK          = "Signup successful! Please login."
	MsgSignupFailed      = "Signup failed. Please try again."
	MsgSignupRequired    = "Username, email and password are required."
	MsgFetchJournals     = "Failed to fetch journals."
	MsgSaveJournal       = "Failed to save journal."
	MsgJournalRequired   = "Title and content are required."
	MsgDeleteJournal     = "Failed to delete journal."
	MsgUpdateProfile     = "Failed to update profile."
	MsgDeleteProfile     = "Failed to delete profile."
	MsgFetchUsers        = "Failed to fetch users and journals."
	MsgPromoteUser       = "Failed to create admin."
	MsgDeleteUser        = "Failed to delete user."
	ConfirmDeleteJournal = "Are you sure you want to delete this journal?"
	ConfirmDeleteProfile = "Are you sure you want to delete your profile? This cannot be undone."
	ConfirmPromoteUser   = "Are you sure you want to make this user an admin?"
	ConfirmDeleteUser    = "Are you sure you want to delete this user?"
)

// Alert is a failure shown to the user. Message is what the user sees; Err
// is the underlying cause, if any.
type Alert struct {
	Message string
	Err     error
}

func (a *Alert) Error() string {
	if a.Err == nil {
		return a.Message
	}
	return a.Message + ": " + a.Err.Error()
}

func (a *Alert) Unwrap() error { return a.Err }

// Is matches another Alert with the same message, so the sentinels below
// work with errors.Is whatever the cause.
func (a *Alert) Is(target error) bool {
	t, ok := target.(*Alert)
	return ok && t.Err == nil && t.Message == a.Message
}

func alert(msg string, err error) error {
	return &Alert{Message: msg, Err: err}
}

// Sentinel alerts for errors.Is.
var (
	ErrSaveFailed          = &Alert{Message: MsgSaveJournal}
	ErrDeleteFailed        = &Alert{Message: MsgDeleteJournal}
	ErrUpdateProfileFailed = &Alert{Message: MsgUpdateProfile}
	ErrDeleteProfileFailed = &Alert{Message: MsgDeleteProfile}
	ErrPromoteFailed       = &Alert{Message: MsgPromoteUser}
	ErrDeleteUserFailed    = &Alert{Message: MsgDeleteUser}
)

// ErrCancelled is returned when a confirmation is declined. No request is sent.
var ErrCancelled = api.ErrCancelled

// ErrFormClosed is returned by Save when neither add nor edit mode is active.
var ErrFormClosed = errors.New("journal form is not open")

// MessageOf returns the text to show for err.
func MessageOf(err error) string {
	var a *Alert
	if errors.As(err, &a) {
		return a.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Fixed answers, for form posts that already carry the user's answer.
var (
	Yes Confirmer = ConfirmFunc(func(string) bool { return true })
	No  Confirmer = ConfirmFunc(func(string) bool { return false })
)

func confirmed(c Confirmer, prompt string) bool {
	return c != nil && c.Confirm(prompt)
}

// AuthBackend is the unauthenticated part of the backend.
type AuthBackend interface {
	Login(ctx context.Context, creds model.Credentials) (*model.LoginResponse, error)
	Signup(ctx context.Context, s model.Signup) (*model.MessageResponse, error)
}

// JournalBackend is what the personal dashboard calls.
type JournalBackend interface {
	ListJournals(ctx context.Context) ([]model.Journal, error)
	CreateJournal(ctx context.Context, in model.JournalInput) (*model.Journal, error)
	UpdateJournal(ctx context.Context, id string, in model.JournalInput) (*model.Journal, error)
	DeleteJournal(ctx context.Context, id string) error
	UpdateProfile(ctx context.Context, p model.Profile) error
	DeleteProfile(ctx context.Context) error
}

// AdminBackend is what the admin dashboard calls.
type AdminBackend interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	PromoteUser(ctx context.Context, userID string) error
	DeleteUser(ctx context.Context, userID string) error
}

// Logout signs the session out and returns the route to show next.
func Logout(ctx context.Context, sess *session.Session) (string, error) {
	return RouteLogin, sess.SignOut(ctx)
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
