package model

import "strings"

// Canonical role names after normalization.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// NormalizeRole maps backend role spellings onto one canonical form.
// The login response says "ROLE_ADMIN" while user listings say "ADMIN".
func NormalizeRole(role string) string {
	r := strings.ToUpper(strings.TrimSpace(role))
	return strings.TrimPrefix(r, "ROLE_")
}

// User is a backend user as seen by the admin dashboard: a read-only snapshot
// including the user's journal entries.
type User struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email,omitempty"`
	Roles             []string  `json:"roles"`
	SentimentAnalysis bool      `json:"sentimentAnalysis"`
	JournalEntries    []Journal `json:"journalEntries"`
}

// IsAdmin reports whether any of the user's roles is ADMIN.
func (u User) IsAdmin() bool {
	for _, r := range u.Roles {
		if NormalizeRole(r) == RoleAdmin {
			return true
		}
	}
	return false
}

// ShortID returns the trailing six characters of the user ID for display.
func (u User) ShortID() string {
	if len(u.ID) <= 6 {
		return u.ID
	}
	return u.ID[len(u.ID)-6:]
}

// Profile is the edit-profile staging buffer, submitted to the backend wholesale.
type Profile struct {
	Username          string `json:"username"`
	Password          string `json:"password"`
	Email             string `json:"email"`
	SentimentAnalysis bool   `json:"sentimentAnalysis"`
}

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup is the signup request body.
type Signup struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// LoginResponse is the backend's answer to a successful login.
type LoginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// MessageResponse is the loose {message, error} body some endpoints return.
type MessageResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
