package model

import "time"

// SessionRecord is the client-side record of authentication status and identity.
// Token is non-empty if and only if the user is authenticated; Username and Role
// are meaningful only while Token is set.
type SessionRecord struct {
	Token    string `json:"token,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Authenticated reports whether the record carries a token.
func (r SessionRecord) Authenticated() bool {
	return r.Token != ""
}

// IsAdmin reports whether the record's role normalizes to ADMIN.
func (r SessionRecord) IsAdmin() bool {
	return r.Authenticated() && NormalizeRole(r.Role) == RoleAdmin
}

// BrowserSession identifies one browser's scope of persisted session values
// in the web front end. The values themselves (token, username, role) are
// stored under that scope, the way a browser keeps them in local storage.
type BrowserSession struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the browser session has expired.
func (s *BrowserSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
