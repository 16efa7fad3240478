package ui

import (
	"context"
	"net/http"

	"github.com/me/journal/pkg/model"
)

// Context keys for session data.
type contextKey string

const (
	browserSessionKey contextKey = "browser_session"
	clientStateKey    contextKey = "client_state"
)

// BrowserSessionFromContext retrieves the browser session from the request context.
func BrowserSessionFromContext(ctx context.Context) *model.BrowserSession {
	bs, _ := ctx.Value(browserSessionKey).(*model.BrowserSession)
	return bs
}

func stateFromContext(ctx context.Context) *clientState {
	st, _ := ctx.Value(clientStateKey).(*clientState)
	return st
}

// RequireSession loads the browser's session and its view models into the
// request context. Without a browser session, or when the session holds no
// token, it redirects to the login page.
func (ui *UI) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bs, err := ui.sessions.GetSessionFromRequest(r)
		if err != nil {
			ui.logger.Error("session lookup failed", "error", err)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if bs == nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		st, err := ui.state(r.Context(), bs)
		if err != nil {
			ui.logger.Error("session restore failed", "session", bs.ID, "error", err)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if !st.sess.Authenticated() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), browserSessionKey, bs)
		ctx = context.WithValue(ctx, clientStateKey, st)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
