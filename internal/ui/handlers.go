package ui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/me/journal/internal/api"
	"github.com/me/journal/internal/session"
	"github.com/me/journal/internal/store"
	"github.com/me/journal/internal/view"
	"github.com/me/journal/pkg/model"
)

// UI handles the web user interface.
type UI struct {
	store    store.Store
	sessions *SessionManager
	client   *api.Client
	views    *viewCache
	logger   *slog.Logger
	secure   bool // Use secure cookies (HTTPS)
}

// Config holds UI configuration.
type Config struct {
	Secure     bool          // Use secure cookies for HTTPS
	SessionTTL time.Duration // Browser session lifetime
}

// New creates a new UI handler. client is the unauthenticated backend
// client; each browser gets its own copy bound to its session.
func New(st store.Store, client *api.Client, logger *slog.Logger, cfg Config) *UI {
	return &UI{
		store:    st,
		sessions: NewSessionManager(st, cfg.SessionTTL),
		client:   client,
		views:    newViewCache(),
		logger:   logger.With("component", "ui"),
		secure:   cfg.Secure,
	}
}

// state returns the cached client state for bs, restoring the session from
// the store on first use.
func (ui *UI) state(ctx context.Context, bs *model.BrowserSession) (*clientState, error) {
	if st, ok := ui.views.get(bs.ID); ok {
		return st, nil
	}

	sess := session.New(ui.store.Scope(bs.ID))
	if err := sess.Initialize(ctx); err != nil {
		return nil, err
	}
	authed := ui.client.WithToken(sess)
	st := &clientState{
		sess:      sess,
		login:     view.NewLogin(sess, ui.client),
		dashboard: view.NewDashboard(sess, authed),
		admin:     view.NewAdmin(sess, authed),
		expiresAt: bs.ExpiresAt,
	}
	return ui.views.putIfAbsent(bs.ID, st), nil
}

// Sweep removes expired browser sessions from the store and the cache.
func (ui *UI) Sweep(ctx context.Context) (int64, error) {
	n, err := ui.sessions.CleanupExpiredSessions(ctx)
	ui.views.prune(time.Now())
	return n, err
}

// HandleLogin renders the login page.
func (ui *UI) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ui.renderLogin(w, http.StatusOK, "", "")
}

// HandleLoginPost processes the login form.
func (ui *UI) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		ui.renderLogin(w, http.StatusBadRequest, "", "Invalid request")
		return
	}
	username := r.FormValue("username")

	// Sign in under a fresh browser session so an ID the browser carried
	// before login is never promoted to an authenticated one.
	bs, err := ui.sessions.CreateSession(r.Context(), r.UserAgent())
	if err != nil {
		ui.renderError(w, "Session creation failed", err)
		return
	}
	st, err := ui.state(r.Context(), bs)
	if err != nil {
		ui.discardSession(r.Context(), bs.ID)
		ui.renderError(w, "Session restore failed", err)
		return
	}

	route, err := st.login.Submit(r.Context(), username, r.FormValue("password"))
	if err != nil {
		ui.logger.Warn("login failed", "username", username, "error", err)
		ui.renderLogin(w, http.StatusOK, username, st.login.ErrorMessage())
		ui.discardSession(r.Context(), bs.ID)
		return
	}

	if prev, _ := ui.sessions.GetSessionFromRequest(r); prev != nil {
		ui.discardSession(r.Context(), prev.ID)
	}
	SetSessionCookie(w, bs, ui.secure)

	ui.logger.Info("user logged in", "username", username, "session", bs.ID, "route", route)
	http.Redirect(w, r, route, http.StatusSeeOther)
}

// discardSession deletes a browser session and its cached state without
// touching the backend.
func (ui *UI) discardSession(ctx context.Context, id string) {
	ui.views.drop(id)
	if err := ui.sessions.DeleteSession(ctx, id); err != nil {
		ui.logger.Error("delete session failed", "session", id, "error", err)
	}
}

func (ui *UI) renderLogin(w http.ResponseWriter, status int, username, message string) {
	ui.render(w, status, "login", map[string]any{
		"Title":    "Login - Journal",
		"Username": username,
		"Error":    message,
	})
}

// HandleSignup renders the signup page.
func (ui *UI) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ui.render(w, http.StatusOK, "signup", map[string]any{
		"Title":    "Sign up - Journal",
		"Username": "",
		"Email":    "",
	})
}

// HandleSignupPost processes the signup form. On success the page shows
// the message and moves on to the login page after a short delay.
func (ui *UI) HandleSignupPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		ui.render(w, http.StatusBadRequest, "signup", map[string]any{
			"Title":    "Sign up - Journal",
			"Username": "",
			"Email":    "",
			"Error":    "Invalid request",
		})
		return
	}

	signup := view.NewSignup(ui.client)
	username, email := r.FormValue("username"), r.FormValue("email")
	route, err := signup.Submit(r.Context(), username, email, r.FormValue("password"))

	data := map[string]any{
		"Title":    "Sign up - Journal",
		"Username": username,
		"Email":    email,
	}
	if err != nil {
		ui.logger.Warn("signup failed", "username", username, "error", err)
		data["Error"] = signup.Message()
	} else {
		ui.logger.Info("user signed up", "username", username)
		data["Success"] = signup.Message()
		data["RedirectTo"] = route
		data["RedirectAfter"] = view.SignupRedirectDelay.Seconds()
	}
	ui.render(w, http.StatusOK, "signup", data)
}

// HandleLogout signs the browser out and redirects to login.
func (ui *UI) HandleLogout(w http.ResponseWriter, r *http.Request) {
	route := view.RouteLogin
	if bs, _ := ui.sessions.GetSessionFromRequest(r); bs != nil {
		ui.endSession(r.Context(), bs)
	}
	ClearSessionCookie(w)
	http.Redirect(w, r, route, http.StatusSeeOther)
}

// endSession signs out, forgets the cached view models and deletes the
// browser session.
func (ui *UI) endSession(ctx context.Context, bs *model.BrowserSession) {
	if st, err := ui.state(ctx, bs); err == nil {
		username := st.sess.Username()
		if _, err := view.Logout(ctx, st.sess); err != nil {
			ui.logger.Error("sign out failed", "session", bs.ID, "error", err)
		}
		ui.logger.Info("user logged out", "username", username, "session", bs.ID)
	}
	ui.discardSession(ctx, bs.ID)
}

// HandleDashboard renders the personal journal list.
func (ui *UI) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	st := stateFromContext(r.Context())
	ui.loadDashboard(r.Context(), st)

	q := r.URL.Query()
	switch {
	case q.Get("new") != "":
		st.dashboard.OpenAdd()
	case q.Get("edit") != "":
		if err := st.dashboard.OpenEdit(q.Get("edit")); err != nil {
			st.dashboard.Close()
		}
	default:
		st.dashboard.Close()
	}
	ui.renderDashboard(w, r, st, "")
}

func (ui *UI) loadDashboard(ctx context.Context, st *clientState) {
	if !st.dashboard.Stale() {
		return
	}
	if err := st.dashboard.Load(ctx); err != nil {
		ui.logger.Warn("journal fetch failed", "username", st.sess.Username(), "error", err)
	}
}

func (ui *UI) renderDashboard(w http.ResponseWriter, r *http.Request, st *clientState, alertMsg string) {
	query := r.URL.Query().Get("q")
	ui.render(w, http.StatusOK, "dashboard", map[string]any{
		"Title":         "Dashboard - Journal",
		"Session":       st.sess.Snapshot(),
		"Welcome":       st.dashboard.Welcome(),
		"ShowAdminLink": st.dashboard.ShowAdminLink(),
		"Journals":      st.dashboard.Filter(query),
		"Query":         query,
		"Banner":        st.dashboard.Banner(),
		"Alert":         alertMsg,
		"Notice":        r.URL.Query().Get("notice"),
		"Mode":          string(st.dashboard.Mode()),
		"Draft":         st.dashboard.Draft(),
		"ConfirmDelete": view.ConfirmDeleteJournal,
		"ConfirmDrop":   view.ConfirmDeleteProfile,
	})
}

// HandleJournalCreate saves a new entry from the add form.
func (ui *UI) HandleJournalCreate(w http.ResponseWriter, r *http.Request) {
	st := stateFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		ui.renderDashboard(w, r, st, view.MsgSaveJournal)
		return
	}

	st.dashboard.OpenAdd()
	ui.saveJournal(w, r, st)
}

// HandleJournalUpdate saves the edit form for one entry.
func (ui *UI) HandleJournalUpdate(w http.ResponseWriter, r *http.Request) {
	st := stateFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		ui.renderDashboard(w, r, st, view.MsgSaveJournal)
		return
	}

	ui.loadDashboard(r.Context(), st)
	id := chi.URLParam(r, "id")
	if err := st.dashboard.OpenEdit(id); err != nil {
		ui.logger.Warn("edit of unknown journal", "id", id)
		ui.renderDashboard(w, r, st, view.MsgSaveJournal)
		return
	}
	ui.saveJournal(w, r, st)
}

func (ui *UI) saveJournal(w http.ResponseWriter, r *http.Request, st *clientState) {
	in := model.JournalInput{
		Title:   r.FormValue("title"),
		Content: r.FormValue("content"),
	}
	saved, err := st.dashboard.Save(r.Context(), in)
	if err != nil {
		ui.logger.Warn("journal save failed", "username", st.sess.Username(), "error", err)
		ui.renderDashboard(w, r, st, view.MessageOf(err))
		return
	}
	ui.logger.Info("journal saved", "username", st.sess.Username(), "id", saved.ID)
	http.Redirect(w, r, view.RouteDashboard, http.StatusSeeOther)
}

// HandleJournalDelete deletes one entry if the form carries the user's
// confirmation.
func (ui *UI) HandleJournalDelete(w http.ResponseWriter, r *http.Request) {
	st := stateFromContext(r.Context())
	id := chi.URLParam(r, "id")

	err := st.dashboard.Delete(r.Context(), id, formConfirmer(r))
	switch {
	case errors.Is(err, view.ErrCancelled):
	case err != nil:
		ui.logger.Warn("journal delete failed", "id", id, "error", err)
		ui.renderDashboard(w, r, st, view.MessageOf(err))
		return
	default:
		ui.logger.Info("journal deleted", "username", st.sess.Username(), "id", id)
	}
	http.Redirect(w, r, view.RouteDashboard, http.StatusSeeOther)
}

// HandleProfileUpdate submits the profile form.
func (ui *UI) HandleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	st := stateFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		ui.renderDashboard(w, r, st, view.MsgUpdateProfile)
		return
	}

	p := model.Profile{
		Username:          strings.TrimSpace(r.FormValue("username")),
		Password:          r.FormValue("password"),
		Email:             strings.TrimSpace(r.FormValue("email")),
		SentimentAnalysis: r.FormValue("sentimentAnalysis") != "",
	}
	if err := st.dashboard.UpdateProfile(r.Context(), p); err != nil {
		ui.logger.Warn("profile update failed", "username", st.sess.Username(), "error", err)
		ui.renderDashboard(w, r, st, view.MessageOf(err))
		return
	}
	http.Redirect(w, r, view.RouteDashboard+"?notice=Profile+updated+successfully", http.StatusSeeOther)
}

// HandleProfileDelete deletes the account and ends the browser session.
func (ui *UI) HandleProfileDelete(w http.ResponseWriter, r *http.Request) {
	st := stateFromContext(r.Context())
	bs := BrowserSessionFromContext(r.Context())
	username := st.sess.Username()

	route, err := st.dashboard.DeleteProfile(r.Context(), formConfirmer(r))
	switch {
	case errors.Is(err, view.ErrCancelled):
		http.Redirect(w, r, view.RouteDashboard, http.StatusSeeOther)
		return
	case err != nil:
		ui.logger.Warn("profile delete failed", "username", username, "error", err)
		ui.renderDashboard(w, r, st, view.MessageOf(err))
		return
	}

	ui.logger.Info("profile deleted", "username", username)
	ui.endSession(r.Context(), bs)
	ClearSessionCookie(w)
	http.Redirect(w, r, route, http.StatusSeeOther)
}

// HandleAdmin renders the user-management dashboard.
func (ui *UI) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	st := stateFromContext(r.Context())
	ui.loadAdmin(r.Context(), st)
	ui.renderAdmin(w, r, st, "")
}

func (ui *UI) loadAdmin(ctx context.Context, st *clientState) {
	if !st.admin.Stale() {
		return
	}
	if err := st.admin.Load(ctx); err != nil {
		ui.logger.Warn("user fetch failed", "username", st.sess.Username(), "error", err)
	}
}

func (ui *UI) renderAdmin(w http.ResponseWriter, r *http.Request, st *clientState, alertMsg string) {
	query := r.URL.Query().Get("q")
	ui.render(w, http.StatusOK, "admin", map[string]any{
		"Title":          "Admin - Journal",
		"Session":        st.sess.Snapshot(),
		"Users":          st.admin.Filter(query),
		"Query":          query,
		"Banner":         st.admin.Banner(),
		"Alert":          alertMsg,
		"ConfirmPromote": view.ConfirmPromoteUser,
		"ConfirmDelete":  view.ConfirmDeleteUser,
	})
}

// HandleUserPromote makes a user an admin.
func (ui *UI) HandleUserPromote(w http.ResponseWriter, r *http.Request) {
	st := stateFromContext(r.Context())
	id := chi.URLParam(r, "id")
	ui.adminAction(w, r, st, "promote", id, st.admin.Promote(r.Context(), id, formConfirmer(r)))
}

// HandleUserDelete deletes a user.
func (ui *UI) HandleUserDelete(w http.ResponseWriter, r *http.Request) {
	st := stateFromContext(r.Context())
	id := chi.URLParam(r, "id")
	ui.adminAction(w, r, st, "delete", id, st.admin.DeleteUser(r.Context(), id, formConfirmer(r)))
}

func (ui *UI) adminAction(w http.ResponseWriter, r *http.Request, st *clientState, action, id string, err error) {
	switch {
	case errors.Is(err, view.ErrCancelled):
	case err != nil:
		ui.logger.Warn("admin action failed", "action", action, "user_id", id, "error", err)
		ui.renderAdmin(w, r, st, view.MessageOf(err))
		return
	default:
		ui.logger.Info("admin action", "action", action, "user_id", id, "by", st.sess.Username())
	}
	http.Redirect(w, r, view.RouteAdmin, http.StatusSeeOther)
}

// formConfirmer answers a confirmation from the form's confirm field,
// which the page's confirm dialog sets to "yes".
func formConfirmer(r *http.Request) view.Confirmer {
	if r.FormValue("confirm") == "yes" {
		return view.Yes
	}
	return view.No
}

func (ui *UI) render(w http.ResponseWriter, status int, name string, data map[string]any) {
	var buf bytes.Buffer
	if err := renderTemplate(&buf, name, data); err != nil {
		ui.logger.Error("template render failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (ui *UI) renderError(w http.ResponseWriter, message string, err error) {
	ui.logger.Error(message, "error", err)
	ui.render(w, http.StatusInternalServerError, "error", map[string]any{
		"Title":   "Error - Journal",
		"Message": fmt.Sprintf("%s. Please try again.", message),
	})
}
