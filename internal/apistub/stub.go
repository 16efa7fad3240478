// Package apistub is an in-memory stand-in for the journal backend. It
// speaks both the "deployed" and "local" path layouts, issues HS256 JWTs,
// and enforces per-user ownership and the admin role. The test suites and
// cmd/journal-stub run it.
package apistub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Config configures a Server.
type Config struct {
	Secret     string        // JWT signing secret (required)
	TokenTTL   time.Duration // default 24h
	BcryptCost int           // default bcrypt.DefaultCost
	LegacyIDs  bool          // serialize journal identifiers as "_id"
}

type user struct {
	ID                string
	Username          string
	Email             string
	PasswordHash      []byte
	Roles             []string
	SentimentAnalysis bool
	Journals          []*journal // newest first
}

func (u *user) isAdmin() bool {
	for _, r := range u.Roles {
		if r == "ADMIN" {
			return true
		}
	}
	return false
}

type journal struct {
	ID      string
	Title   string
	Content string
	Date    time.Time
}

// Server is the stub backend.
type Server struct {
	cfg    Config
	secret []byte
	logger *slog.Logger
	router chi.Router
	now    func() time.Time

	mu     sync.Mutex
	users  map[string]*user // by ID
	byName map[string]string

	requests   atomic.Int64
	lastAuthMu sync.Mutex
	lastAuth   string
}

// New creates a stub backend with no users.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.Secret == "" {
		return nil, errors.New("apistub: secret is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	s := &Server{
		cfg:    cfg,
		secret: []byte(cfg.Secret),
		logger: logger.With("component", "apistub"),
		router: chi.NewRouter(),
		now:    time.Now,
		users:  make(map[string]*user),
		byName: make(map[string]string),
	}
	s.routes()
	return s, nil
}

// Handler returns the http.Handler for the stub.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Requests returns how many requests have reached the stub.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// LastAuthorization returns the Authorization header of the most recent request.
func (s *Server) LastAuthorization() string {
	s.lastAuthMu.Lock()
	defer s.lastAuthMu.Unlock()
	return s.lastAuth
}

// Seed creates a user directly and returns its ID.
func (s *Server) Seed(username, password, email string, admin bool) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byName[username]; exists {
		return "", fmt.Errorf("user %q exists", username)
	}
	u := &user{
		ID:           newObjectID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        []string{"USER"},
	}
	if admin {
		u.Roles = append(u.Roles, "ADMIN")
	}
	s.users[u.ID] = u
	s.byName[username] = u.ID
	return u.ID, nil
}

// SeedJournal adds an entry for userID and returns its ID.
func (s *Server) SeedJournal(userID, title, content string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return "", fmt.Errorf("no user %q", userID)
	}
	j := &journal{ID: newObjectID(), Title: title, Content: content, Date: s.now()}
	u.Journals = append([]*journal{j}, u.Journals...)
	return j.ID, nil
}

// Roles returns a copy of the roles held by userID.
func (s *Server) Roles(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	return append([]string(nil), u.Roles...)
}

// JournalCount returns how many entries userID owns, or -1 if the user is unknown.
func (s *Server) JournalCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return -1
	}
	return len(u.Journals)
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.countRequests)

	// Both layouts: "deployed" (/login, /journal, /user) and
	// "local" (/journal/public/login, /journal/journal, /journal/user).
	for _, p := range []struct{ public, journals, user string }{
		{"", "/journal", "/user"},
		{"/journal/public", "/journal/journal", "/journal/user"},
	} {
		r.Post(p.public+"/login", s.handleLogin)
		r.Post(p.public+"/signup", s.handleSignup)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)
			r.Get(p.journals, s.handleListJournals)
			r.Post(p.journals, s.handleCreateJournal)
			r.Put(p.journals+"/id/{id}", s.handleUpdateJournal)
			r.Delete(p.journals+"/id/{id}", s.handleDeleteJournal)
			r.Put(p.user, s.handleUpdateUser)
			r.Delete(p.user, s.handleDeleteUser)
		})
	}

	r.Route("/journal/admin", func(r chi.Router) {
		r.Use(s.requireUser)
		r.Use(s.requireAdmin)
		r.Get("/all-users", s.handleAllUsers)
		r.Post("/create-admin/{userId}", s.handlePromote)
		r.Delete("/delete-user/{userId}", s.handleAdminDeleteUser)
	})
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		s.lastAuthMu.Lock()
		s.lastAuth = r.Header.Get("Authorization")
		s.lastAuthMu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// --- auth ---

type claims struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

func (s *Server) issueToken(u *user) (string, error) {
	now := s.now()
	c := claims{
		Username: u.Username,
		Roles:    append([]string(nil), u.Roles...),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// parseToken validates a bearer token and returns the user ID it names.
func (s *Server) parseToken(raw string) (string, error) {
	tok, err := jwt.ParseWithClaims(raw, &claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid || c.Subject == "" {
		return "", errors.New("invalid claims")
	}
	return c.Subject, nil
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		scheme, raw, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		userID, err := s.parseToken(strings.TrimSpace(raw))
		if err != nil {
			s.logger.Debug("token rejected", "error", err)
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		s.mu.Lock()
		_, exists := s.users[userID]
		s.mu.Unlock()
		if !exists {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, userID)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		u := s.users[callerID(r)]
		admin := u != nil && u.isAdmin()
		s.mu.Unlock()
		if !admin {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callerID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

// caller returns the authenticated user, or writes 401 and returns nil when
// the account was removed after the token was checked. s.mu must be held.
func (s *Server) caller(w http.ResponseWriter, r *http.Request) *user {
	u := s.users[callerID(r)]
	if u == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return u
}

// --- public handlers ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	var u *user
	if id, ok := s.byName[req.Username]; ok {
		u = s.users[id]
	}
	s.mu.Unlock()

	if u == nil || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(req.Password)) != nil {
		s.logger.Info("login rejected", "username", req.Username)
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.issueToken(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	role := "ROLE_USER"
	if u.isAdmin() {
		role = "ROLE_ADMIN"
	}
	s.logger.Info("login", "username", u.Username)
	writeJSON(w, http.StatusOK, map[string]string{"token": token, "role": role})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "Username, password and email are required")
		return
	}

	if _, err := s.Seed(req.Username, req.Password, req.Email, false); err != nil {
		writeError(w, http.StatusConflict, "Username already exists")
		return
	}
	s.logger.Info("signup", "username", req.Username)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User created successfully"})
}

// --- journal handlers ---

func (s *Server) handleListJournals(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	u := s.caller(w, r)
	if u == nil {
		s.mu.Unlock()
		return
	}
	out := s.journalsJSON(u.Journals)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

type journalRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) handleCreateJournal(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "Title and content are required")
		return
	}

	s.mu.Lock()
	u := s.caller(w, r)
	if u == nil {
		s.mu.Unlock()
		return
	}
	j := &journal{ID: newObjectID(), Title: req.Title, Content: req.Content, Date: s.now()}
	u.Journals = append([]*journal{j}, u.Journals...)
	out := s.journalJSON(j)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleUpdateJournal(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.caller(w, r)
	if u == nil {
		return
	}
	for _, j := range u.Journals {
		if j.ID != id {
			continue
		}
		if req.Title != "" {
			j.Title = req.Title
		}
		if req.Content != "" {
			j.Content = req.Content
		}
		writeJSON(w, http.StatusOK, s.journalJSON(j))
		return
	}
	writeError(w, http.StatusNotFound, "Journal not found")
}

func (s *Server) handleDeleteJournal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.caller(w, r)
	if u == nil {
		return
	}
	for i, j := range u.Journals {
		if j.ID == id {
			u.Journals = append(u.Journals[:i:i], u.Journals[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Journal not found")
}

// --- user handlers ---

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username          string `json:"username"`
		Password          string `json:"password"`
		Email             string `json:"email"`
		SentimentAnalysis bool   `json:"sentimentAnalysis"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var hash []byte
	if req.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Could not hash password")
			return
		}
		hash = h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.caller(w, r)
	if u == nil {
		return
	}
	if req.Username != "" && req.Username != u.Username {
		if _, taken := s.byName[req.Username]; taken {
			writeError(w, http.StatusConflict, "Username already exists")
			return
		}
		delete(s.byName, u.Username)
		s.byName[req.Username] = u.ID
		u.Username = req.Username
	}
	if hash != nil {
		u.PasswordHash = hash
	}
	if req.Email != "" {
		u.Email = req.Email
	}
	u.SentimentAnalysis = req.SentimentAnalysis
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.removeUser(callerID(r))
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// removeUser must be called with s.mu held.
func (s *Server) removeUser(id string) bool {
	u, ok := s.users[id]
	if !ok {
		return false
	}
	delete(s.byName, u.Username)
	delete(s.users, id)
	return true
}

// --- admin handlers ---

func (s *Server) handleAllUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	users := make([]*user, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })

	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		entry := map[string]any{
			"id":                u.ID,
			"username":          u.Username,
			"roles":             append([]string(nil), u.Roles...),
			"sentimentAnalysis": u.SentimentAnalysis,
			"journalEntries":    s.journalsJSON(u.Journals),
		}
		if u.Email != "" {
			entry["email"] = u.Email
		}
		out = append(out, entry)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userId")

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if !u.isAdmin() {
		u.Roles = append(u.Roles, "ADMIN")
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User promoted to admin"})
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userId")

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.removeUser(id) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- encoding ---

// journalJSON renders an entry the way the Spring backend does, with a
// zone-less timestamp and either "id" or "_id".
func (s *Server) journalJSON(j *journal) map[string]any {
	idField := "id"
	if s.cfg.LegacyIDs {
		idField = "_id"
	}
	return map[string]any{
		idField:   j.ID,
		"title":   j.Title,
		"content": j.Content,
		"date":    j.Date.UTC().Format("2006-01-02T15:04:05.000"),
	}
}

func (s *Server) journalsJSON(js []*journal) []map[string]any {
	out := make([]map[string]any, 0, len(js))
	for _, j := range js {
		out = append(out, s.journalJSON(j))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// newObjectID returns a 24-hex-character identifier shaped like a Mongo ObjectId.
func newObjectID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}
