package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/journal/internal/api"
	"github.com/me/journal/internal/config"
	"github.com/me/journal/internal/store"
	"github.com/me/journal/internal/ui"
)

// DefaultSweepInterval is how often expired browser sessions are removed.
const DefaultSweepInterval = 10 * time.Minute

// Server is the journal web front end.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.WebConfig
	startTime time.Time
	store     store.Store
	client    *api.Client
	ui        *ui.UI // UI handler for web interface
}

// New creates a new Server with all routes registered. client is the
// unauthenticated backend client shared by every browser session.
func New(cfg config.WebConfig, st store.Store, client *api.Client, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		store:     st,
		client:    client,
	}

	s.ui = ui.New(st, client, logger, ui.Config{
		Secure:     cfg.SecureCookies,
		SessionTTL: cfg.SessionTTL,
	})

	s.routes()
	return s
}

// StartSweeper removes expired browser sessions every interval until ctx
// is cancelled.
func (s *Server) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *Server) sweep(ctx context.Context) {
	n, err := s.ui.Sweep(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", "count", n)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Get("/healthz", s.handleHealth)

	// UI routes (HTML)
	s.ui.RegisterRoutes(r)
}
