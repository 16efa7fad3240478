package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/me/journal/internal/api"
	"github.com/me/journal/internal/config"
	"github.com/me/journal/internal/logging"
	"github.com/me/journal/internal/server"
	"github.com/me/journal/internal/store"
)

func main() {
	configFile := flag.String("config", os.Getenv("JOURNAL_CONFIG"), "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address (default :3000)")
	dbPath := flag.String("db", "", "Session database path (default ~/.journal/web.db)")
	profile := flag.String("profile", "", "Backend preset: deployed or local")
	apiURL := flag.String("api-url", "", "Backend base URL (overrides the preset)")
	secure := flag.Bool("secure-cookies", false, "Mark session cookies Secure (serve behind HTTPS)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "Log format (text, json)")
	sweep := flag.Duration("sweep-interval", server.DefaultSweepInterval, "How often expired sessions are removed")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")
	flag.Parse()

	cfg, err := config.LoadProfile(*configFile, *profile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *apiURL != "" {
		cfg.API.BaseURL = strings.TrimRight(*apiURL, "/")
	}
	if *addr != "" {
		cfg.Web.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Web.DBPath = *dbPath
	}
	if *secure {
		cfg.Web.SecureCookies = true
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *debug {
		cfg.Log.Level = "debug"
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)

	if err := cfg.API.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid backend configuration: %v\n", err)
		os.Exit(1)
	}

	path, err := cfg.ResolveDBPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve database path: %v\n", err)
		os.Exit(1)
	}

	// Open store and run migrations.
	st, err := store.NewSQLiteStore(path, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate database: %v\n", err)
		os.Exit(1)
	}
	logger.Info("database ready", "path", path)

	client := api.New(cfg.API, logger)
	srv := server.New(cfg.Web, st, client, logger)

	httpServer := &http.Server{
		Addr:              cfg.Web.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv.StartSweeper(ctx, *sweep)

	go func() {
		logger.Info("server starting", "addr", cfg.Web.Addr, "profile", cfg.Profile, "backend", client.BaseURL())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
