package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/me/journal/internal/apistub"
	"github.com/me/journal/internal/logging"
)

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	secret := flag.String("secret", os.Getenv("JOURNAL_STUB_SECRET"), "JWT signing secret (or JOURNAL_STUB_SECRET env)")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Token lifetime")
	legacyIDs := flag.Bool("legacy-ids", false, "Serialize journal identifiers as _id")
	adminUser := flag.String("admin-user", "admin", "Seed an admin with this username (empty to skip)")
	adminPassword := flag.String("admin-password", "admin", "Password for the seeded admin")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "text", "Log format (text, json)")
	flag.Parse()

	logger := logging.NewLogger(logging.ParseLevel(*logLevel), *logFormat)

	if *secret == "" {
		*secret = "dev-secret"
		logger.Warn("no secret given; using an insecure development secret")
	}

	stub, err := apistub.New(apistub.Config{
		Secret:    *secret,
		TokenTTL:  *tokenTTL,
		LegacyIDs: *legacyIDs,
	}, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *adminUser != "" {
		id, err := stub.Seed(*adminUser, *adminPassword, "", true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed admin: %v\n", err)
			os.Exit(1)
		}
		logger.Info("admin seeded", "username", *adminUser, "id", id)
	}

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           stub.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("stub backend starting", "addr", *addr, "legacy_ids", *legacyIDs)
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
}
