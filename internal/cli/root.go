package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/journal/internal/api"
	"github.com/me/journal/internal/config"
	"github.com/me/journal/internal/logging"
	"github.com/me/journal/internal/session"
)

var (
	flagServer      string
	flagProfile     string
	flagConfig      string
	flagSessionFile string
	flagDebug       bool
	flagLogLevel    string
	flagLogFormat   string
	flagYes         bool

	cfg    config.Config
	logger *slog.Logger
	sess   *session.Session
	client *api.Client // unauthenticated: login and signup
	authed *api.Client // sends the session token
)

// defaultConfigPath returns JOURNAL_CONFIG, or empty for no file.
func defaultConfigPath() string {
	return os.Getenv("JOURNAL_CONFIG")
}

// NewRootCmd creates the root cobra command for the journal CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "journal",
		Short: "Journal: keep a personal journal from the terminal",
		Long:  "journal signs in to the journal backend and manages your entries, your profile, and (for admins) other users.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", "", "Backend base URL (or JOURNAL_API_URL env)")
	root.PersistentFlags().StringVar(&flagProfile, "profile", "", "Backend preset: deployed or local (or JOURNAL_PROFILE env)")
	root.PersistentFlags().StringVar(&flagConfig, "config", defaultConfigPath(), "Path to YAML config file (or JOURNAL_CONFIG env)")
	root.PersistentFlags().StringVar(&flagSessionFile, "session-file", "", "Where the session is kept (default ~/.journal/session.json)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")
	root.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "Answer yes to confirmation prompts")

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newSignupCmd(),
		newWhoamiCmd(),
		newJournalCmd(),
		newProfileCmd(),
		newAdminCmd(),
	)

	return root
}

// setup loads configuration and restores the session before any command runs.
func setup(cmd *cobra.Command) error {
	if flagDebug {
		flagLogLevel = "debug"
	}
	logger = logging.NewLoggerWithWriter(logging.ParseLevel(flagLogLevel), flagLogFormat, cmd.ErrOrStderr())

	loaded, err := config.LoadProfile(flagConfig, flagProfile)
	if err != nil {
		return err
	}
	if flagServer != "" {
		loaded.API.BaseURL = strings.TrimRight(flagServer, "/")
	}
	if flagSessionFile != "" {
		loaded.SessionFile = flagSessionFile
	}
	if err := loaded.API.Validate(); err != nil {
		return fmt.Errorf("invalid backend configuration: %w", err)
	}
	cfg = loaded

	path, err := cfg.ResolveSessionFile()
	if err != nil {
		return err
	}
	sess = session.New(session.NewFileStorage(path))
	if err := sess.Initialize(cmd.Context()); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	client = api.New(cfg.API, logger)
	authed = client.WithToken(sess)
	logger.Debug("cli ready", "profile", cfg.Profile, "server", cfg.API.BaseURL, "session_file", path,
		"authenticated", sess.Authenticated(), "timeout", cfg.API.Timeout.Round(time.Second).String())
	return nil
}

// requireSession fails when no one is signed in.
func requireSession() error {
	if !sess.Authenticated() {
		return fmt.Errorf("not logged in (run \"journal login\")")
	}
	return nil
}
