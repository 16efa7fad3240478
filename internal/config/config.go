// Package config holds configuration for the journal front ends: which
// backend to talk to, which path templates it speaks, where sessions live,
// and how to log.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Path template names.
const (
	PathLogin           = "login"
	PathSignup          = "signup"
	PathJournals        = "journals"
	PathJournal         = "journal"
	PathUser            = "user"
	PathAdminUsers      = "admin_users"
	PathAdminPromote    = "admin_promote"
	PathAdminDeleteUser = "admin_delete_user"
)

// RequiredPaths lists every template an APIConfig must define.
var RequiredPaths = []string{
	PathLogin, PathSignup, PathJournals, PathJournal, PathUser,
	PathAdminUsers, PathAdminPromote, PathAdminDeleteUser,
}

// Profile names.
const (
	ProfileDeployed = "deployed"
	ProfileLocal    = "local"
)

// DefaultProfile is used when no profile is named.
const DefaultProfile = ProfileDeployed

// APIConfig describes the backend REST surface.
type APIConfig struct {
	BaseURL string            `yaml:"base_url"`
	Timeout time.Duration     `yaml:"timeout"`
	Paths   map[string]string `yaml:"paths"`
}

// WebConfig holds settings for the web front end.
type WebConfig struct {
	Addr          string        `yaml:"addr"`
	DBPath        string        `yaml:"db_path"` // ":memory:" for testing
	SecureCookies bool          `yaml:"secure_cookies"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Config is the full configuration shared by the CLI and the web server.
type Config struct {
	Profile     string    `yaml:"profile"`
	API         APIConfig `yaml:"api"`
	Web         WebConfig `yaml:"web"`
	Log         LogConfig `yaml:"log"`
	SessionFile string    `yaml:"session_file"` // CLI session keys (default ~/.journal/session.json)
}

// Profile returns the API preset with the given name.
func Profile(name string) (APIConfig, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProfileDeployed:
		return APIConfig{
			BaseURL: "https://journalapp-latest.onrender.com",
			Timeout: 30 * time.Second,
			Paths: map[string]string{
				PathLogin:           "/login",
				PathSignup:          "/signup",
				PathJournals:        "/journal",
				PathJournal:         "/journal/id/{id}",
				PathUser:            "/user",
				PathAdminUsers:      "/journal/admin/all-users",
				PathAdminPromote:    "/journal/admin/create-admin/{userId}",
				PathAdminDeleteUser: "/journal/admin/delete-user/{userId}",
			},
		}, nil
	case ProfileLocal:
		return APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 30 * time.Second,
			Paths: map[string]string{
				PathLogin:           "/journal/public/login",
				PathSignup:          "/journal/public/signup",
				PathJournals:        "/journal/journal",
				PathJournal:         "/journal/journal/id/{id}",
				PathUser:            "/journal/user",
				PathAdminUsers:      "/journal/admin/all-users",
				PathAdminPromote:    "/journal/admin/create-admin/{userId}",
				PathAdminDeleteUser: "/journal/admin/delete-user/{userId}",
			},
		}, nil
	default:
		return APIConfig{}, fmt.Errorf("unknown profile %q (want %q or %q)", name, ProfileDeployed, ProfileLocal)
	}
}

// Default returns the configuration for the default profile.
func Default() Config {
	api, _ := Profile(DefaultProfile)
	return Config{
		Profile: DefaultProfile,
		API:     api,
		Web: WebConfig{
			Addr:       ":3000",
			SessionTTL: 7 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds a Config from the profile preset, then the YAML file at path
// (if path is non-empty), then environment overrides. The profile is taken
// from the file or JOURNAL_PROFILE before the preset is applied, so file
// values refine the chosen preset rather than replace it.
func Load(path string) (Config, error) {
	return LoadProfile(path, "")
}

// LoadProfile is Load with profile, when non-empty, taking precedence over
// the file and JOURNAL_PROFILE. File and environment overrides still apply
// on top of the chosen preset.
func LoadProfile(path, profile string) (Config, error) {
	cfg := Default()

	var fileCfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if profile == "" {
		profile = fileCfg.Profile
		if env := os.Getenv("JOURNAL_PROFILE"); env != "" {
			profile = env
		}
	}
	if profile != "" {
		api, err := Profile(profile)
		if err != nil {
			return Config{}, err
		}
		cfg.Profile = strings.ToLower(profile)
		cfg.API = api
	}

	cfg.merge(fileCfg)

	if v := os.Getenv("JOURNAL_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("JOURNAL_WEB_ADDR"); v != "" {
		cfg.Web.Addr = v
	}
	if v := os.Getenv("JOURNAL_DB"); v != "" {
		cfg.Web.DBPath = v
	}

	return cfg, nil
}

// merge overlays the non-zero fields of o onto c.
func (c *Config) merge(o Config) {
	if o.API.BaseURL != "" {
		c.API.BaseURL = o.API.BaseURL
	}
	if o.API.Timeout > 0 {
		c.API.Timeout = o.API.Timeout
	}
	for name, tmpl := range o.API.Paths {
		if c.API.Paths == nil {
			c.API.Paths = make(map[string]string)
		}
		c.API.Paths[name] = tmpl
	}
	if o.Web.Addr != "" {
		c.Web.Addr = o.Web.Addr
	}
	if o.Web.DBPath != "" {
		c.Web.DBPath = o.Web.DBPath
	}
	if o.Web.SecureCookies {
		c.Web.SecureCookies = true
	}
	if o.Web.SessionTTL > 0 {
		c.Web.SessionTTL = o.Web.SessionTTL
	}
	if o.Log.Level != "" {
		c.Log.Level = o.Log.Level
	}
	if o.Log.Format != "" {
		c.Log.Format = o.Log.Format
	}
	if o.SessionFile != "" {
		c.SessionFile = o.SessionFile
	}
}

// Validate checks that the base URL is absolute and every path template is set.
func (a APIConfig) Validate() error {
	u, err := url.Parse(a.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url %q: %w", a.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base_url %q: scheme must be http or https", a.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base_url %q: missing host", a.BaseURL)
	}
	var missing []string
	for _, name := range RequiredPaths {
		if strings.TrimSpace(a.Paths[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing path templates: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Path expands the named template, substituting {key} placeholders with
// path-escaped values from params.
func (a APIConfig) Path(name string, params map[string]string) (string, error) {
	tmpl, ok := a.Paths[name]
	if !ok || tmpl == "" {
		return "", fmt.Errorf("no path template %q", name)
	}
	out := tmpl
	for k, v := range params {
		out = strings.ReplaceAll(out, "{"+k+"}", url.PathEscape(v))
	}
	if i := strings.Index(out, "{"); i >= 0 {
		if j := strings.Index(out[i:], "}"); j > 0 {
			return "", fmt.Errorf("path %q: unresolved placeholder %s", name, out[i:i+j+1])
		}
	}
	return out, nil
}

// Dir returns the per-user state directory (~/.journal).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".journal"), nil
}

// ResolveSessionFile returns SessionFile or its default under Dir.
func (c Config) ResolveSessionFile() (string, error) {
	if c.SessionFile != "" {
		return c.SessionFile, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

// ResolveDBPath returns Web.DBPath or its default under Dir, creating the
// directory when needed.
func (c Config) ResolveDBPath() (string, error) {
	if c.Web.DBPath != "" {
		return c.Web.DBPath, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return filepath.Join(dir, "web.db"), nil
}
