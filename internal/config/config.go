// Package config holds the settings of the utrhistory command, read from
// utrhistory.json5 (and its .local override) with credentials kept in the
// environment.
package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
	"utrhistory/internal/browser/chrome"
	"utrhistory/internal/profile"
	"utrhistory/internal/session"
	"utrhistory/pkg/configutil"

	"github.com/joho/godotenv"
)

const FileName = "utrhistory.json5"

const (
	EmailEnv    = "UTR_EMAIL"
	PasswordEnv = "UTR_PASSWORD"
)

// Timeouts are in milliseconds, zero means the default.
type Timeouts struct {
	NavigationMs     int `json:"navigation_ms"`
	DefaultMs        int `json:"default_ms"`
	LoginFieldMs     int `json:"login_field_ms"`
	LoadStateMs      int `json:"load_state_ms"`
	NetworkIdleMs    int `json:"network_idle_ms"`
	HeaderMs         int `json:"header_ms"`
	HeaderFallbackMs int `json:"header_fallback_ms"`
	ShowAllMs        int `json:"show_all_ms"`
	GraceMs          int `json:"grace_ms"`
}

type Config struct {
	BaseURL string `json:"base_url"`
	// Headless is a pointer so an explicit false survives merging with the
	// defaults.
	Headless       *bool    `json:"headless"`
	DiagnosticsDir string   `json:"diagnostics_dir"`
	Database       string   `json:"database"`
	Timeouts       Timeouts `json:"timeouts"`
}

func Defaults() Config {
	headless := true
	return Config{
		BaseURL:  profile.DefaultBaseURL,
		Headless: &headless,
		Timeouts: Timeouts{
			NavigationMs:     20000,
			DefaultMs:        15000,
			LoginFieldMs:     6000,
			LoadStateMs:      8000,
			NetworkIdleMs:    8000,
			HeaderMs:         8000,
			HeaderFallbackMs: 5000,
			ShowAllMs:        8000,
			GraceMs:          800,
		},
	}
}

// Load reads the configuration at path, or searches for utrhistory.json5
// from the working directory upwards when path is empty. Only an explicit
// path has to exist.
func Load(path string) (Config, error) {
	var cfg Config
	var err error
	if path == "" {
		cfg, err = configutil.ReadRecursively[Config](FileName)
		if os.IsNotExist(err) {
			slog.Debug("no config file found, using defaults", "name", FileName)
			err = nil
		}
	} else {
		cfg, err = configutil.ReadConfig[Config](path)
	}
	if err != nil {
		return Config{}, err
	}
	return configutil.WithDefaults(cfg, Defaults())
}

func (c Config) IsHeadless() bool {
	return c.Headless == nil || *c.Headless
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func (c Config) ChromeOptions(storagePath string) chrome.Options {
	return chrome.Options{
		Headless:          c.IsHeadless(),
		StoragePath:       storagePath,
		DefaultTimeout:    ms(c.Timeouts.DefaultMs),
		NavigationTimeout: ms(c.Timeouts.NavigationMs),
	}
}

func (c Config) SessionTimeouts() session.Timeouts {
	t := session.DefaultTimeouts()
	t.Field = ms(c.Timeouts.LoginFieldMs)
	t.LoadState = ms(c.Timeouts.LoadStateMs)
	t.LoginForm = ms(c.Timeouts.LoadStateMs)
	t.NetworkIdle = ms(c.Timeouts.NetworkIdleMs)
	t.IdleGrace = ms(c.Timeouts.GraceMs)
	return t
}

func (c Config) ProfileTimeouts() profile.Timeouts {
	t := profile.DefaultTimeouts()
	t.Load = ms(c.Timeouts.NavigationMs)
	t.Header = ms(c.Timeouts.HeaderMs)
	t.HeaderFallback = ms(c.Timeouts.HeaderFallbackMs)
	t.ShowAll = ms(c.Timeouts.ShowAllMs)
	return t
}

// Credentials reads the login from the environment after loading envFile
// (typically ".env") if it exists. Variables already set win over the
// file.
func Credentials(envFile string) session.Credentials {
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !os.IsNotExist(err) {
			slog.Warn("could not load env file", "path", envFile, "err", err)
		}
	}
	return session.Credentials{
		Email:    strings.TrimSpace(os.Getenv(EmailEnv)),
		Password: strings.TrimSpace(os.Getenv(PasswordEnv)),
	}
}
