package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
	"utrhistory/internal/browser/chrome"
	"utrhistory/internal/components/telemetry"
	"utrhistory/internal/config"
	"utrhistory/internal/profile"

	"github.com/spf13/cobra"
)

var (
	fetchOutput      outputFlags
	fetchHTML        string
	fetchHeaded      bool
	fetchUseStorage  string
	fetchSaveStorage string
	fetchDiagnostics bool
	fetchNoProbe     bool
)

func init() {
	fetchOutput.register(fetchCmd)

	flags := fetchCmd.Flags()
	flags.StringVar(&fetchHTML, "html", "", "Parse a saved profile page instead of the live site.")
	flags.BoolVar(&fetchHeaded, "headed", false, "Run the browser with a visible window.")
	flags.StringVar(&fetchUseStorage, "use-storage", "", "Session file to reuse a previous login (ignored if missing).")
	flags.StringVar(&fetchSaveStorage, "save-storage", "", "Where to save the session after logging in.")
	flags.BoolVar(&fetchDiagnostics, "diagnostics", false, "Screenshot every step into the diagnostics directory.")
	flags.BoolVar(&fetchNoProbe, "no-probe", false, "Skip the reachability check before starting the browser.")

	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch --user-id <id> [--out <path.csv>]",
	Short: "Fetches a player's full rating history from the live site and writes it to CSV.",
	Long: "Fetches a player's full rating history from the live site and writes it to CSV.\n\n" +
		"Logs in with UTR_EMAIL and UTR_PASSWORD (also read from .env) when the profile asks for it.",
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return fetchOutput.validate()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if fetchHTML != "" {
			result, err := parseFile(fetchHTML, fetchOutput.userID)
			if err != nil {
				return err
			}
			return fetchOutput.finish(cmd.Context(), cfg, result)
		}

		tel := telemetry.SlogAPI{}
		fetcher := newFetcher(cfg, tel)

		t1 := clock.Now()
		result, err := fetcher.Fetch(cmd.Context(), fetchOutput.userID)
		if err != nil {
			return fmt.Errorf("fetch profile: %w", err)
		}
		slog.Info(
			"fetched profile",
			"player", result.PlayerName,
			"samples", len(result.Samples),
			"seconds", clock.Now().Sub(t1).Seconds(),
		)

		return fetchOutput.finish(cmd.Context(), cfg, result)
	},
}

func newFetcher(cfg config.Config, tel telemetry.API) profile.Fetcher {
	if fetchHeaded {
		headless := false
		cfg.Headless = &headless
	}
	launcher := chrome.NewLauncher(cfg.ChromeOptions(fetchUseStorage), tel)

	var prober profile.Prober
	if !fetchNoProbe {
		prober = profile.NewHTTPProber(time.Duration(cfg.Timeouts.NavigationMs)*time.Millisecond, tel)
	}

	opts := profile.Options{
		BaseURL:         cfg.BaseURL,
		Credentials:     config.Credentials(".env"),
		SaveSessionPath: fetchSaveStorage,
		Timeouts:        cfg.ProfileTimeouts(),
		Session:         cfg.SessionTimeouts(),
	}
	if fetchDiagnostics {
		opts.DiagnosticsDir = cfg.DiagnosticsDir
		if opts.DiagnosticsDir == "" {
			opts.DiagnosticsDir = filepath.Join("diagnostics", clock.Now().Format("20060102-150405"))
		}
		slog.Info("saving diagnostics", "dir", opts.DiagnosticsDir)
	}
	if !opts.Credentials.Present() {
		slog.Info("no credentials in environment, fetching anonymously")
	}

	return profile.NewFetcher(launcher, prober, clock, tel, opts)
}
