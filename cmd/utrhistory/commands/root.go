package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"utrhistory/internal/components/chrono"
	"utrhistory/internal/components/serviceutil"
	"utrhistory/internal/components/telemetry"
	"utrhistory/internal/config"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	dbPath     string

	otelProviders telemetry.Otel

	clock chrono.API = chrono.StandardImpl{}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log debug output, including every browser step.")
	flags.StringVar(&configPath, "config", "", "Path to a config file (default: search for utrhistory.json5 upwards from the cwd).")
	flags.StringVar(&dbPath, "db", "", "SQLite database to store histories in (overrides the config's database).")
}

var rootCmd = &cobra.Command{
	Use:   "utrhistory",
	Short: "utrhistory exports a tennis player's full UTR rating history.",
	// errors are logged once by ExecuteContext
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)

		var err error
		otelProviders, err = telemetry.SetupFromEnv(cmd.Context(), "utrhistory")
		if err != nil {
			slog.Warn("failed to set up otel exporters", "err", err)
		}
	},
}

// ExecuteContext runs the command line. Otel exporters are flushed before
// the process exits, on failed runs too.
func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	flushOtel()
	if err != nil {
		serviceutil.Fatal("utrhistory failed", err)
	}
}

func flushOtel() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := otelProviders.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to flush otel exporters", "err", err)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("read config: %w", err)
	}
	if dbPath != "" {
		cfg.Database = dbPath
	}
	return cfg, nil
}
