package commands

import (
	"fmt"
	"os"
	"utrhistory/internal/components/telemetry"
	"utrhistory/internal/profile"

	"github.com/spf13/cobra"
)

var parseOutput outputFlags

func init() {
	parseOutput.register(parseCmd)
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse <page.html> --user-id <id> [--out <path.csv>]",
	Short: "Extracts the rating history from a saved profile page.",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return parseOutput.validate()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		result, err := parseFile(args[0], parseOutput.userID)
		if err != nil {
			return err
		}
		return parseOutput.finish(cmd.Context(), cfg, result)
	},
}

func parseFile(path string, userID int) (profile.Result, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return profile.Result{}, fmt.Errorf("read saved page: %w", err)
	}
	result := profile.ParseDocument(userID, string(contents))
	telemetry.SlogAPI{}.ReportCount("history.extract", int64(len(result.Samples)))
	return result, nil
}
