package commands

import (
	"errors"
	"fmt"
	"os"
	"utrhistory/internal/export"
	"utrhistory/internal/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyUserID int

func init() {
	historyCmd.Flags().IntVar(&historyUserID, "user-id", 0, "Print the stored history of this player instead of listing players.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--user-id <id>]",
	Short: "Prints the histories stored by fetch/parse --db.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database == "" {
			return errors.New("no database to read, pass --db or set database in utrhistory.json5")
		}

		db, err := store.Open(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if historyUserID > 0 {
			result, err := db.Get(cmd.Context(), historyUserID)
			if errors.Is(err, store.ErrNotFound) {
				fmt.Printf("No stored history for %d.\n", historyUserID)
				return nil
			}
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			export.Preview(os.Stdout, result, 0)
			return nil
		}

		players, err := db.Players(cmd.Context())
		if err != nil {
			return fmt.Errorf("list players: %w", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"User ID", "Player", "Samples", "Fetched"})
		for _, p := range players {
			t.AppendRow(table.Row{p.UserID, p.Name, p.Samples, p.FetchedAt.Format("2006-01-02 15:04")})
		}
		t.Render()
		return nil
	},
}
