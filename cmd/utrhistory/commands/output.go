package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"utrhistory/internal/config"
	"utrhistory/internal/export"
	"utrhistory/internal/profile"
	"utrhistory/internal/store"

	"github.com/spf13/cobra"
)

// outputFlags are shared by every command that produces a history.
type outputFlags struct {
	userID  int
	out     string
	preview int
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.userID, "user-id", 0, "UTR user id of the player (e.g. 119061).")
	cmd.Flags().StringVar(&o.out, "out", "utr_history.csv", "Output CSV path.")
	cmd.Flags().IntVar(&o.preview, "preview", 0, "Also print the first N rows as a table.")
	cmd.MarkFlagRequired("user-id")
}

func (o outputFlags) validate() error {
	if o.userID <= 0 {
		return fmt.Errorf("--user-id must be a positive integer, got %d", o.userID)
	}
	return nil
}

// finish writes result everywhere it was asked to go. No samples is
// reported but is not an error.
func (o outputFlags) finish(ctx context.Context, cfg config.Config, result profile.Result) error {
	if cfg.Database != "" {
		err := saveToStore(ctx, cfg.Database, result)
		if err != nil {
			return err
		}
	}

	n, err := export.WriteCSV(o.out, result)
	if errors.Is(err, export.ErrNoRows) {
		fmt.Println("No rows found.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	if o.preview > 0 {
		export.Preview(os.Stdout, result, o.preview)
	}
	fmt.Printf("Wrote %d rows -> %s\n", n, o.out)
	return nil
}

func saveToStore(ctx context.Context, path string, result profile.Result) error {
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	err = db.Put(ctx, result, clock.Now())
	if err != nil {
		return fmt.Errorf("store history: %w", err)
	}
	slog.Debug("stored history", "db", path, "user_id", result.UserID, "samples", len(result.Samples))
	return nil
}
