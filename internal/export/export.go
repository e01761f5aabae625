// Package export renders extracted histories for people: a CSV file with
// one row per sample, and a console table.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"utrhistory/internal/profile"

	"github.com/jedib0t/go-pretty/v6/table"
)

// ErrNoRows is returned instead of writing an empty export. It is an
// expected outcome, not a failure.
var ErrNoRows = errors.New("export: no rows")

var columns = []string{"user_id", "player_name", "date", "rating"}

func records(result profile.Result) [][]string {
	userID := strconv.Itoa(result.UserID)
	out := make([][]string, len(result.Samples))
	for i, s := range result.Samples {
		out[i] = []string{userID, result.PlayerName, s.Date, s.Rating}
	}
	return out
}

func rows(result profile.Result) []table.Row {
	recs := records(result)
	out := make([]table.Row, len(recs))
	for i, rec := range recs {
		out[i] = table.Row{rec[0], rec[1], rec[2], rec[3]}
	}
	return out
}

// CSV renders result with a header row, every value kept as displayed.
func CSV(result profile.Result) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	// bytes.Buffer writes cannot fail
	_ = w.Write(columns)
	_ = w.WriteAll(records(result))
	return buf.String()
}

// WriteCSV writes the CSV export of result to path and returns the number
// of rows written. Nothing is written when there are no samples.
func WriteCSV(path string, result profile.Result) (int, error) {
	if len(result.Samples) == 0 {
		return 0, ErrNoRows
	}

	dir := filepath.Dir(path)
	if dir != "." {
		err := os.MkdirAll(dir, 0777)
		if err != nil {
			return 0, fmt.Errorf("export: %w", err)
		}
	}
	err := os.WriteFile(path, []byte(CSV(result)), 0644)
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	return len(result.Samples), nil
}

// Preview prints up to limit samples of result as a table, limit <= 0
// prints all of them.
func Preview(w io.Writer, result profile.Result, limit int) {
	all := rows(result)
	shown := all
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{columns[0], columns[1], columns[2], columns[3]})
	t.AppendRows(shown)
	if len(shown) < len(all) {
		t.SetCaption("%d of %d rows", len(shown), len(all))
	}
	t.Render()
}
