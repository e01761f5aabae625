package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"utrhistory/internal/history"
	"utrhistory/internal/profile"

	"github.com/stretchr/testify/require"
)

var jane = profile.Result{
	UserID:     119061,
	PlayerName: "Jane Doe",
	Samples: []history.Sample{
		{Date: "2023-01-05", Rating: "11.20"},
		{Date: "3/10/2023", Rating: "11.45"},
	},
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

func TestCSV(t *testing.T) {
	require.Equal(t, []string{
		"user_id,player_name,date,rating",
		"119061,Jane Doe,2023-01-05,11.20",
		"119061,Jane Doe,3/10/2023,11.45",
	}, lines(CSV(jane)))
}

func TestCSVEmptyPlayerName(t *testing.T) {
	result := profile.Result{UserID: 7, Samples: []history.Sample{{Date: "2024-01-01", Rating: "9.5"}}}
	require.Equal(t, []string{
		"user_id,player_name,date,rating",
		"7,,2024-01-01,9.5",
	}, lines(CSV(result)))
}

func TestCSVQuotesNames(t *testing.T) {
	result := profile.Result{
		UserID:     7,
		PlayerName: `Smith, John "JJ"`,
		Samples:    []history.Sample{{Date: "2024-01-01", Rating: "9.5"}},
	}
	require.Equal(t, []string{
		"user_id,player_name,date,rating",
		`7,"Smith, John ""JJ""",2024-01-01,9.5`,
	}, lines(CSV(result)))
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "utr_history.csv")

	n, err := WriteCSV(path, jane)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, CSV(jane), string(contents))
}

func TestWriteCSVNoRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "utr_history.csv")

	_, err := WriteCSV(path, profile.Result{UserID: 1, PlayerName: "Nobody"})
	require.ErrorIs(t, err, ErrNoRows)

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestPreview(t *testing.T) {
	var buf bytes.Buffer
	Preview(&buf, jane, 1)

	out := buf.String()
	require.Contains(t, out, "2023-01-05")
	require.NotContains(t, out, "3/10/2023")
	require.Contains(t, out, "1 of 2 rows")

	buf.Reset()
	Preview(&buf, jane, 0)
	require.Contains(t, buf.String(), "3/10/2023")
	require.NotContains(t, buf.String(), "of 2 rows")
}
