package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
	"utrhistory/internal/components/chrono"
	"utrhistory/internal/store"

	"github.com/stretchr/testify/require"
)

const savedProfile = `<html><head><title>Jane Doe | UTR Sports</title></head><body>
	<h3>Full Rating History</h3>
	<div class="historyItem__a1"><div class="historyItemDate__b">2024-02-01</div><div class="historyItemRating__c">12.01</div></div>
	<div class="historyItem__a1"><div class="historyItemDate__b">2023-11-20</div><div class="historyItemRating__c">11.87</div></div>
</body></html>`

func run(t *testing.T, args ...string) error {
	t.Helper()

	dbPath = ""
	configPath = ""
	historyUserID = 0
	start := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	clock = &chrono.FakeImpl{Current: start}
	t.Cleanup(func() { clock = chrono.StandardImpl{} })

	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func TestParseWritesCSVAndStore(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "profile.html")
	require.NoError(t, os.WriteFile(page, []byte(savedProfile), 0600))
	out := filepath.Join(dir, "out.csv")
	db := filepath.Join(dir, "history.db")

	err := run(t, "parse", page, "--user-id", "7", "--out", out, "--db", db)
	require.NoError(t, err)

	contents, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t,
		"user_id,player_name,date,rating\n"+
			"7,Jane Doe,2024-02-01,12.01\n"+
			"7,Jane Doe,2023-11-20,11.87\n",
		string(contents),
	)

	s, err := store.Open(db)
	require.NoError(t, err)
	defer s.Close()
	result, err := s.Get(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", result.PlayerName)
	require.Len(t, result.Samples, 2)

	// the fetch time comes from the command clock
	players, err := s.Players(context.Background())
	require.NoError(t, err)
	require.Len(t, players, 1)
	require.True(t, players[0].FetchedAt.Equal(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)))
}

func TestParseMissingPageReturnsError(t *testing.T) {
	dir := t.TempDir()
	err := run(t, "parse", filepath.Join(dir, "missing.html"), "--user-id", "7", "--out", filepath.Join(dir, "out.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, statErr := os.Stat(filepath.Join(dir, "out.csv"))
	require.True(t, os.IsNotExist(statErr))
}

func TestHistoryWithoutDatabaseReturnsError(t *testing.T) {
	err := run(t, "history")
	require.ErrorContains(t, err, "no database")
}
