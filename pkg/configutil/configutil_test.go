package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string `json:"name"`
	Retries int    `json:"retries"`
	Nested  struct {
		Enabled bool   `json:"enabled"`
		Path    string `json:"path"`
	} `json:"nested"`
}

func write(t *testing.T, path, contents string) {
	t.Helper()
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "app.json5"), `{
		// comments are allowed
		name: "base",
		retries: 2,
		nested: {path: "a"},
	}`)
	write(t, filepath.Join(dir, "app.local.json5"), `{retries: 5, nested: {enabled: true}}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "app.json5"))
	require.NoError(t, err)
	require.Equal(t, "base", cfg.Name)
	require.Equal(t, 5, cfg.Retries)
	require.True(t, cfg.Nested.Enabled)
	require.Equal(t, "a", cfg.Nested.Path)
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "app.local.json5"), `{name: "local"}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "app.json5"))
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Name)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "app.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "app.json5"), `{name: `)

	_, err := ReadConfig[testConfig](filepath.Join(dir, "app.json5"))
	require.Error(t, err)
	require.False(t, os.IsNotExist(err))
}

func TestWithDefaults(t *testing.T) {
	defaults := testConfig{Name: "default", Retries: 3}
	cfg, err := WithDefaults(testConfig{Retries: 7}, defaults)
	require.NoError(t, err)
	require.Equal(t, "default", cfg.Name)
	require.Equal(t, 7, cfg.Retries)
}

type flagConfig struct {
	Name    string `json:"name"`
	Enabled *bool  `json:"enabled"`
}

func TestExplicitFalsePointerSurvives(t *testing.T) {
	yes := true
	defaults := flagConfig{Name: "default", Enabled: &yes}

	dir := t.TempDir()
	write(t, filepath.Join(dir, "app.json5"), `{enabled: true}`)
	write(t, filepath.Join(dir, "app.local.json5"), `{enabled: false}`)

	cfg, err := ReadConfig[flagConfig](filepath.Join(dir, "app.json5"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Enabled)
	require.False(t, *cfg.Enabled)

	cfg, err = WithDefaults(cfg, defaults)
	require.NoError(t, err)
	require.Equal(t, "default", cfg.Name)
	require.False(t, *cfg.Enabled)

	cfg, err = WithDefaults(flagConfig{}, defaults)
	require.NoError(t, err)
	require.True(t, *cfg.Enabled)
}
