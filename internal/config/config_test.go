package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadExpandsEnvAndDefaults(t *testing.T) {
	t.Setenv("CASTBOARD_SHEET", "sheet-id-123")

	path := writeConfig(t, `
sheets:
  roster_spreadsheet_id: ${CASTBOARD_SHEET}
database:
  path: `+filepath.Join(t.TempDir(), "c.db")+`
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sheet-id-123", cfg.Sheets.RosterSpreadsheetID)
	assert.Equal(t, "sheet-id-123", cfg.Sheets.ReceptionSpreadsheetID)
	assert.Equal(t, 60.0, cfg.PollInterval().Seconds())
	assert.Equal(t, 30, cfg.BufferMinutes())
	assert.Equal(t, 1, cfg.ToleranceMinutes())
	assert.Equal(t, 8080, cfg.ServerPort())

	rps, burst := cfg.SheetsRate()
	assert.Equal(t, 1.0, rps)
	assert.Equal(t, 3, burst)
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeConfig(t, `
database:
  path: `+filepath.Join(t.TempDir(), "c.db")+`
poll:
  interval_seconds: 15
timeline:
  buffer_minutes: 20
  match_tolerance_minutes: 3
server:
  port: 9000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 15.0, cfg.PollInterval().Seconds())
	assert.Equal(t, 20, cfg.BufferMinutes())
	assert.Equal(t, 3, cfg.ToleranceMinutes())
	assert.Equal(t, 9000, cfg.ServerPort())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
