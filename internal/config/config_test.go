package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir())) // no config.yaml present
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Batch.MaxConcurrentCompanies)
	assert.Equal(t, 70.0, cfg.Watchlist.AddThreshold)
	assert.Equal(t, 50.0, cfg.Watchlist.RemoveThreshold)
	assert.Equal(t, 10.0, cfg.Watchlist.AlertDelta)
	assert.True(t, cfg.Watchlist.AutoAdd)
	assert.True(t, cfg.Watchlist.AutoRemove)
	assert.Equal(t, 40.0, cfg.Matcher.MinScore)
	assert.Equal(t, 5, cfg.Matcher.CliffYearsAhead)
	assert.Equal(t, 7, cfg.Matcher.HistoryYears)
	assert.Equal(t, 30.0, cfg.Notify.RatePerMinute)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
store:
  driver: sqlite
  database_url: bioma.db
watchlist:
  add_threshold: 80
  alert_delta: 15
scoring:
  components:
    pipeline:
      weight: 0.5
      enabled: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "bioma.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 80.0, cfg.Watchlist.AddThreshold)
	assert.Equal(t, 15.0, cfg.Watchlist.AlertDelta)
	assert.Equal(t, 50.0, cfg.Watchlist.RemoveThreshold) // default survives partial override
	require.Contains(t, cfg.Scoring.Components, "pipeline")
	assert.Equal(t, 0.5, cfg.Scoring.Components["pipeline"].Weight)
}

func TestWatchlistValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     WatchlistConfig
		wantErr string
	}{
		{
			name: "valid",
			cfg:  WatchlistConfig{AddThreshold: 70, RemoveThreshold: 50, AlertDelta: 10},
		},
		{
			name:    "add not above remove",
			cfg:     WatchlistConfig{AddThreshold: 50, RemoveThreshold: 50},
			wantErr: "add_threshold must be greater than remove_threshold",
		},
		{
			name:    "add out of range",
			cfg:     WatchlistConfig{AddThreshold: 120, RemoveThreshold: 50},
			wantErr: "add_threshold must be between 0 and 100",
		},
		{
			name:    "negative alert delta",
			cfg:     WatchlistConfig{AddThreshold: 70, RemoveThreshold: 50, AlertDelta: -1},
			wantErr: "alert_delta must be >= 0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Store:     StoreConfig{Driver: "sqlite", DatabaseURL: "bioma.db"},
		Watchlist: WatchlistConfig{AddThreshold: 70, RemoveThreshold: 50},
	}
	assert.NoError(t, valid.Validate())

	badDriver := valid
	badDriver.Store.Driver = "mysql"
	require.Error(t, badDriver.Validate())
	assert.Contains(t, badDriver.Validate().Error(), "unknown store driver")

	noURL := valid
	noURL.Store.DatabaseURL = ""
	require.Error(t, noURL.Validate())

	badWatchlist := valid
	badWatchlist.Watchlist.RemoveThreshold = 90
	require.Error(t, badWatchlist.Validate())
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "shouty"})
	require.Error(t, err)
}
