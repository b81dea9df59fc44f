package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("NFLSTATS_DB", "test.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test.db", cfg.DatabasePath)
	assert.Equal(t, 1999, cfg.EarliestSeason)
	assert.Equal(t, 60*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 1, cfg.FetchWorkers)
	assert.Equal(t, "https://cdn.espn.com/core/nfl/scoreboard", cfg.ESPNScoreboardURL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Equal(t, "nfl_stats", cfg.HistoryDir)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("NFLSTATS_DB", "/tmp/other.db")
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("FETCH_WORKERS", "4")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/other.db", cfg.DatabasePath)
	assert.Equal(t, "ghp_test", cfg.GitHubToken)
	assert.Equal(t, 4, cfg.FetchWorkers)
	assert.True(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DatabasePath:    "nfl.db",
			ReleaseBaseURL:  "https://example.com",
			EarliestSeason:  1999,
			FetchWorkers:    1,
			EnableScheduler: true,
			RefreshCron:     "0 6 * * *",
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing db", func(c *Config) { c.DatabasePath = "" }},
		{"missing base url", func(c *Config) { c.ReleaseBaseURL = "" }},
		{"season too early", func(c *Config) { c.EarliestSeason = 1800 }},
		{"season in future", func(c *Config) { c.EarliestSeason = time.Now().Year() + 1 }},
		{"zero workers", func(c *Config) { c.FetchWorkers = 0 }},
		{"bad cron", func(c *Config) { c.RefreshCron = "every day" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
