package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

// Config holds all application configuration
type Config struct {
	// Store
	DatabasePath string `envconfig:"NFLSTATS_DB" default:"nfl_stats.db"`

	// nflverse release assets
	GitHubToken    string        `envconfig:"GITHUB_TOKEN" default:""`
	ReleaseBaseURL string        `envconfig:"RELEASE_BASE_URL" default:"https://github.com/nflverse/nflverse-data/releases/download/stats_team"`
	EarliestSeason int           `envconfig:"EARLIEST_SEASON" default:"1999"`
	FetchTimeout   time.Duration `envconfig:"FETCH_TIMEOUT" default:"60s"`
	FetchWorkers   int           `envconfig:"FETCH_WORKERS" default:"1"`

	// Historical play-by-play and scores CSV directory
	HistoryDir string `envconfig:"HISTORY_DIR" default:"nfl_stats"`

	// ESPN scoreboard
	ESPNScoreboardURL string        `envconfig:"ESPN_SCOREBOARD_URL" default:"https://cdn.espn.com/core/nfl/scoreboard"`
	ESPNTimeout       time.Duration `envconfig:"ESPN_TIMEOUT" default:"10s"`
	LiveCacheTTL      time.Duration `envconfig:"LIVE_CACHE_TTL" default:"30s"`
	LivePollInterval  time.Duration `envconfig:"LIVE_POLL_INTERVAL" default:"60s"`

	// Redis
	RedisEnabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Tool server
	ServerPort int `envconfig:"SERVER_PORT" default:"8080"`

	// Scheduler
	EnableScheduler    bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	InitialSyncEnabled bool   `envconfig:"INITIAL_SYNC_ENABLED" default:"false"`
	RefreshCron        string `envconfig:"REFRESH_CRON" default:"0 6 * * *"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if present
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("NFLSTATS_DB is required")
	}

	if c.ReleaseBaseURL == "" {
		return fmt.Errorf("RELEASE_BASE_URL is required")
	}

	if c.EarliestSeason < 1920 || c.EarliestSeason > time.Now().Year() {
		return fmt.Errorf("EARLIEST_SEASON %d is out of range", c.EarliestSeason)
	}

	if c.FetchWorkers < 1 {
		return fmt.Errorf("FETCH_WORKERS must be at least 1")
	}

	if c.EnableScheduler {
		if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
			return fmt.Errorf("REFRESH_CRON is invalid: %w", err)
		}
	}

	return nil
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or exits on error
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
