package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Discord configuration
	Token   string `env:"DISCORD_TOKEN"`
	AppID   string `env:"APP_ID"`
	GuildID string `env:"GUILD_ID"` // Empty registers commands globally

	// Ledger storage
	DataDir      string `env:"DATA_DIR"`
	Backend      string `env:"LEDGER_BACKEND" envDefault:"sqlite"`
	SQLiteDriver string `env:"SQLITE_DRIVER" envDefault:"sqlite3"`
	SQLitePath   string `env:"SQLITE_PATH"`
	DatabaseURL  string `env:"DATABASE_URL"`

	// Optional Elasticsearch mirror
	ElasticsearchURL         string `env:"ELASTICSEARCH_URL"`
	ElasticsearchUsername    string `env:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPassword    string `env:"ELASTICSEARCH_PASSWORD"`
	ElasticsearchIndexPrefix string `env:"ELASTICSEARCH_INDEX_PREFIX" envDefault:"pitbot"`

	// Roll rules
	ReferenceTimezone string        `env:"REFERENCE_TIMEZONE" envDefault:"UTC"`
	JokeDates         []string      `env:"JOKE_DATES" envDefault:"04-01" envSeparator:","`
	Cooldown          time.Duration `env:"COOLDOWN" envDefault:"10m"`
	FlavorPath        string        `env:"FLAVOR_PATH"`

	// Access control
	PitChannelID string   `env:"PIT_CHANNEL_ID"`
	DebugUserIDs []string `env:"DEBUG_USER_IDS" envSeparator:","`
	DataUserIDs  []string `env:"DATA_USER_IDS" envSeparator:","`
	ModRoleIDs   []string `env:"MOD_ROLE_IDS" envSeparator:","`
	SubRoleID    string   `env:"SUB_ROLE_ID"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development" or "production"
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	location *time.Location
}

// Load reads the bot configuration from .env and environment variables
func Load() (*Config, error) {
	cfg, err := load(".env")
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadCLI reads configuration for the operator CLI, which never talks to Discord
func LoadCLI(envFile string) (*Config, error) {
	return load(envFile)
}

func load(envFile string) (*Config, error) {
	// Only fail if the file exists but couldn't be loaded
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s file: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DataDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg.DataDir = filepath.Join(wd, "data")
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.DataDir, "pitbot.db")
	}

	loc, err := time.LoadLocation(cfg.ReferenceTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid REFERENCE_TIMEZONE %q: %w", cfg.ReferenceTimezone, err)
	}
	cfg.location = loc

	if cfg.Backend == "sqlite" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// validate checks if all required bot configuration is present
func (c *Config) validate() error {
	if c.Token == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.AppID == "" {
		return fmt.Errorf("APP_ID is required")
	}
	switch c.Backend {
	case "memory", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.Backend)
	}
	return nil
}

// Location returns the reference time zone used for calendar days
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsDebugUser reports whether userID bypasses cooldowns and may use debug commands
func (c *Config) IsDebugUser(userID string) bool {
	return slices.Contains(c.DebugUserIDs, userID)
}

// CanExport reports whether a member may pull reports and moderate rolls
func (c *Config) CanExport(userID string, roles []string) bool {
	if slices.Contains(c.DataUserIDs, userID) {
		return true
	}
	for _, role := range roles {
		if slices.Contains(c.ModRoleIDs, role) {
			return true
		}
	}
	return false
}
