package ledger

import (
	"context"
	"fmt"

	"github.com/fadedpez/pitbot/internal/config"
	"github.com/fadedpez/pitbot/internal/logging"
)

// Backend names accepted by Open
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Options selects and configures a ledger backend
type Options struct {
	Backend      string
	SQLiteDriver string
	SQLitePath   string
	DatabaseURL  string

	// Elasticsearch is optional; a nil value or empty URL disables the mirror
	Elasticsearch *ElasticsearchConfig

	Logger *logging.Logger
}

// OptionsFromConfig maps the ledger settings of cfg to Options
func OptionsFromConfig(cfg *config.Config, logger *logging.Logger) Options {
	opts := Options{
		Backend:      cfg.Backend,
		SQLiteDriver: cfg.SQLiteDriver,
		SQLitePath:   cfg.SQLitePath,
		DatabaseURL:  cfg.DatabaseURL,
		Logger:       logger,
	}
	if cfg.ElasticsearchURL != "" {
		opts.Elasticsearch = &ElasticsearchConfig{
			URL:         cfg.ElasticsearchURL,
			Username:    cfg.ElasticsearchUsername,
			Password:    cfg.ElasticsearchPassword,
			IndexPrefix: cfg.ElasticsearchIndexPrefix,
		}
	}
	return opts
}

// Open builds the configured backend and wraps it with the Elasticsearch mirror when one is configured
func Open(ctx context.Context, opts Options) (Repository, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default
	}

	var (
		base Repository
		err  error
	)
	switch opts.Backend {
	case BackendMemory:
		logger.Warn("Using in-memory ledger, rolls will not survive a restart")
		base = NewMemoryRepository()
	case BackendSQLite, "":
		driver := opts.SQLiteDriver
		if driver == "" {
			driver = DriverMattn
		}
		base, err = NewSQLiteRepository(driver, opts.SQLitePath, logger)
		if err == nil {
			logger.Info("Opened SQLite ledger at %s (%s driver)", opts.SQLitePath, driver)
		}
	case BackendPostgres:
		base, err = NewPostgresRepository(ctx, opts.DatabaseURL, logger)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", opts.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("error opening %s ledger: %w", opts.Backend, err)
	}

	if opts.Elasticsearch == nil || opts.Elasticsearch.URL == "" {
		return base, nil
	}

	mirror, err := NewElasticsearchRepository(base, opts.Elasticsearch, logger)
	if err != nil {
		base.Close()
		return nil, err
	}
	logger.Info("Mirroring ledger writes to Elasticsearch at %s", opts.Elasticsearch.URL)
	return mirror, nil
}
