package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/bookcat/internal/catalog"
	"github.com/roach88/bookcat/internal/config"
	"github.com/roach88/bookcat/internal/pgstore"
	"github.com/roach88/bookcat/internal/storage"
	"github.com/roach88/bookcat/internal/store"
)

var (
	errInvalidInput = errors.New("invalid input")
	errStorage      = errors.New("storage unavailable")
)

// app is the wiring shared by commands that touch the catalog.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   storage.Store
	catalog *catalog.Service
}

// loadConfig reads the configuration and applies the --db override.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Database != "" {
		cfg.Storage.Driver = config.DriverSQLite
		cfg.Storage.SQLitePath = opts.Database
	}
	return cfg, nil
}

// openApp loads configuration, opens storage and builds the catalog
// service. copts may adjust the service options before construction.
func openApp(ctx context.Context, opts *RootOptions, cmd *cobra.Command, copts ...func(*catalog.Options)) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger(cmd.ErrOrStderr(), opts.Verbose)

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errStorage, err)
	}

	options := catalog.Options{
		Domain:          cfg.Domain,
		Policy:          cfg.Policy(),
		PreviewsEnabled: cfg.Previews.Enabled,
		CacheSize:       cfg.Cache.Size,
		CacheTTL:        cfg.Cache.TTL.Std(),
		Logger:          logger,
	}
	for _, fn := range copts {
		fn(&options)
	}
	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		catalog: catalog.New(st, options),
	}, nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		return pgstore.Open(ctx, cfg.Storage.PostgresDSN, logger)
	default:
		logger.Debug("opening database", slog.String("path", cfg.Storage.SQLitePath))
		return store.Open(cfg.Storage.SQLitePath)
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", slog.Any("error", err))
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
