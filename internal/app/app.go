// Package app wires configuration into the store, fetcher, publisher and
// ingestion pipeline shared by the commands.
package app

import (
	"context"
	"fmt"
	"log/slog"

	httpadapter "github.com/couchcryptid/climate-data-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/climate-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/climate-data-etl/internal/adapter/memory"
	"github.com/couchcryptid/climate-data-etl/internal/adapter/metoffice"
	"github.com/couchcryptid/climate-data-etl/internal/adapter/postgres"
	"github.com/couchcryptid/climate-data-etl/internal/config"
	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/observability"
	"github.com/couchcryptid/climate-data-etl/internal/pipeline"
)

// Store is the full storage contract satisfied by both drivers.
type Store interface {
	httpadapter.ReadinessChecker
	httpadapter.RecordQuerier
	pipeline.ReferenceStore
	pipeline.RecordStore
	SeedReferenceData(ctx context.Context, regions []domain.Region, parameters []domain.Parameter) error
}

// App holds the wired components. Close releases them.
type App struct {
	Store    Store
	Locator  *pipeline.Locator
	Ingester *pipeline.Ingester

	closers []func() error
	logger  *slog.Logger
}

// Build opens the configured store, seeds reference data and assembles the
// ingestion pipeline. On error everything opened so far is released.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*App, error) {
	a := &App{logger: logger}

	store, err := a.openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := store.SeedReferenceData(ctx, domain.SeedRegions, domain.SeedParameters); err != nil {
		a.Close()
		return nil, fmt.Errorf("seed reference data: %w", err)
	}
	a.Store = store

	opts := []pipeline.Option{pipeline.WithSourceLocation(cfg.SourceLocation)}
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		a.closers = append(a.closers, writer.Close)
		opts = append(opts, pipeline.WithPublisher(writer))
		logger.Info("sync events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSyncTopic)
	}

	a.Locator = pipeline.NewLocator(store, cfg.MetOfficeBaseURL)
	fetcher := metoffice.NewClient(cfg.FetchTimeout, metrics, logger)
	a.Ingester = pipeline.NewIngester(a.Locator, fetcher, store, logger, metrics, opts...)
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		a.logger.Info("using in-memory store")
		return memory.New(), nil
	case config.StoreDriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

		store := postgres.New(pool, cfg.UpsertBatchSize, a.logger)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		a.logger.Info("connected to database", "max_conns", cfg.DBMaxConns, "upsert_batch_size", cfg.UpsertBatchSize)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// HTTPDeps returns the collaborators for the HTTP server.
func (a *App) HTTPDeps() httpadapter.Deps {
	return httpadapter.Deps{
		Ready:    a.Store,
		Catalog:  a.Locator,
		Records:  a.Store,
		Ingester: a.Ingester,
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("close error", "error", err)
		}
	}
	a.closers = nil
}
