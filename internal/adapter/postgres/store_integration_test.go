//go:build integration

package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/adapter/postgres"
	"github.com/couchcryptid/climate-data-etl/internal/config"
	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startStore runs a throwaway PostgreSQL container and returns a seeded store.
func startStore(ctx context.Context, t *testing.T, batchSize int) *postgres.Store {
	t.Helper()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("climate"),
		tcpostgres.WithUsername("climate"),
		tcpostgres.WithPassword("climate"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, &config.Config{DatabaseURL: dsn, DBMaxConns: 4, DBMinConns: 1})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := postgres.New(pool, batchSize, discardLogger())
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.SeedReferenceData(ctx, domain.SeedRegions, domain.SeedParameters))
	return store
}

func expand(t *testing.T, store *postgres.Store, regionCode, paramCode, text string) []domain.ObservationRecord {
	t.Helper()
	ctx := context.Background()

	regions, err := store.ListRegions(ctx)
	require.NoError(t, err)
	params, err := store.ListParameters(ctx)
	require.NoError(t, err)

	var region domain.Region
	for _, r := range regions {
		if r.Code == regionCode {
			region = r
		}
	}
	var param domain.Parameter
	for _, p := range params {
		if p.Code == paramCode {
			param = p
		}
	}
	require.NotZero(t, region.ID)
	require.NotZero(t, param.ID)

	table, err := domain.ParseDataset(text, time.UTC, discardLogger())
	require.NoError(t, err)
	return domain.ExpandRecords(table, region, param, table.LastUpdated)
}

const dataset = `Last updated 15-Jan-2024 10:30
year jan feb mar apr may jun jul aug sep oct nov dec win spr sum aut ann
2022 7.8 9.1 11.8 13.4 17.1 19.9 23.1 22.6 18.6 16.4 11.8 5.6 7.97 14.11 21.87 15.60 14.79
2023 7.9 9.7 9.6 12.6 16.9 21.8 19.7 20.9 20.5 16.0 10.4 9.4 7.56 13.06 20.80 15.64 14.62
2024 5.1 --- --- --- --- --- --- --- --- --- --- --- --- --- --- --- 9.9
`

func TestStore_ReferenceData(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	store := startStore(ctx, t, 0)

	// Seeding twice keeps one row per code.
	require.NoError(t, store.SeedReferenceData(ctx, domain.SeedRegions, domain.SeedParameters))

	regions, err := store.ListRegions(ctx)
	require.NoError(t, err)
	assert.Len(t, regions, len(domain.SeedRegions))
	for i := 1; i < len(regions); i++ {
		assert.LessOrEqual(t, regions[i-1].Name, regions[i].Name)
	}

	params, err := store.ListParameters(ctx)
	require.NoError(t, err)
	assert.Len(t, params, len(domain.SeedParameters))

	require.NoError(t, store.CheckReadiness(ctx))
}

func TestStore_UpsertRecords_Idempotent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	// A small batch size forces several pgx batches per upsert.
	store := startStore(ctx, t, 7)

	records := expand(t, store, "UK", "Tmax", dataset)
	require.Len(t, records, 36)

	n, err := store.UpsertRecords(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 36, n)

	n, err = store.UpsertRecords(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 36, n)

	page, err := store.ListRecords(ctx, domain.RecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, 36, page.Count)

	seen := map[domain.RecordKey]bool{}
	for _, r := range page.Results {
		assert.False(t, seen[r.Key()], "duplicate natural key %v", r.Key())
		seen[r.Key()] = true
	}
}

func TestStore_UpsertRecords_OverwritesValue(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	store := startStore(ctx, t, 0)

	records := expand(t, store, "UK", "Tmax", dataset)
	_, err := store.UpsertRecords(ctx, records)
	require.NoError(t, err)

	revised := expand(t, store, "UK", "Tmax", "year jan\n2024 6.25\n")
	_, err = store.UpsertRecords(ctx, revised)
	require.NoError(t, err)

	page, err := store.ListRecords(ctx, domain.RecordFilter{StartYear: 2024, Period: "jan"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Count)
	got := page.Results[0]
	assert.InDelta(t, 6.25, got.Value, 1e-9)
	assert.Nil(t, got.SourceLastUpdated, "overwritten with the revised document's timestamp")
	assert.Equal(t, "United Kingdom", got.RegionName)
	assert.Equal(t, "UK", got.RegionCode)
	assert.Equal(t, domain.PeriodMonth, got.PeriodType)
}

func TestStore_UpsertRecords_Empty(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	store := startStore(ctx, t, 0)

	n, err := store.UpsertRecords(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_QueryAndSummary(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	store := startStore(ctx, t, 0)

	_, err := store.UpsertRecords(ctx, expand(t, store, "UK", "Tmax", dataset))
	require.NoError(t, err)
	_, err = store.UpsertRecords(ctx, expand(t, store, "WALES", "Tmax", dataset))
	require.NoError(t, err)

	page, err := store.ListRecords(ctx, domain.RecordFilter{
		RegionCode: "UK", PeriodType: domain.PeriodAnnual, Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Count)
	require.Len(t, page.Results, 2)
	assert.Equal(t, 2022, page.Results[0].Year)
	assert.Equal(t, 2023, page.Results[1].Year)

	summary, err := store.Summarize(ctx, domain.RecordFilter{RegionCode: "UK", Period: "ann"})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	require.NotNil(t, summary.MinValue)
	assert.InDelta(t, 9.9, *summary.MinValue, 1e-9)
	assert.InDelta(t, 14.79, *summary.MaxValue, 1e-9)
	assert.InDelta(t, (9.9+14.62+14.79)/3, *summary.AvgValue, 1e-6)
	assert.Equal(t, 2022, *summary.FirstYear)
	assert.Equal(t, 2024, *summary.LastYear)

	empty, err := store.Summarize(ctx, domain.RecordFilter{RegionCode: "SCOTLAND"})
	require.NoError(t, err)
	assert.Equal(t, domain.RecordSummary{}, empty)
}
