// Package postgres persists reference data and observations in PostgreSQL
// using pgx.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/config"
	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// DefaultBatchSize bounds the rows sent per pgx.Batch.
const DefaultBatchSize = 500

const upsertRecordSQL = `
INSERT INTO climate_records
    (region_id, parameter_id, year, period_type, period, value, source_last_updated, fetched_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT ON CONSTRAINT climate_records_natural_key DO UPDATE SET
    value               = EXCLUDED.value,
    source_last_updated = EXCLUDED.source_last_updated,
    fetched_at          = EXCLUDED.fetched_at`

const recordColumns = `
    cr.id, cr.region_id, cr.parameter_id, r.code, r.name, p.code, p.name,
    cr.year, cr.period_type, cr.period, cr.value::float8, cr.source_last_updated, cr.fetched_at`

const recordJoins = `
FROM climate_records cr
JOIN regions r ON r.id = cr.region_id
JOIN parameters p ON p.id = cr.parameter_id`

// NewPool connects to DATABASE_URL with the configured pool sizing and
// verifies the connection.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.MaxConns = cfg.DBMaxConns
	poolConfig.MinConns = cfg.DBMinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Store implements the reference and record stores on a pgx pool.
type Store struct {
	pool      *pgxpool.Pool
	batchSize int
	logger    *slog.Logger
}

// New creates a Store. batchSize <= 0 selects DefaultBatchSize.
func New(pool *pgxpool.Pool, batchSize int, logger *slog.Logger) *Store {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Store{pool: pool, batchSize: batchSize, logger: logger}
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}
	return nil
}

// SeedReferenceData inserts or updates regions and parameters by code in a
// single transaction.
func (s *Store) SeedReferenceData(ctx context.Context, regions []domain.Region, parameters []domain.Parameter) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		b := &pgx.Batch{}
		for _, r := range regions {
			b.Queue(`
INSERT INTO regions (code, name, dataset_slug, description) VALUES ($1, $2, $3, $4)
ON CONFLICT (code) DO UPDATE SET
    name = EXCLUDED.name, dataset_slug = EXCLUDED.dataset_slug, description = EXCLUDED.description`,
				r.Code, r.Name, r.DatasetSlug, r.Description)
		}
		for _, p := range parameters {
			b.Queue(`
INSERT INTO parameters (code, name, units, description) VALUES ($1, $2, $3, $4)
ON CONFLICT (code) DO UPDATE SET
    name = EXCLUDED.name, units = EXCLUDED.units, description = EXCLUDED.description`,
				p.Code, p.Name, p.Units, p.Description)
		}
		return tx.SendBatch(ctx, b).Close()
	})
	if err != nil {
		return fmt.Errorf("seed reference data: %w", err)
	}
	s.logger.Info("reference data seeded", "regions", len(regions), "parameters", len(parameters))
	return nil
}

// ListRegions returns all regions ordered by name.
func (s *Store) ListRegions(ctx context.Context) ([]domain.Region, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, code, name, dataset_slug, description FROM regions ORDER BY name, code`)
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	regions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Region, error) {
		var r domain.Region
		err := row.Scan(&r.ID, &r.Code, &r.Name, &r.DatasetSlug, &r.Description)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan regions: %w", err)
	}
	return regions, nil
}

// ListParameters returns all parameters ordered by name.
func (s *Store) ListParameters(ctx context.Context) ([]domain.Parameter, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, code, name, units, description FROM parameters ORDER BY name, code`)
	if err != nil {
		return nil, fmt.Errorf("query parameters: %w", err)
	}
	params, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Parameter, error) {
		var p domain.Parameter
		err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Units, &p.Description)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan parameters: %w", err)
	}
	return params, nil
}

// UpsertRecords writes records in chunks of batchSize inside one
// transaction, overwriting value, source_last_updated and fetched_at on
// natural-key conflict. It returns len(records).
func (s *Store) UpsertRecords(ctx context.Context, records []domain.ObservationRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	for _, r := range records {
		if r.RegionID == 0 || r.ParameterID == 0 {
			return 0, errors.New("upsert records: region and parameter ids are required")
		}
	}

	start := time.Now()
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for i := 0; i < len(records); i += s.batchSize {
			chunk := records[i:min(i+s.batchSize, len(records))]
			b := &pgx.Batch{}
			for _, r := range chunk {
				b.Queue(upsertRecordSQL,
					r.RegionID, r.ParameterID, r.Year, string(r.PeriodType), r.Period,
					r.Value, r.SourceLastUpdated, r.FetchedAt,
				)
			}
			if err := tx.SendBatch(ctx, b).Close(); err != nil {
				return fmt.Errorf("chunk at offset %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("upsert records: %w", err)
	}

	s.logger.Debug("records upserted", "count", len(records), "batch_size", s.batchSize, "duration", time.Since(start))
	return len(records), nil
}

// ListRecords returns one page of matching records ordered by year and
// period, with the unpaginated count.
func (s *Store) ListRecords(ctx context.Context, filter domain.RecordFilter) (domain.RecordPage, error) {
	where, args := buildWhere(filter)

	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*)`+recordJoins+where, args...).Scan(&count); err != nil {
		return domain.RecordPage{}, fmt.Errorf("count records: %w", err)
	}

	query := `SELECT` + recordColumns + recordJoins + where +
		` ORDER BY cr.year, cr.period, p.code, r.code, cr.period_type`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return domain.RecordPage{}, fmt.Errorf("query records: %w", err)
	}
	results, err := pgx.CollectRows(rows, scanStoredRecord)
	if err != nil {
		return domain.RecordPage{}, fmt.Errorf("scan records: %w", err)
	}
	return domain.RecordPage{Count: count, Results: results}, nil
}

// Summarize aggregates the values of matching records. Aggregates stay nil
// when nothing matches.
func (s *Store) Summarize(ctx context.Context, filter domain.RecordFilter) (domain.RecordSummary, error) {
	where, args := buildWhere(filter)

	var summary domain.RecordSummary
	err := s.pool.QueryRow(ctx, `
SELECT COUNT(*), MIN(cr.value)::float8, MAX(cr.value)::float8, AVG(cr.value)::float8, MIN(cr.year), MAX(cr.year)`+
		recordJoins+where, args...).Scan(
		&summary.Count, &summary.MinValue, &summary.MaxValue, &summary.AvgValue,
		&summary.FirstYear, &summary.LastYear,
	)
	if err != nil {
		return domain.RecordSummary{}, fmt.Errorf("summarize records: %w", err)
	}
	return summary, nil
}

func scanStoredRecord(row pgx.CollectableRow) (domain.StoredRecord, error) {
	var (
		r          domain.StoredRecord
		periodType string
	)
	err := row.Scan(
		&r.ID, &r.RegionID, &r.ParameterID, &r.RegionCode, &r.RegionName, &r.ParameterCode, &r.ParameterName,
		&r.Year, &periodType, &r.Period, &r.Value, &r.SourceLastUpdated, &r.FetchedAt,
	)
	r.PeriodType = domain.PeriodType(periodType)
	return r, err
}

// buildWhere renders the filter as a WHERE clause with positional args.
// Codes are compared exactly; callers pass canonical codes.
func buildWhere(f domain.RecordFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(expr string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}
	if f.RegionCode != "" {
		add("r.code = $%d", f.RegionCode)
	}
	if f.ParameterCode != "" {
		add("p.code = $%d", f.ParameterCode)
	}
	if f.PeriodType != "" {
		add("cr.period_type = $%d", string(f.PeriodType))
	}
	if f.Period != "" {
		add("cr.period = $%d", f.Period)
	}
	if f.StartYear > 0 {
		add("cr.year >= $%d", f.StartYear)
	}
	if f.EndYear > 0 {
		add("cr.year <= $%d", f.EndYear)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "\nWHERE " + strings.Join(conds, " AND "), args
}
