package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/observability"
	"github.com/google/uuid"
)

// Messages reported on an empty BatchResult.
const (
	MsgNoRegionsMatched      = "No regions matched the supplied filters."
	MsgNoRegionsAvailable    = "No regions available to ingest."
	MsgNoParametersMatched   = "No parameters matched the supplied filters."
	MsgNoParametersAvailable = "No parameters available to ingest."
)

// Ingester runs Fetcher -> ParseDataset -> ExpandRecords -> RecordStore for
// one dataset, and folds that over region x parameter batches.
type Ingester struct {
	locator   *Locator
	fetcher   Fetcher
	store     RecordStore
	publisher Publisher
	location  *time.Location
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithPublisher emits a sync event after each successful dataset sync.
func WithPublisher(p Publisher) Option {
	return func(i *Ingester) { i.publisher = p }
}

// WithSourceLocation sets the zone used for naive "Last updated" timestamps.
func WithSourceLocation(loc *time.Location) Option {
	return func(i *Ingester) {
		if loc != nil {
			i.location = loc
		}
	}
}

// NewIngester creates an Ingester.
func NewIngester(locator *Locator, fetcher Fetcher, store RecordStore, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Ingester {
	i := &Ingester{
		locator:  locator,
		fetcher:  fetcher,
		store:    store,
		location: time.UTC,
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Locator returns the locator used to resolve datasets.
func (i *Ingester) Locator() *Locator {
	return i.locator
}

// SyncOne downloads, parses and upserts one dataset. When sourceURL is empty
// the canonical URL is built from the parameter code and region slug. Any
// stage failure is returned unchanged and nothing is written.
func (i *Ingester) SyncOne(ctx context.Context, region domain.Region, parameter domain.Parameter, sourceURL string) (domain.SyncResult, error) {
	result, err := i.syncOne(ctx, region, parameter, sourceURL)
	i.recordOutcome(err)
	return result, err
}

func (i *Ingester) syncOne(ctx context.Context, region domain.Region, parameter domain.Parameter, sourceURL string) (domain.SyncResult, error) {
	if sourceURL == "" {
		sourceURL = i.locator.BuildURL(parameter.Code, region.DatasetSlug, domain.DefaultOrder)
	}
	log := i.logger.With("region", region.Code, "parameter", parameter.Code)

	text, fetchedURL, err := i.fetcher.FetchText(ctx, sourceURL)
	if err != nil {
		return domain.SyncResult{}, err
	}

	table, err := domain.ParseDataset(text, i.location, log)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("parse %s: %w", fetchedURL, err)
	}

	records := domain.ExpandRecords(table, region, parameter, table.LastUpdated)
	n, err := i.store.UpsertRecords(ctx, records)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("upsert %s/%s: %w", region.Code, parameter.Code, err)
	}
	if i.metrics != nil {
		i.metrics.RecordsUpserted.Add(float64(n))
	}

	result := domain.SyncResult{
		Region:      region.Code,
		Parameter:   parameter.Code,
		RowCount:    n,
		SourceURL:   fetchedURL,
		LastUpdated: table.LastUpdated,
	}
	log.Info("dataset synced",
		"rows", n,
		"years", len(table.Rows),
		"invalid_cells", table.InvalidCells,
		"source_url", fetchedURL,
	)

	if i.publisher != nil {
		if err := i.publisher.PublishSync(ctx, result); err != nil {
			log.Warn("publish sync event failed", "error", err)
		}
	}
	return result, nil
}

// SyncByCodes resolves region and parameter codes and syncs the canonical URL.
func (i *Ingester) SyncByCodes(ctx context.Context, regionCode, parameterCode string) (domain.SyncResult, error) {
	region, param, err := i.locator.ResolveByCodes(ctx, regionCode, parameterCode)
	if err != nil {
		i.recordOutcome(err)
		return domain.SyncResult{}, err
	}
	return i.SyncOne(ctx, region, param, "")
}

// SyncFromURL resolves the dataset identity from rawURL and syncs that exact URL.
func (i *Ingester) SyncFromURL(ctx context.Context, rawURL string) (domain.SyncResult, error) {
	region, param, sourceURL, err := i.locator.ResolveByURL(ctx, rawURL)
	if err != nil {
		i.recordOutcome(err)
		return domain.SyncResult{}, err
	}
	return i.SyncOne(ctx, region, param, sourceURL)
}

// SyncBatch syncs every region x parameter pair, outer loop over regions,
// both in the order given. A failed pair is recorded and iteration continues.
// A non-nil error is returned only when ctx is cancelled; the partial result
// is still returned.
func (i *Ingester) SyncBatch(ctx context.Context, regions []domain.Region, parameters []domain.Parameter) (domain.BatchResult, error) {
	if i.metrics != nil {
		i.metrics.BatchRunning.Inc()
		defer i.metrics.BatchRunning.Dec()
	}

	result := domain.BatchResult{
		Regions:    make([]string, 0, len(regions)),
		Parameters: make([]string, 0, len(parameters)),
		Runs:       []domain.SyncResult{},
		Failures:   []domain.SyncFailure{},
	}
	for _, r := range regions {
		result.Regions = append(result.Regions, r.Code)
	}
	for _, p := range parameters {
		result.Parameters = append(result.Parameters, p.Code)
	}

	for _, region := range regions {
		for _, param := range parameters {
			if err := ctx.Err(); err != nil {
				return result, fmt.Errorf("batch interrupted: %w", err)
			}
			run, err := i.SyncOne(ctx, region, param, "")
			if err != nil {
				i.logger.Error("dataset sync failed",
					"region", region.Code,
					"parameter", param.Code,
					"kind", domain.ErrorKind(err),
					"error", err,
				)
				result.Failures = append(result.Failures, domain.SyncFailure{
					Region:    region.Code,
					Parameter: param.Code,
					Kind:      domain.ErrorKind(err),
					Error:     err.Error(),
				})
				continue
			}
			result.Runs = append(result.Runs, run)
			result.TotalRows += run.RowCount
		}
	}
	return result, nil
}

// BatchRequest selects the pairs for SyncBatchByCodes. Empty filters select
// every known row.
type BatchRequest struct {
	RunID      string
	Regions    []string
	Parameters []string
}

// SyncBatchByCodes filters the reference data by code and runs SyncBatch.
// When nothing matches a filter, an empty result with an explanatory message
// is returned instead of an error.
func (i *Ingester) SyncBatchByCodes(ctx context.Context, req BatchRequest) (domain.BatchResult, error) {
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := i.logger.With("run_id", runID)

	allRegions, err := i.locator.Regions(ctx)
	if err != nil {
		return domain.BatchResult{}, err
	}
	allParams, err := i.locator.Parameters(ctx)
	if err != nil {
		return domain.BatchResult{}, err
	}

	regionCodes := dedupeCodes(req.Regions)
	paramCodes := dedupeCodes(req.Parameters)
	regions := filterByCode(allRegions, regionCodes, func(r domain.Region) string { return r.Code })
	params := filterByCode(allParams, paramCodes, func(p domain.Parameter) string { return p.Code })

	empty := domain.BatchResult{
		RunID:      runID,
		Regions:    codesOf(regions, func(r domain.Region) string { return r.Code }),
		Parameters: codesOf(params, func(p domain.Parameter) string { return p.Code }),
		Runs:       []domain.SyncResult{},
		Failures:   []domain.SyncFailure{},
	}
	switch {
	case len(regions) == 0 && len(regionCodes) > 0:
		empty.Message = MsgNoRegionsMatched
	case len(regions) == 0:
		empty.Message = MsgNoRegionsAvailable
	case len(params) == 0 && len(paramCodes) > 0:
		empty.Message = MsgNoParametersMatched
	case len(params) == 0:
		empty.Message = MsgNoParametersAvailable
	}
	if empty.Message != "" {
		log.Info("batch sync skipped", "reason", empty.Message)
		return empty, nil
	}

	log.Info("batch sync started", "regions", len(regions), "parameters", len(params))
	start := time.Now()
	result, err := i.SyncBatch(ctx, regions, params)
	result.RunID = runID
	log.Info("batch sync finished",
		"runs", len(result.Runs),
		"failures", len(result.Failures),
		"total_rows", result.TotalRows,
		"duration", time.Since(start),
	)
	return result, err
}

func (i *Ingester) recordOutcome(err error) {
	if i.metrics == nil {
		return
	}
	if err != nil {
		i.metrics.SyncsTotal.WithLabelValues(observability.OutcomeFailure).Inc()
		i.metrics.SyncFailures.WithLabelValues(domain.ErrorKind(err)).Inc()
		return
	}
	i.metrics.SyncsTotal.WithLabelValues(observability.OutcomeSuccess).Inc()
}

// dedupeCodes trims, drops blanks and removes case-insensitive duplicates,
// keeping first-seen order.
func dedupeCodes(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		key := strings.ToUpper(c)
		if c == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// filterByCode keeps the rows whose code matches one of codes, preserving
// reference order. An empty codes slice keeps every row.
func filterByCode[T any](rows []T, codes []string, code func(T) string) []T {
	if len(codes) == 0 {
		return rows
	}
	out := make([]T, 0, len(codes))
	for _, row := range rows {
		for _, c := range codes {
			if strings.EqualFold(code(row), c) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

func codesOf[T any](rows []T, code func(T) string) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, code(row))
	}
	return out
}
