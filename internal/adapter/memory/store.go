// Package memory is an in-process RecordStore used by tests and by
// STORE_DRIVER=memory deployments.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// Store keeps reference data and observations in maps guarded by a RWMutex.
// The zero value is not usable; call New.
type Store struct {
	mu         sync.RWMutex
	regions    map[string]domain.Region
	parameters map[string]domain.Parameter
	records    map[domain.RecordKey]domain.StoredRecord
	nextRefID  int64
	nextRecID  int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		regions:    make(map[string]domain.Region),
		parameters: make(map[string]domain.Parameter),
		records:    make(map[domain.RecordKey]domain.StoredRecord),
	}
}

// CheckReadiness always succeeds.
func (s *Store) CheckReadiness(_ context.Context) error {
	return nil
}

// SeedReferenceData inserts or updates regions and parameters by code.
// Existing rows keep their IDs.
func (s *Store) SeedReferenceData(_ context.Context, regions []domain.Region, parameters []domain.Parameter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range regions {
		if existing, ok := s.regions[r.Code]; ok {
			r.ID = existing.ID
		} else {
			s.nextRefID++
			r.ID = s.nextRefID
		}
		s.regions[r.Code] = r
	}
	for _, p := range parameters {
		if existing, ok := s.parameters[p.Code]; ok {
			p.ID = existing.ID
		} else {
			s.nextRefID++
			p.ID = s.nextRefID
		}
		s.parameters[p.Code] = p
	}
	return nil
}

// ListRegions returns all regions ordered by name.
func (s *Store) ListRegions(_ context.Context) ([]domain.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Region, 0, len(s.regions))
	for _, r := range s.regions {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b domain.Region) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

// ListParameters returns all parameters ordered by name.
func (s *Store) ListParameters(_ context.Context) ([]domain.Parameter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Parameter, 0, len(s.parameters))
	for _, p := range s.parameters {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.Parameter) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

// UpsertRecords writes records keyed by natural key, overwriting value,
// source_last_updated and fetched_at on conflict. It returns len(records).
func (s *Store) UpsertRecords(ctx context.Context, records []domain.ObservationRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		key := rec.Key()
		stored, ok := s.records[key]
		if !ok {
			s.nextRecID++
			stored.ID = s.nextRecID
		}
		stored.ObservationRecord = rec
		stored.RegionName = s.regions[rec.RegionCode].Name
		stored.ParameterName = s.parameters[rec.ParameterCode].Name
		s.records[key] = stored
	}
	return len(records), nil
}

// ListRecords returns one page of matching records ordered by year and
// period, with the unpaginated count.
func (s *Store) ListRecords(_ context.Context, filter domain.RecordFilter) (domain.RecordPage, error) {
	matched := s.match(filter)
	slices.SortFunc(matched, compareRecords)

	page := domain.RecordPage{Count: len(matched), Results: []domain.StoredRecord{}}
	start := min(max(filter.Offset, 0), len(matched))
	end := len(matched)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(matched))
	}
	page.Results = append(page.Results, matched[start:end]...)
	return page, nil
}

// Summarize aggregates the values of matching records. Aggregates stay nil
// when nothing matches.
func (s *Store) Summarize(_ context.Context, filter domain.RecordFilter) (domain.RecordSummary, error) {
	matched := s.match(filter)
	summary := domain.RecordSummary{Count: len(matched)}
	if len(matched) == 0 {
		return summary, nil
	}

	minV, maxV, sum := matched[0].Value, matched[0].Value, 0.0
	first, last := matched[0].Year, matched[0].Year
	for _, r := range matched {
		minV = min(minV, r.Value)
		maxV = max(maxV, r.Value)
		first = min(first, r.Year)
		last = max(last, r.Year)
		sum += r.Value
	}
	avg := sum / float64(len(matched))
	summary.MinValue, summary.MaxValue, summary.AvgValue = &minV, &maxV, &avg
	summary.FirstYear, summary.LastYear = &first, &last
	return summary, nil
}

func (s *Store) match(f domain.RecordFilter) []domain.StoredRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.StoredRecord
	for _, r := range s.records {
		switch {
		case f.RegionCode != "" && r.RegionCode != f.RegionCode,
			f.ParameterCode != "" && r.ParameterCode != f.ParameterCode,
			f.PeriodType != "" && r.PeriodType != f.PeriodType,
			f.Period != "" && r.Period != f.Period,
			f.StartYear > 0 && r.Year < f.StartYear,
			f.EndYear > 0 && r.Year > f.EndYear:
			continue
		}
		out = append(out, r)
	}
	return out
}

func compareRecords(a, b domain.StoredRecord) int {
	return cmp.Or(
		cmp.Compare(a.Year, b.Year),
		cmp.Compare(a.Period, b.Period),
		cmp.Compare(a.ParameterCode, b.ParameterCode),
		cmp.Compare(a.RegionCode, b.RegionCode),
		cmp.Compare(a.PeriodType, b.PeriodType),
	)
}
