package domain

import (
	"strings"
	"time"
)

// PeriodType classifies the time granularity of an observation.
type PeriodType string

const (
	PeriodMonth  PeriodType = "month"
	PeriodSeason PeriodType = "season"
	PeriodAnnual PeriodType = "annual"
)

// Column tokens recognized in dataset headers.
const (
	YearColumn   = "year"
	AnnualColumn = "ann"
)

var (
	MonthColumns  = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}
	SeasonColumns = []string{"win", "spr", "sum", "aut"}
)

// periodGroup pairs a period type with the column tokens that expand into it.
type periodGroup struct {
	periodType PeriodType
	columns    []string
}

// periodSchedule is the fixed expansion order applied to every data row.
var periodSchedule = []periodGroup{
	{periodType: PeriodMonth, columns: MonthColumns},
	{periodType: PeriodSeason, columns: SeasonColumns},
	{periodType: PeriodAnnual, columns: []string{AnnualColumn}},
}

// PeriodTypeOf reports which period type a lower-cased column token expands
// into. The year column and unrecognized tokens report false.
func PeriodTypeOf(column string) (PeriodType, bool) {
	for _, group := range periodSchedule {
		for _, col := range group.columns {
			if col == column {
				return group.periodType, true
			}
		}
	}
	return "", false
}

// ParsePeriodType validates a period type token, case-insensitively.
func ParsePeriodType(s string) (PeriodType, bool) {
	switch PeriodType(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodMonth:
		return PeriodMonth, true
	case PeriodSeason:
		return PeriodSeason, true
	case PeriodAnnual:
		return PeriodAnnual, true
	}
	return "", false
}

// ObservationRecord is a single value for one region, parameter, year and period.
type ObservationRecord struct {
	RegionID          int64      `json:"-"`
	ParameterID       int64      `json:"-"`
	RegionCode        string     `json:"region_code"`
	ParameterCode     string     `json:"parameter_code"`
	Year              int        `json:"year"`
	PeriodType        PeriodType `json:"period_type"`
	Period            string     `json:"period"`
	Value             float64    `json:"value"`
	SourceLastUpdated *time.Time `json:"source_last_updated"`
	FetchedAt         time.Time  `json:"fetched_at"`
}

// RecordKey is the natural key of an observation.
type RecordKey struct {
	RegionCode    string
	ParameterCode string
	Year          int
	PeriodType    PeriodType
	Period        string
}

// Key returns the record's natural key.
func (r ObservationRecord) Key() RecordKey {
	return RecordKey{
		RegionCode:    r.RegionCode,
		ParameterCode: r.ParameterCode,
		Year:          r.Year,
		PeriodType:    r.PeriodType,
		Period:        r.Period,
	}
}

// StoredRecord is a persisted observation joined with its reference names.
type StoredRecord struct {
	ID int64 `json:"id"`
	ObservationRecord
	RegionName    string `json:"region_name"`
	ParameterName string `json:"parameter_name"`
}

// RecordFilter narrows record queries. Codes and period must already be in
// canonical case; zero values mean "no filter".
type RecordFilter struct {
	RegionCode    string
	ParameterCode string
	PeriodType    PeriodType
	Period        string
	StartYear     int
	EndYear       int
	Limit         int
	Offset        int
}

// RecordPage is one page of query results plus the unpaginated total.
type RecordPage struct {
	Count   int            `json:"count"`
	Results []StoredRecord `json:"results"`
}

// RecordSummary aggregates values over a filtered record set. Aggregates are
// nil when Count is zero.
type RecordSummary struct {
	Count     int      `json:"count"`
	MinValue  *float64 `json:"min_value,omitempty"`
	MaxValue  *float64 `json:"max_value,omitempty"`
	AvgValue  *float64 `json:"avg_value,omitempty"`
	FirstYear *int     `json:"first_year,omitempty"`
	LastYear  *int     `json:"last_year,omitempty"`
}

// SyncResult describes one completed dataset sync.
type SyncResult struct {
	Region      string     `json:"region"`
	Parameter   string     `json:"parameter"`
	RowCount    int        `json:"rows"`
	SourceURL   string     `json:"source_url"`
	LastUpdated *time.Time `json:"last_updated"`
}

// SyncFailure records a failed (region, parameter) pair within a batch.
type SyncFailure struct {
	Region    string `json:"region"`
	Parameter string `json:"parameter"`
	Kind      string `json:"kind"`
	Error     string `json:"error"`
}

// BatchResult aggregates a multi-region, multi-parameter sync. TotalRows sums
// RowCount over Runs only.
type BatchResult struct {
	RunID      string        `json:"run_id"`
	Regions    []string      `json:"regions"`
	Parameters []string      `json:"parameters"`
	Runs       []SyncResult  `json:"runs"`
	Failures   []SyncFailure `json:"failures"`
	TotalRows  int           `json:"total_rows"`
	Message    string        `json:"message,omitempty"`
}
