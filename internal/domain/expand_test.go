package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testRegion    = Region{ID: 1, Code: "UK", Name: "United Kingdom", DatasetSlug: "UK"}
	testParameter = Parameter{ID: 2, Code: "Tmax", Name: "Mean daily maximum temperature", Units: "°C"}
)

func freezeClock(t *testing.T) *clockwork.FakeClock {
	t.Helper()
	fake := clockwork.NewFakeClockAt(time.Date(2024, time.February, 1, 6, 0, 0, 0, time.UTC))
	SetClock(fake)
	t.Cleanup(func() { SetClock(nil) })
	return fake
}

func TestExpandRecords_FullRow(t *testing.T) {
	fake := freezeClock(t)

	table, err := ParseDataset(sampleDataset, time.UTC, discardLogger())
	require.NoError(t, err)

	records := ExpandRecords(ParsedTable{Rows: table.Rows[:1]}, testRegion, testParameter, table.LastUpdated)
	require.Len(t, records, 17)

	byType := map[PeriodType]int{}
	for _, r := range records {
		byType[r.PeriodType]++
		assert.Equal(t, 2022, r.Year)
		assert.Equal(t, "UK", r.RegionCode)
		assert.Equal(t, "Tmax", r.ParameterCode)
		assert.Equal(t, int64(1), r.RegionID)
		assert.Equal(t, int64(2), r.ParameterID)
		assert.Equal(t, fake.Now(), r.FetchedAt)
		assert.Same(t, table.LastUpdated, r.SourceLastUpdated)
	}
	assert.Equal(t, map[PeriodType]int{PeriodMonth: 12, PeriodSeason: 4, PeriodAnnual: 1}, byType)
}

func TestExpandRecords_SkipsMissingCells(t *testing.T) {
	freezeClock(t)

	text := "Last updated: 15-Jan-2024 10:30\n" +
		"year jan feb mar apr may jun jul aug sep oct nov dec win spr sum aut ann\n" +
		"2024 5.1 --- --- --- --- --- --- --- --- --- --- --- --- --- --- --- 9.9\n"
	table, err := ParseDataset(text, time.UTC, discardLogger())
	require.NoError(t, err)

	records := ExpandRecords(table, testRegion, testParameter, table.LastUpdated)
	require.Len(t, records, 2)

	assert.Equal(t, "jan", records[0].Period)
	assert.Equal(t, PeriodMonth, records[0].PeriodType)
	assert.InDelta(t, 5.1, records[0].Value, 1e-9)

	assert.Equal(t, "ann", records[1].Period)
	assert.Equal(t, PeriodAnnual, records[1].PeriodType)
	assert.InDelta(t, 9.9, records[1].Value, 1e-9)

	for _, r := range records {
		assert.NotEqual(t, "feb", r.Period)
	}
}

func TestExpandRecords_CountMatchesNumericPeriodColumns(t *testing.T) {
	freezeClock(t)

	// "extra" is not a period column; "x" is garbage; "NA" is missing.
	table, err := ParseDataset("year jan win extra ann spr\n1990 1.0 x 5.0 NA 2.5\n1991\n", time.UTC, discardLogger())
	require.NoError(t, err)

	records := ExpandRecords(table, testRegion, testParameter, nil)
	require.Len(t, records, 2)
	assert.Equal(t, "jan", records[0].Period)
	assert.Equal(t, "spr", records[1].Period)
	assert.Equal(t, PeriodSeason, records[1].PeriodType)
	assert.Nil(t, records[1].SourceLastUpdated)
}

func TestExpandRecords_Empty(t *testing.T) {
	records := ExpandRecords(ParsedTable{}, testRegion, testParameter, nil)
	assert.Empty(t, records)
}

func TestExpandRecords_SharedFetchedAt(t *testing.T) {
	fake := freezeClock(t)
	table, err := ParseDataset(sampleDataset, time.UTC, discardLogger())
	require.NoError(t, err)

	first := ExpandRecords(table, testRegion, testParameter, nil)
	fake.Advance(time.Hour)
	second := ExpandRecords(table, testRegion, testParameter, nil)

	require.NotEmpty(t, first)
	require.NotEmpty(t, second)
	for _, r := range first {
		assert.Equal(t, first[0].FetchedAt, r.FetchedAt)
	}
	assert.Equal(t, time.Hour, second[0].FetchedAt.Sub(first[0].FetchedAt))
}

func TestExpandRecords_FetchedAtMicrosecondUTC(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.July, 1, 9, 0, 0, 123456789, london)))
	t.Cleanup(func() { SetClock(nil) })

	table, err := ParseDataset(sampleDataset, time.UTC, discardLogger())
	require.NoError(t, err)
	records := ExpandRecords(table, testRegion, testParameter, nil)
	require.NotEmpty(t, records)

	want := time.Date(2024, time.July, 1, 8, 0, 0, 123456000, time.UTC)
	assert.Equal(t, want, records[0].FetchedAt)
	assert.Equal(t, time.UTC, records[0].FetchedAt.Location())
}

func TestRecordKey(t *testing.T) {
	r := ObservationRecord{RegionCode: "UK", ParameterCode: "Tmax", Year: 2020, PeriodType: PeriodSeason, Period: "win", Value: 4.2}
	assert.Equal(t, RecordKey{RegionCode: "UK", ParameterCode: "Tmax", Year: 2020, PeriodType: PeriodSeason, Period: "win"}, r.Key())
}

func TestParsePeriodType(t *testing.T) {
	pt, ok := ParsePeriodType(" Season ")
	assert.True(t, ok)
	assert.Equal(t, PeriodSeason, pt)

	_, ok = ParsePeriodType("weekly")
	assert.False(t, ok)
}

func TestPeriodTypeOf(t *testing.T) {
	tests := []struct {
		column string
		want   PeriodType
		ok     bool
	}{
		{"jan", PeriodMonth, true},
		{"dec", PeriodMonth, true},
		{"win", PeriodSeason, true},
		{"ann", PeriodAnnual, true},
		{"year", "", false},
		{"extra", "", false},
	}
	for _, tc := range tests {
		got, ok := PeriodTypeOf(tc.column)
		assert.Equal(t, tc.ok, ok, tc.column)
		assert.Equal(t, tc.want, got, tc.column)
	}
}
