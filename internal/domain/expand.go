package domain

import (
	"math"
	"time"
)

// ExpandRecords turns each parsed row into one observation per recognized
// period column holding a numeric value. Missing and non-numeric cells are
// skipped silently. All records share lastUpdated and a single fetched_at
// taken when expansion starts.
func ExpandRecords(table ParsedTable, region Region, parameter Parameter, lastUpdated *time.Time) []ObservationRecord {
	fetchedAt := fetchTime()
	records := make([]ObservationRecord, 0, len(table.Rows)*17)

	for _, row := range table.Rows {
		for _, group := range periodSchedule {
			for _, col := range group.columns {
				cell, ok := row.Cells[col]
				if !ok || !cell.Valid || math.IsNaN(cell.Value) || math.IsInf(cell.Value, 0) {
					continue
				}
				records = append(records, ObservationRecord{
					RegionID:          region.ID,
					ParameterID:       parameter.ID,
					RegionCode:        region.Code,
					ParameterCode:     parameter.Code,
					Year:              row.Year,
					PeriodType:        group.periodType,
					Period:            col,
					Value:             cell.Value,
					SourceLastUpdated: lastUpdated,
					FetchedAt:         fetchedAt,
				})
			}
		}
	}
	return records
}
