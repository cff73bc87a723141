// Package domain models UK Met Office climate summary datasets.
//
// # Data Source
//
// The Met Office publishes regional monthly, seasonal and annual climate
// summaries as plain text files, one file per (parameter, region) pair:
//
//	<base>/<parameter>/<order>/<dataset slug>.txt
//	e.g. .../Tmax/date/UK.txt
//
// The order segment ("date" or "ranked") only controls row ordering at the
// source and plays no part in identifying a dataset.
//
// # Document Layout
//
// Each file opens with free-form metadata, one line of which is normally:
//
//	Last updated 15-Jan-2024 10:30
//
// Two timestamp layouts are accepted ("2-Jan-2006 15:04" and
// "2 January 2006 15:04"); timestamps carry no zone and are read in the
// configured source location. The table starts at the first line beginning
// with "year":
//
//	year    jan    feb  ...    win    spr    sum    aut    ann
//	2023    7.9    9.7  ...    8.3   13.2   20.9   15.2   14.5
//	2024    7.1    ---  ...    ---    ---    ---    ---    ---
//
// Cells are whitespace-delimited. "---", "NA", "na" and empty cells denote
// missing values. Rows shorter than the header leave the trailing columns
// missing; rows wider than the header are rejected.
//
// # Period Schedule
//
// Every data row expands into at most 17 observations: twelve months
// (period type "month"), four meteorological seasons win/spr/sum/aut
// ("season") and the annual figure ann ("annual"). Missing or non-numeric
// cells produce no observation.
//
// # Natural Key
//
// Observations are identified by (region, parameter, year, period type,
// period). Re-ingesting a dataset overwrites value, source_last_updated and
// fetched_at for existing keys instead of creating duplicates.
package domain
