package domain

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// lastUpdatedLayouts are tried in order; the first that parses wins.
var lastUpdatedLayouts = []string{
	"2-Jan-2006 15:04",
	"2 January 2006 15:04",
}

// missingTokens mark an absent cell. Matching is exact.
var missingTokens = map[string]bool{
	"":    true,
	"---": true,
	"NA":  true,
	"na":  true,
	"N/A": true,
	"n/a": true,
	"NaN": true,
	"nan": true,
}

const lastUpdatedPrefix = "last updated"

// Cell is one decoded table value. Valid is false for missing or
// non-numeric cells; Raw keeps the source token for diagnostics.
type Cell struct {
	Raw   string
	Value float64
	Valid bool
}

// DatasetRow is one year of a parsed table, keyed by lower-cased column name.
type DatasetRow struct {
	Year  int
	Cells map[string]Cell
}

// ParsedTable is the decoded tabular block of a dataset document.
type ParsedTable struct {
	Columns      []string
	Rows         []DatasetRow
	LastUpdated  *time.Time
	InvalidCells int
}

// ParseDataset locates the header row and optional "Last updated" line in a
// dataset document and decodes the table that follows. Naive timestamps are
// interpreted in loc (UTC when nil).
func ParseDataset(text string, loc *time.Location, logger *slog.Logger) (ParsedTable, error) {
	if loc == nil {
		loc = time.UTC
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	headerIdx := -1
	var lastUpdated *time.Time
	for i, line := range lines {
		normalized := strings.ToLower(strings.TrimSpace(line))
		if strings.HasPrefix(normalized, lastUpdatedPrefix) {
			lastUpdated = parseLastUpdated(line, loc, logger)
		}
		if strings.HasPrefix(normalized, YearColumn) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return ParsedTable{}, fmt.Errorf("%w: no line starting with %q", ErrHeaderNotFound, YearColumn)
	}

	table, err := decodeTable(lines[headerIdx:], headerIdx+1, logger)
	if err != nil {
		return ParsedTable{}, err
	}
	table.LastUpdated = lastUpdated
	return table, nil
}

// parseLastUpdated extracts the timestamp following the "Last updated"
// prefix. An unparsable value is logged and yields nil.
func parseLastUpdated(line string, loc *time.Location, logger *slog.Logger) *time.Time {
	trimmed := strings.TrimSpace(line)
	value := strings.TrimSpace(trimmed[len(lastUpdatedPrefix):])
	value = strings.TrimSpace(strings.TrimPrefix(value, ":"))
	value = strings.Join(strings.Fields(value), " ")

	for _, layout := range lastUpdatedLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return &t
		}
	}
	logger.Warn("failed to parse last updated line", "line", trimmed)
	return nil
}

// decodeTable reads a whitespace-delimited block: one header row followed by
// one row per year. firstLine is the 1-based document line of the header.
func decodeTable(lines []string, firstLine int, logger *slog.Logger) (ParsedTable, error) {
	header := strings.Fields(strings.ToLower(lines[0]))
	seen := make(map[string]bool, len(header))
	for _, col := range header {
		if seen[col] {
			return ParsedTable{}, fmt.Errorf("%w: duplicate column %q in header", ErrDecodeFailed, col)
		}
		seen[col] = true
	}
	if len(header) == 0 || header[0] != YearColumn {
		return ParsedTable{}, fmt.Errorf("%w: header must start with a %q column", ErrDecodeFailed, YearColumn)
	}

	table := ParsedTable{Columns: header}
	for i, line := range lines[1:] {
		lineNo := firstLine + i + 1
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) > len(header) {
			return ParsedTable{}, fmt.Errorf("%w: line %d has %d fields, header has %d",
				ErrDecodeFailed, lineNo, len(fields), len(header))
		}

		year, err := strconv.Atoi(fields[0])
		if err != nil || year <= 0 {
			return ParsedTable{}, fmt.Errorf("%w: line %d: invalid year %q", ErrDecodeFailed, lineNo, fields[0])
		}

		row := DatasetRow{Year: year, Cells: make(map[string]Cell, len(header)-1)}
		for c, col := range header[1:] {
			raw := ""
			if c+1 < len(fields) {
				raw = fields[c+1]
			}
			cell := decodeCell(raw)
			if !cell.Valid && !missingTokens[raw] {
				table.InvalidCells++
				logger.Debug("dropping non-numeric cell", "line", lineNo, "column", col, "value", raw)
			}
			row.Cells[col] = cell
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func decodeCell(raw string) Cell {
	if missingTokens[raw] {
		return Cell{Raw: raw}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Cell{Raw: raw}
	}
	return Cell{Raw: raw, Value: v, Valid: true}
}
