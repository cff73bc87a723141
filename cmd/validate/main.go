// Command validate checks a locally saved Met Office dataset file without a
// database or network. It parses the document, expands it into observation
// records and verifies the expansion against the parsed table.
//
// Usage:
//
//	go run ./cmd/validate -file data/Tmax_date_UK.txt -region UK -parameter Tmax
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	file := flag.String("file", "", "path to a dataset text file")
	regionCode := flag.String("region", "UK", "region code the file belongs to")
	parameterCode := flag.String("parameter", "Tmax", "parameter code the file belongs to")
	tz := flag.String("tz", "Europe/London", "location for naive Last updated timestamps")
	verbose := flag.Bool("v", false, "log parser diagnostics")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*file, *regionCode, *parameterCode, *tz, *verbose); code != 0 {
		os.Exit(code)
	}
}

func run(path, regionCode, parameterCode, tz string, verbose bool) int {
	region, ok := findRegion(regionCode)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown region %q\n", regionCode)
		return 1
	}
	parameter, ok := findParameter(parameterCode)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown parameter %q\n", parameterCode)
		return 1
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid timezone %q: %v\n", tz, err)
		return 1
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		return 1
	}

	var out io.Writer = io.Discard
	if verbose {
		out = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))

	parse := &phase{name: "parse"}
	table, err := domain.ParseDataset(string(data), loc, logger)
	if err != nil {
		parse.errorf("%v", err)
		report([]*phase{parse})
		return 1
	}
	if len(table.Rows) == 0 {
		parse.errorf("no data rows")
	}
	if table.LastUpdated == nil {
		parse.errorf("no parsable Last updated line")
	}

	expand := &phase{name: "expand"}
	records := domain.ExpandRecords(table, region, parameter, table.LastUpdated)
	checkExpansion(expand, table, records)

	fmt.Printf("file:          %s\n", path)
	fmt.Printf("dataset:       %s / %s\n", region.Code, parameter.Code)
	fmt.Printf("columns:       %s\n", strings.Join(table.Columns, " "))
	fmt.Printf("rows:          %d", len(table.Rows))
	if len(table.Rows) > 0 {
		fmt.Printf(" (%d-%d)", table.Rows[0].Year, table.Rows[len(table.Rows)-1].Year)
	}
	fmt.Println()
	if table.LastUpdated != nil {
		fmt.Printf("last updated:  %s\n", table.LastUpdated.Format(time.RFC3339))
	}
	fmt.Printf("invalid cells: %d\n", table.InvalidCells)
	counts := countByPeriodType(records)
	fmt.Printf("records:       %d (month %d, season %d, annual %d)\n",
		len(records), counts[domain.PeriodMonth], counts[domain.PeriodSeason], counts[domain.PeriodAnnual])

	if !report([]*phase{parse, expand}) {
		return 1
	}
	return 0
}

// checkExpansion verifies one record per valid period cell and no duplicate
// natural keys.
func checkExpansion(p *phase, table domain.ParsedTable, records []domain.ObservationRecord) {
	want := 0
	for _, row := range table.Rows {
		for col, cell := range row.Cells {
			if _, ok := domain.PeriodTypeOf(col); ok && cell.Valid {
				want++
			}
		}
	}
	if len(records) != want {
		p.errorf("expanded %d records, table has %d valid period cells", len(records), want)
	}

	seen := make(map[domain.RecordKey]bool, len(records))
	for _, r := range records {
		k := r.Key()
		if seen[k] {
			p.errorf("duplicate record %d/%s", r.Year, r.Period)
		}
		seen[k] = true
	}
}

func countByPeriodType(records []domain.ObservationRecord) map[domain.PeriodType]int {
	counts := make(map[domain.PeriodType]int, 3)
	for _, r := range records {
		counts[r.PeriodType]++
	}
	return counts
}

func report(phases []*phase) bool {
	ok := true
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		ok = false
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	return ok
}

func findRegion(code string) (domain.Region, bool) {
	for _, r := range domain.SeedRegions {
		if strings.EqualFold(r.Code, code) || strings.EqualFold(r.DatasetSlug, code) {
			return r, true
		}
	}
	return domain.Region{}, false
}

func findParameter(code string) (domain.Parameter, bool) {
	for _, p := range domain.SeedParameters {
		if strings.EqualFold(p.Code, code) {
			return p, true
		}
	}
	return domain.Parameter{}, false
}
