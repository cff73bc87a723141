// Command ingest runs one ingestion pass and exits. It is the entry point an
// external scheduler invokes.
//
// Usage:
//
//	go run ./cmd/ingest -regions UK,Wales -parameters Tmax,Rainfall
//	go run ./cmd/ingest -url https://www.metoffice.gov.uk/.../Tmax/date/UK.txt
//
// With no flags every region and parameter is synced. The result is printed
// as JSON on stdout; the exit status is 1 when any dataset failed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/couchcryptid/climate-data-etl/internal/app"
	"github.com/couchcryptid/climate-data-etl/internal/config"
	"github.com/couchcryptid/climate-data-etl/internal/observability"
	"github.com/couchcryptid/climate-data-etl/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	regions := flag.String("regions", "", "comma-separated region codes (default: all)")
	parameters := flag.String("parameters", "", "comma-separated parameter codes (default: all)")
	rawURL := flag.String("url", "", "sync a single dataset URL instead of a batch")
	flag.Parse()

	if *rawURL != "" && (*regions != "" || *parameters != "") {
		fmt.Fprintln(os.Stderr, "-url cannot be combined with -regions or -parameters")
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, logger, *rawURL, splitCodes(*regions), splitCodes(*parameters)))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, rawURL string, regions, parameters []string) int {
	a, err := app.Build(ctx, cfg, logger, observability.NewMetrics())
	if err != nil {
		logger.Error("failed to initialise", "error", err)
		return 1
	}
	defer a.Close()

	if rawURL != "" {
		result, err := a.Ingester.SyncFromURL(ctx, rawURL)
		if err != nil {
			logger.Error("ingestion failed", "url", rawURL, "error", err)
			return 1
		}
		return printJSON(result, 0)
	}

	result, err := a.Ingester.SyncBatchByCodes(ctx, pipeline.BatchRequest{Regions: regions, Parameters: parameters})
	if err != nil {
		logger.Error("batch ingestion failed", "error", err)
		printJSON(result, 1)
		return 1
	}
	code := 0
	if len(result.Failures) > 0 {
		code = 1
	}
	return printJSON(result, code)
}

func printJSON(v any, code int) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, "encode result:", err)
		return 1
	}
	return code
}

func splitCodes(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
