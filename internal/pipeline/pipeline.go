// Package pipeline composes dataset location, download, parsing, expansion
// and persistence into single-dataset and batch sync operations.
package pipeline

import (
	"context"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// ReferenceStore lists the seeded regions and parameters.
type ReferenceStore interface {
	ListRegions(ctx context.Context) ([]domain.Region, error)
	ListParameters(ctx context.Context) ([]domain.Parameter, error)
}

// RecordStore persists observations by natural key and returns the number
// of records submitted.
type RecordStore interface {
	UpsertRecords(ctx context.Context, records []domain.ObservationRecord) (int, error)
}

// Fetcher retrieves dataset text. It returns the URL actually requested.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, string, error)
}

// Publisher announces completed syncs to downstream consumers.
type Publisher interface {
	PublishSync(ctx context.Context, result domain.SyncResult) error
}
