package metoffice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/observability"
)

// maxBodyBytes caps a single dataset download. Published series are well under 100 KiB.
const maxBodyBytes = 8 << 20

// Client downloads dataset text files from the Met Office (or any mirror).
// It implements pipeline.Fetcher.
type Client struct {
	httpClient *http.Client
	maxBytes   int64
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a fetcher whose requests are bounded by timeout.
func NewClient(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxBytes: maxBodyBytes,
		metrics:  metrics,
		logger:   logger,
	}
}

// FetchText retrieves the document at rawURL. Transport errors and non-2xx
// statuses are reported as domain.ErrFetchFailed carrying the URL, as is a
// body larger than the download cap. The URL is returned unchanged alongside
// the text.
func (c *Client) FetchText(ctx context.Context, rawURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", rawURL, fmt.Errorf("%w: %s: %v", domain.ErrFetchFailed, rawURL, err)
	}
	req.Header.Set("Accept", "text/plain")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return "", rawURL, fmt.Errorf("%w: %s: %v", domain.ErrFetchFailed, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", rawURL, fmt.Errorf("%w: %s: status %d", domain.ErrFetchFailed, rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return "", rawURL, fmt.Errorf("%w: %s: read body: %v", domain.ErrFetchFailed, rawURL, err)
	}
	if int64(len(body)) > c.maxBytes {
		return "", rawURL, fmt.Errorf("%w: %s: body exceeds %d bytes", domain.ErrFetchFailed, rawURL, c.maxBytes)
	}

	c.logger.Debug("dataset fetched", "url", rawURL, "bytes", len(body), "duration", time.Since(start))
	return string(body), rawURL, nil
}
