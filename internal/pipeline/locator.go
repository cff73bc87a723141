package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// Locator maps codes and URLs to reference rows and builds canonical
// dataset URLs.
type Locator struct {
	refs    ReferenceStore
	baseURL string
}

// NewLocator creates a Locator that builds URLs under baseURL.
func NewLocator(refs ReferenceStore, baseURL string) *Locator {
	return &Locator{refs: refs, baseURL: baseURL}
}

// Regions lists all known regions.
func (l *Locator) Regions(ctx context.Context) ([]domain.Region, error) {
	regions, err := l.refs.ListRegions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	return regions, nil
}

// Parameters lists all known parameters.
func (l *Locator) Parameters(ctx context.Context) ([]domain.Parameter, error) {
	params, err := l.refs.ListParameters(ctx)
	if err != nil {
		return nil, fmt.Errorf("list parameters: %w", err)
	}
	return params, nil
}

// FindRegion looks up a region by code, case-insensitively.
func (l *Locator) FindRegion(ctx context.Context, code string) (domain.Region, error) {
	regions, err := l.Regions(ctx)
	if err != nil {
		return domain.Region{}, err
	}
	code = strings.TrimSpace(code)
	for _, r := range regions {
		if strings.EqualFold(r.Code, code) {
			return r, nil
		}
	}
	return domain.Region{}, fmt.Errorf("%w: region %q", domain.ErrUnknownReference, code)
}

// FindParameter looks up a parameter by code, case-insensitively.
func (l *Locator) FindParameter(ctx context.Context, code string) (domain.Parameter, error) {
	params, err := l.Parameters(ctx)
	if err != nil {
		return domain.Parameter{}, err
	}
	code = strings.TrimSpace(code)
	for _, p := range params {
		if strings.EqualFold(p.Code, code) {
			return p, nil
		}
	}
	return domain.Parameter{}, fmt.Errorf("%w: parameter %q", domain.ErrUnknownReference, code)
}

// ResolveByCodes looks up a region and parameter by code.
func (l *Locator) ResolveByCodes(ctx context.Context, regionCode, parameterCode string) (domain.Region, domain.Parameter, error) {
	region, err := l.FindRegion(ctx, regionCode)
	if err != nil {
		return domain.Region{}, domain.Parameter{}, err
	}
	param, err := l.FindParameter(ctx, parameterCode)
	if err != nil {
		return domain.Region{}, domain.Parameter{}, err
	}
	return region, param, nil
}

// ResolveByURL decodes .../<parameter>/<order>/<slug>.txt and resolves the
// parameter by code and the region by dataset slug, both case-insensitively.
// The URL is returned with surrounding whitespace trimmed and otherwise
// unchanged, so the caller re-fetches exactly what was supplied.
func (l *Locator) ResolveByURL(ctx context.Context, rawURL string) (domain.Region, domain.Parameter, string, error) {
	rawURL = strings.TrimSpace(rawURL)
	ids, err := domain.InferDatasetIdentifiers(rawURL)
	if err != nil {
		return domain.Region{}, domain.Parameter{}, "", err
	}

	param, err := l.FindParameter(ctx, ids.ParameterCode)
	if err != nil {
		return domain.Region{}, domain.Parameter{}, "", err
	}

	regions, err := l.Regions(ctx)
	if err != nil {
		return domain.Region{}, domain.Parameter{}, "", err
	}
	for _, r := range regions {
		if strings.EqualFold(r.DatasetSlug, ids.DatasetSlug) {
			return r, param, rawURL, nil
		}
	}
	return domain.Region{}, domain.Parameter{}, "", fmt.Errorf("%w: region dataset slug %q", domain.ErrUnknownReference, ids.DatasetSlug)
}

// BuildURL composes the canonical dataset URL. An empty order means domain.DefaultOrder.
func (l *Locator) BuildURL(parameterCode, datasetSlug, order string) string {
	return domain.BuildDatasetURL(l.baseURL, parameterCode, datasetSlug, order)
}
