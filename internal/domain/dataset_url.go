package domain

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// DefaultOrder is the routing segment used when building dataset URLs.
const DefaultOrder = "date"

// DatasetIdentifiers are the tokens embedded in a dataset URL.
type DatasetIdentifiers struct {
	ParameterCode string
	DatasetSlug   string
}

// BuildDatasetURL composes <base>/<parameter>/<order>/<slug>.txt.
func BuildDatasetURL(baseURL, parameterCode, datasetSlug, order string) string {
	if order == "" {
		order = DefaultOrder
	}
	return fmt.Sprintf("%s/%s/%s/%s.txt", strings.TrimRight(baseURL, "/"), parameterCode, order, datasetSlug)
}

// InferDatasetIdentifiers decodes the parameter code and dataset slug from a
// URL whose last three path segments are <parameter>/<order>/<slug>.<ext>.
func InferDatasetIdentifiers(rawURL string) (DatasetIdentifiers, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return DatasetIdentifiers{}, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return DatasetIdentifiers{}, fmt.Errorf("%w: dataset url must include scheme and host", ErrMalformedURL)
	}

	// u.Path is already percent-decoded.
	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 3 {
		return DatasetIdentifiers{}, fmt.Errorf("%w: path %q is not <parameter>/<order>/<dataset>.txt", ErrMalformedURL, u.Path)
	}

	filename := parts[len(parts)-1]
	ext := path.Ext(filename)
	slug := strings.TrimSuffix(filename, ext)
	if ext == "" || slug == "" {
		return DatasetIdentifiers{}, fmt.Errorf("%w: dataset url must point to a .txt file", ErrMalformedURL)
	}

	return DatasetIdentifiers{
		ParameterCode: parts[len(parts)-3],
		DatasetSlug:   slug,
	}, nil
}
