package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDatasetURL(t *testing.T) {
	assert.Equal(t, "https://host/data/Tmax/date/UK.txt", BuildDatasetURL("https://host/data/", "Tmax", "UK", ""))
	assert.Equal(t, "https://host/Rainfall/ranked/England_N.txt", BuildDatasetURL("https://host", "Rainfall", "England_N", "ranked"))
}

func TestInferDatasetIdentifiers(t *testing.T) {
	tests := []struct {
		url       string
		parameter string
		slug      string
	}{
		{"https://host/Tmax/date/UK.txt", "Tmax", "UK"},
		{"https://www.metoffice.gov.uk/pub/data/weather/uk/climate/datasets/Rainfall/ranked/England_N.txt", "Rainfall", "England_N"},
		{"http://host//Sunshine//date//East%20Anglia.txt?x=1", "Sunshine", "East Anglia"},
	}
	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			ids, err := InferDatasetIdentifiers(tc.url)
			require.NoError(t, err)
			assert.Equal(t, tc.parameter, ids.ParameterCode)
			assert.Equal(t, tc.slug, ids.DatasetSlug)
		})
	}
}

func TestInferDatasetIdentifiers_Malformed(t *testing.T) {
	tests := []string{
		"https://host/only/two.txt",
		"/Tmax/date/UK.txt",
		"host/Tmax/date/UK.txt",
		"https://host/Tmax/date/UK",
		"https://host/Tmax/date/.txt",
		"://bad",
	}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := InferDatasetIdentifiers(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedURL)
		})
	}
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "MalformedUrl", ErrorKind(fmt.Errorf("wrap: %w", ErrMalformedURL)))
	assert.Equal(t, "UnknownReference", ErrorKind(ErrUnknownReference))
	assert.Equal(t, "FetchFailed", ErrorKind(ErrFetchFailed))
	assert.Equal(t, "HeaderNotFound", ErrorKind(ErrHeaderNotFound))
	assert.Equal(t, "DecodeFailed", ErrorKind(ErrDecodeFailed))
	assert.Equal(t, "Internal", ErrorKind(fmt.Errorf("db down")))
	assert.True(t, IsDatasetError(fmt.Errorf("x: %w", ErrFetchFailed)))
	assert.False(t, IsDatasetError(fmt.Errorf("db down")))
}
