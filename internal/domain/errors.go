package domain

import "errors"

// Error kinds raised by the ingestion pipeline. Components wrap these with
// context via fmt.Errorf("...: %w") so callers can match with errors.Is.
var (
	ErrMalformedURL     = errors.New("malformed dataset url")
	ErrUnknownReference = errors.New("unknown reference")
	ErrFetchFailed      = errors.New("dataset fetch failed")
	ErrHeaderNotFound   = errors.New("dataset header not found")
	ErrDecodeFailed     = errors.New("dataset decode failed")
)

var errorKinds = []struct {
	err  error
	name string
}{
	{ErrMalformedURL, "MalformedUrl"},
	{ErrUnknownReference, "UnknownReference"},
	{ErrFetchFailed, "FetchFailed"},
	{ErrHeaderNotFound, "HeaderNotFound"},
	{ErrDecodeFailed, "DecodeFailed"},
}

// ErrorKind returns the name of the dataset error kind wrapped by err, or
// "Internal" for anything else (database, broker, cancellation).
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}

// IsDatasetError reports whether err is one of the dataset error kinds,
// i.e. a problem with the caller's input or the upstream source rather than
// with this service.
func IsDatasetError(err error) bool {
	return ErrorKind(err) != "Internal"
}
