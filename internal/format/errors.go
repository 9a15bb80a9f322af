package format

import "github.com/cockroachdb/errors"

var (
	// ErrTruncated indicates the region lacked the bytes required for a header or payload.
	ErrTruncated = errors.New("format: truncated record")

	// ErrTooLarge indicates a payload whose extent does not fit a 32-bit region.
	ErrTooLarge = errors.New("format: record too large")
)
