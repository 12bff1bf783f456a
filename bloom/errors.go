package bloom

import "errors"

var (
	// ErrConfigMismatch is returned when merging filters of different size
	// or hash count.
	ErrConfigMismatch = errors.New("bloom: filter configuration mismatch")
	// ErrMalformedSnapshot is returned when a snapshot cannot describe a
	// valid filter.
	ErrMalformedSnapshot = errors.New("bloom: malformed snapshot")
)
