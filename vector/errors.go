package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for nil/empty inputs, zero counts and
	// element type/width mismatches detected before encoding.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidFormat is returned when a blob is not a vector blob or is
	// structurally inconsistent (bad magic, bad element type, size mismatch).
	ErrInvalidFormat = errors.New("invalid vector blob format")

	// ErrUnsupportedVersion is returned when the magic matches but the blob
	// format version is not FormatVersion.
	ErrUnsupportedVersion = errors.New("unsupported vector blob version")

	// ErrAllocation is returned when the output buffer cannot be obtained.
	ErrAllocation = errors.New("vector blob allocation failed")
)

// FormatError describes which header field of a blob failed validation.
//
// It unwraps to ErrInvalidFormat or ErrUnsupportedVersion.
type FormatError struct {
	Field string
	Got   uint64
	Want  uint64
	Err   error
}

func (e *FormatError) Error() string {
	switch {
	case e.Field == "magic":
		return fmt.Sprintf("vector: %v: magic %#08x, expected %#08x", e.Err, e.Got, e.Want)
	case e.Want != 0:
		return fmt.Sprintf("vector: %v: %s %d, expected %d", e.Err, e.Field, e.Got, e.Want)
	default:
		return fmt.Sprintf("vector: %v: %s %d", e.Err, e.Field, e.Got)
	}
}

func (e *FormatError) Unwrap() error { return e.Err }

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("vector: "+format+": %w", append(args, ErrInvalidArgument)...)
}
