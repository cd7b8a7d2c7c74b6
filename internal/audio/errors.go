package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrFormatMismatch is returned when two buffers with different layouts
	// are combined.
	ErrFormatMismatch = errors.New("format mismatch")

	// ErrEmptyBuffer is returned when an operation needs at least one frame.
	ErrEmptyBuffer = errors.New("empty buffer")
)

// MixingError reports a failure while preparing or combining audio: a missing
// or corrupt bed source, or a format mismatch that alignment cannot resolve.
type MixingError struct {
	Op  string
	Err error
}

func (e *MixingError) Error() string {
	return fmt.Sprintf("mixing: %s: %v", e.Op, e.Err)
}

func (e *MixingError) Unwrap() error { return e.Err }

func mismatch(op string, a, b Format) error {
	return &MixingError{Op: op, Err: fmt.Errorf("%w: %s vs %s", ErrFormatMismatch, a, b)}
}
