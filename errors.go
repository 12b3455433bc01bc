package texsync

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by API-boundary checks. Boundary failures indicate
// programmer error and are returned immediately; they are never swallowed or
// converted into counted per-item failures.
var (
	// ErrInvalidDimension is returned when a width or height argument is
	// zero or negative. Dimensions are rejected, never clamped.
	ErrInvalidDimension = errors.New("texsync: invalid dimension")

	// ErrInvalidArgument is returned when a required material, surface, or
	// node argument is nil.
	ErrInvalidArgument = errors.New("texsync: invalid argument")

	// ErrMaterialDisposed is returned by material operations after Dispose.
	ErrMaterialDisposed = errors.New("texsync: material disposed")

	// ErrRecoveryFailed is returned when no combination of available
	// texture sources can restore scene consistency.
	ErrRecoveryFailed = errors.New("texsync: recovery failed")
)

// MaterialProcessingError records a single material's failure during a bulk
// operation (scan or bulk texture apply). Bulk operations collect these and
// continue; they never abort the batch on one bad material.
type MaterialProcessingError struct {
	UUID string
	Name string
	Err  error
}

func (e *MaterialProcessingError) Error() string {
	return fmt.Sprintf("texsync: processing material %q (%s): %v", e.Name, e.UUID, e.Err)
}

func (e *MaterialProcessingError) Unwrap() error {
	return e.Err
}

// validDimensions reports a usable width/height pair, returning
// ErrInvalidDimension with both values otherwise.
func validDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimension, width, height)
	}
	return nil
}
