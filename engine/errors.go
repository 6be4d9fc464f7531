package engine

import "errors"

// Error taxonomy for malformed calls. All of these are programmer errors;
// callers match them with errors.Is.
var (
	// ErrInvalidConfig is returned when construction parameters are not usable.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidShape is returned when an input's rank or width does not match
	// the configured digits, states or vocabulary.
	ErrInvalidShape = errors.New("invalid shape")
	// ErrInvalidValue is returned for a digit or symbol outside its range.
	ErrInvalidValue = errors.New("invalid value")
	// ErrDegenerateBatch is returned when a batch-normalized network runs in
	// training mode on a batch of one.
	ErrDegenerateBatch = errors.New("degenerate batch")
	// ErrNonFinite is returned when an input holds NaN or Inf.
	ErrNonFinite = errors.New("non-finite value")
)
