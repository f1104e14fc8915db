package domain

import "errors"

// Errors shared by the statistics and optimization modules.
// Call sites wrap them with context (fmt.Errorf("%w: ...")); callers match with errors.Is.
var (
	// ErrInvalidInput reports a malformed or insufficient return series, or invalid
	// run parameters (non-positive trial count or annualization factor).
	ErrInvalidInput = errors.New("invalid input")

	// ErrDegenerateSample reports that weight sampling exhausted its retry budget
	// without producing a usable (positive-sum, finite, non-negative) sample.
	ErrDegenerateSample = errors.New("degenerate weight sample")
)
