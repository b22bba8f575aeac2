package sim

import "errors"

// Error taxonomy for the sampling, integration and generation paths.
// Callers match with errors.Is; concrete errors wrap these with context.
var (
	// ErrInvalidSample marks a phase-space point the weight function rejected.
	// It is recovered locally by resampling and only escapes wrapped in
	// ErrConvergenceFailure once the retry cap is hit.
	ErrInvalidSample = errors.New("invalid sample")

	// ErrConvergenceFailure reports an iteration budget exhausted before a
	// result could be produced.
	ErrConvergenceFailure = errors.New("convergence failure")

	// ErrEnvelopeViolation reports a hit-or-miss ratio above 1: the envelope
	// used for generation underestimates the true maximum weight.
	ErrEnvelopeViolation = errors.New("envelope violation")

	// ErrConfiguration reports invalid bounds, dimension mismatches or
	// non-positive counts. Raised before any sampling begins.
	ErrConfiguration = errors.New("configuration error")

	// ErrTrialsExhausted reports that the accept/reject loop for a single
	// event hit its trial cap without accepting.
	ErrTrialsExhausted = errors.New("trials exhausted")

	// ErrNonFiniteWeight reports a NaN or infinite weight from a sample the
	// weight function marked valid.
	ErrNonFiniteWeight = errors.New("non-finite weight")
)
