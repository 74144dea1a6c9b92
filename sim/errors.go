package sim

import "errors"

// Sentinel errors returned by the catalog, sampler and assembler.
// Callers match them with errors.Is; the wrapped message carries the detail.
var (
	// ErrInvalidParameter reports a non-positive horizon, replication count or
	// step length, a malformed event record, or a missing random source.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrShapeMismatch reports event identifiers that disagree with the
	// tensor's event dimension.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrProbabilityRange reports a per-step probability outside [0, 1].
	ErrProbabilityRange = errors.New("probability out of range")

	// ErrDuplicateEvent reports two selected events sharing an identifier.
	ErrDuplicateEvent = errors.New("duplicate event identifier")
)
