package engine

import "errors"

// Precondition errors. All are detected before the simulation loop begins;
// no partial results are ever produced.
var (
	// ErrLengthMismatch is returned when signal and spread series have
	// different lengths.
	ErrLengthMismatch = errors.New("signal and spread series must have equal length")

	// ErrIndexMismatch is returned when the two series disagree on a
	// timestamp. Alignment is the caller's responsibility.
	ErrIndexMismatch = errors.New("signal and spread series must share an identical time index")

	// ErrNonMonotonicIndex is returned when the shared time index is not
	// strictly increasing.
	ErrNonMonotonicIndex = errors.New("time index must be strictly increasing")

	// ErrMissingReference is returned when the spread series contains a
	// missing value. Missing signals are tolerated (hold-position policy);
	// missing reference levels are not, since every step marks to market.
	ErrMissingReference = errors.New("spread series must not contain missing values")
)
