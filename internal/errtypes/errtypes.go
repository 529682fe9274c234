// Package errtypes holds the sentinel error taxonomy so that
// internal packages (mmf, persist, csx, ...) can return them without
// importing the root spx package, which re-exports these same values as
// its public API.
package errtypes

import "errors"

var (
	// ErrInputMatrix covers malformed MMF headers, inconsistent CSR
	// (non-monotonic rowptr), and invalid indexing flags.
	ErrInputMatrix = errors.New("spx: invalid input matrix")

	// ErrArgInvalid covers null handles, zero dimensions, and out-of-bounds
	// row/col arguments to Get/Set.
	ErrArgInvalid = errors.New("spx: invalid argument")

	// ErrEntryNotFound is returned by Get/Set when (row, col) is
	// structurally zero.
	ErrEntryNotFound = errors.New("spx: entry not found")

	// ErrConfigInvalid covers unknown RuntimeConfiguration mnemonics,
	// unparsable values, and out-of-range sampling/window parameters.
	ErrConfigInvalid = errors.New("spx: invalid configuration")

	// ErrEncodingFailure wraps mat_tune's reordering and partition-building
	// failures. A partition in which no Type scores positively is not an
	// error: the matrix is still emitted, just fully unencoded (pure delta
	// units).
	ErrEncodingFailure = errors.New("spx: encoding produced no patterns")

	// ErrJitFailure covers kernel-generation/interpretation setup failures.
	ErrJitFailure = errors.New("spx: kernel generation failed")

	// ErrIoFailure covers save/restore file open or short read/write.
	ErrIoFailure = errors.New("spx: io failure")
)
