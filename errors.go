package spx

import "github.com/cslab-ntua/spx/internal/errtypes"

// Error taxonomy. Every public operation that can fail returns one of
// these sentinels, optionally wrapped with additional context via
// fmt.Errorf("...: %w", ErrX); callers should match with errors.Is. The
// values themselves live in internal/errtypes so internal packages can
// return them without importing this root package.
var (
	ErrInputMatrix     = errtypes.ErrInputMatrix
	ErrArgInvalid      = errtypes.ErrArgInvalid
	ErrEntryNotFound   = errtypes.ErrEntryNotFound
	ErrConfigInvalid   = errtypes.ErrConfigInvalid
	ErrEncodingFailure = errtypes.ErrEncodingFailure
	ErrJitFailure      = errtypes.ErrJitFailure
	ErrIoFailure       = errtypes.ErrIoFailure
)
