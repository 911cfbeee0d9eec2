package hooks

import "errors"

var (
	// ErrConfiguration indicates an annotation whose own attributes are
	// invalid (mutually exclusive options both set, required option missing,
	// index out of range, zero-parameter unit targeted). Surfaced before any
	// state mutation occurs.
	ErrConfiguration = errors.New("hooks: invalid annotation configuration")
	// ErrResolution indicates a named target that matches none of the unit's
	// actual parameters. Surfaced at filter-evaluation time.
	ErrResolution = errors.New("hooks: could not resolve parameter")
)
