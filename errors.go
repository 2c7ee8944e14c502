package metakit

import "errors"

// Sentinel error kinds. Lookups that legitimately find nothing (an overridden
// member, an implemented member, a generic definition, an extension match)
// return an absent value instead of an error; these sentinels cover genuine
// misuse and invariant violations only.
var (
	// ErrInvalidArgument marks nil or empty required input, a descriptor
	// outside the repository's program scope, or a descriptor of the wrong
	// category for the requested view.
	ErrInvalidArgument = errors.New("metakit: invalid argument")

	// ErrNotSupported marks a descriptor category the engine has no variant
	// for. It is a programmer error and is never retried.
	ErrNotSupported = errors.New("metakit: not supported")

	// ErrInvalidState marks an invariant violation discovered inside a lazy
	// computation, surfaced on first access rather than at construction.
	ErrInvalidState = errors.New("metakit: invalid state")
)
