// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package ddcore

import "fmt"

// Error taxonomy at the boundary of the core (spec.md §6). These are
// sentinel values; wrapping with fmt.Errorf("...: %w", ErrX) is the
// expected idiom for callers that want to add context.
var (
	// ErrOutOfMemory is returned when a Forest's node store
	// cannot grow to satisfy an allocation. The store itself remains
	// consistent; only the in-flight operation fails.
	ErrOutOfMemory = fmt.Errorf("ddcore: out of memory")

	// ErrInterrupted is returned when a cancellable operation (a long
	// Saturate call) observed its context done before completing.
	ErrInterrupted = fmt.Errorf("ddcore: interrupted")

	// ErrPartitionMissing is returned when Saturate is invoked without
	// a partitioned relation.
	ErrPartitionMissing = fmt.Errorf("ddcore: saturation requires a partitioned relation")

	// ErrIllegalArgument is returned when an operation mixes handles
	// from two different Forests, or is given a handle outside the
	// valid range.
	ErrIllegalArgument = fmt.Errorf("ddcore: illegal argument")

	// ErrInternal is returned when an invariant violation is detected
	// (a canonical node observed with a zero refcount, an edge
	// pointing to a node at an equal or greater level, a unique-table
	// hit whose payload does not structurally match the probe). A
	// Forest that returns ErrInternal must be assumed unusable.
	ErrInternal = fmt.Errorf("ddcore: internal invariant violation")
)

// Error returns the sticky error status of the Forest, or an empty
// string if there is none. Mirrors dalzilio-rudd's BDD.Error, used by
// the chaining-style methods (Union, Intersect, ...) that return
// a bare Handle instead of (Handle, error).
func (f *Forest) Error() string {
	if f.err == nil {
		return ""
	}
	return f.err.Error()
}

// Errored reports whether the Forest has a sticky error set.
func (f *Forest) Errored() bool {
	return f.err != nil
}

// seterror records err as the Forest's sticky error, chaining onto any
// error already present, and returns False so call sites can write
// `return f.seterror(...)` from a Handle-returning method.
func (f *Forest) seterror(format string, a ...interface{}) Handle {
	msg := fmt.Sprintf(format, a...)
	if f.err != nil {
		f.err = fmt.Errorf("%s; %w", msg, f.err)
	} else {
		f.err = fmt.Errorf("%s", msg)
	}
	return False
}
