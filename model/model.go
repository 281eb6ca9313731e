// Copyright (c) 2024 The ddcore Authors
//
// MIT License

// Package model defines the small capability interface the
// decision-diagram core consumes from the (out-of-scope) high-level
// front-end: an ordered list of state variables with per-variable
// domain bounds, an ordered list of events each exposing enabled/fire,
// and an initial-state enumerator (spec.md §1, §9).
//
// This replaces the duck-typed `dynamic_cast`s over a state_model
// class hierarchy the distillation's source uses with a plain Go
// interface, the way spec.md §9 directs.
package model

// State is one complete assignment of values to every level, in level
// order. It is layout-compatible with ddcore.Minterm; the two types
// are kept distinct because this package has no dependency on ddcore
// (BuilderFront is the seam that converts one to the other).
type State []int32

// Clone returns an independent copy of s.
func (s State) Clone() State {
	out := make(State, len(s))
	copy(out, s)
	return out
}

// Equal reports whether s and other hold the same values.
func (s State) Equal(other State) bool {
	if len(s) != len(other) {
		return false
	}
	for i, v := range s {
		if v != other[i] {
			return false
		}
	}
	return true
}

// Model is the capability interface a structured high-level model
// (a Petri net, a DTMC/CTMC description, ...) must satisfy to drive
// BuilderFront's explicit or symbolic construction.
type Model interface {
	// NumLevels returns the number of state variables, 1..NumLevels.
	NumLevels() int32
	// LevelBound returns the domain size [0, bound) of level k.
	LevelBound(k int32) int32
	// InitialState returns the model's initial marking/state.
	InitialState() State
	// NumEvents returns the number of events (transitions).
	NumEvents() int
	// EventName returns a human-readable name for event e, used in
	// diagnostics.
	EventName(e int) string
	// Enabled reports whether event e can fire from state s.
	Enabled(e int, s State) bool
	// Fire returns the state reached by firing event e from s. Fire
	// is only ever called when Enabled(e, s) holds; its result for a
	// disabled event is undefined.
	Fire(e int, s State) (State, error)
}

// TopLevelHint is an optional extension a Model implementation can
// satisfy to expose, for each event, the highest level (1-based) it
// can ever change, known statically from the event's own structure
// rather than from any one observed firing. BuilderFront uses this to
// bucket a discovered transition's relation fragment exactly, instead
// of conservatively assuming it can touch every level.
type TopLevelHint interface {
	// EventTopLevel returns the highest level event e can change, or 0
	// if e never changes any level.
	EventTopLevel(e int) int32
}
