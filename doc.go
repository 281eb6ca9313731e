// Copyright (c) 2024 The ddcore Authors
//
// MIT License

/*
Package ddcore implements the decision-diagram core of a symbolic
state-space engine for stochastic Petri nets and Markov chains: a node
manager, a canonical-form unique table, a reference-counted node arena,
a binary operation cache, and the saturation algorithm for computing
fixpoints of partitioned next-state relations.

Forests

A Forest is the typed wrapper around one node arena: it fixes a
variable order (an ordered sequence of levels, each with a finite
domain bound) and a reduction rule (fully-reduced MDD for sets,
identity-reduced or quasi-reduced MxD for relations, or an edge-valued
EV+ MDD for dense indexing). Most operations return a Handle, an
integer reference to a node in the Forest's arena; Handle 0 and 1 are
reserved for the terminals (false/empty and true/identity,
respectively).

Lifetime

Nodes move through three states: temporary (built with TempNode,
mutable, exactly one holder), canonical (produced by Reduce, immutable,
shared via the unique table), and dead (refcount and cache-count both
zero, recycled). Link and Unlink adjust the external refcount of a
canonical handle; callers that hold on to a Handle across calls that
might trigger garbage collection must Link it first.

Concurrency

Forests are single-threaded cooperative objects: every method runs to
completion on the caller's goroutine and there are no internal
suspension points. A long-running Saturate call may be interrupted
between outer-loop iterations via the context passed to it; on
cancellation the Forest is left in a fully consistent state and is
reusable.
*/
package ddcore
