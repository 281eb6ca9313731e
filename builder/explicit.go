// Copyright (c) 2024 The ddcore Authors
//
// MIT License

// Package builder implements BuilderFront (spec.md §4.8): it drives a
// model.Model's event firing and inserts the states and transitions it
// discovers into a ddcore.Forest, either through explicit generation
// (a tangible-state frontier explored one state or one batch at a
// time, grounded on original_source/src/Engines/expl_meddly.cc's
// meddly_explgen) or through symbolic construction (symbolic.go).
package builder

import (
	"context"
	"fmt"

	"github.com/latticefsm/ddcore"
	"github.com/latticefsm/ddcore/model"
)

// Explicit drives model.Model through a breadth-first exploration of
// its reachable states, accumulating discovered states and
// (optionally) next-state-relation fragments in batches before
// flushing them into a ddcore.Forest, the way meddly_explgen's
// batch_size/level_change/maximize_batch_refills options gate the
// source's accumulate-then-flush loop.
type Explicit struct {
	m  model.Model
	sf *ddcore.Forest // set forest: states
	rf *ddcore.Forest // relation forest, nil if only the state space is wanted

	batchSize           int
	levelChangeFlush    int32
	maximizeBatchRefill bool
	useQuasiDuringBuild bool

	visited map[string]bool
	pending []model.State

	statesGenerated int
	peakFrontier    int

	// topHint and eventTopLevel cache a per-event static top level when
	// m exposes model.TopLevelHint, letting flushRelation bucket each
	// transition fragment exactly via RelationFromPairBounded instead
	// of conservatively dumping every fragment into the top bucket.
	topHint       model.TopLevelHint
	eventTopLevel []int32
}

// Option configures an Explicit builder.
type Option func(*Explicit)

// BatchSize caps the number of minterms accumulated before a flush.
func BatchSize(n int) Option {
	return func(e *Explicit) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// LevelChangeFlush sets the highest-differing-level threshold above
// which the pending batch is flushed early.
func LevelChangeFlush(level int32) Option {
	return func(e *Explicit) { e.levelChangeFlush = level }
}

// MaximizeBatchRefill selects refilling the unexplored-state batch to
// its maximum size rather than taking whatever is immediately
// available.
func MaximizeBatchRefill(on bool) Option {
	return func(e *Explicit) { e.maximizeBatchRefill = on }
}

// UseQuasiReducedDuringBuild runs ConvertToIdentityReduced over every
// non-empty relation bucket once generation completes and folds the
// result back into that bucket (spec.md §6). It does not change the
// rule used while accumulating, which is the relation forest's own
// Reduction.
func UseQuasiReducedDuringBuild(on bool) Option {
	return func(e *Explicit) { e.useQuasiDuringBuild = on }
}

// NewExplicit creates a builder over m, accumulating reachable states
// into sf (a ddcore.MDDSet forest matching m's levels/bounds). rf, if
// non-nil, must be a relation forest over the same order; when given,
// the builder also accumulates the next-state relation fragment
// discovered at each fired event.
func NewExplicit(m model.Model, sf, rf *ddcore.Forest, opts ...Option) (*Explicit, error) {
	if sf.Reduction().IsRelation() {
		return nil, fmt.Errorf("builder: the state forest must be a set forest")
	}
	if sf.NumLevels() != m.NumLevels() {
		return nil, fmt.Errorf("builder: forest has %d levels, model has %d", sf.NumLevels(), m.NumLevels())
	}
	if rf != nil {
		if !rf.Reduction().IsRelation() {
			return nil, fmt.Errorf("builder: the relation forest must be a relation forest")
		}
		if rf.NumLevels() != m.NumLevels() {
			return nil, fmt.Errorf("builder: relation forest has %d levels, model has %d", rf.NumLevels(), m.NumLevels())
		}
	}
	e := &Explicit{
		m:         m,
		sf:        sf,
		rf:        rf,
		batchSize: 256,
		visited:   make(map[string]bool),
	}
	if hint, ok := m.(model.TopLevelHint); ok {
		e.topHint = hint
		e.eventTopLevel = make([]int32, m.NumEvents())
		for ev := 0; ev < m.NumEvents(); ev++ {
			e.eventTopLevel[ev] = hint.EventTopLevel(ev)
		}
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// relationBucket returns the partition level a transition fired by
// event ev should be bucketed and built under: the event's static top
// level when the model provides one, or the relation forest's own top
// level as the safe fallback when it does not (RelationFromPair then
// always materializes every level, so its handle's top level is
// always rf.NumLevels()).
func (e *Explicit) relationBucket(ev int) int32 {
	if e.topHint != nil {
		return e.eventTopLevel[ev]
	}
	return e.rf.NumLevels()
}

// Stats reports generation progress, the "partial statistics" spec.md
// §7 requires a caller be able to read back after a failure.
type Stats struct {
	StatesGenerated int
	PeakFrontier    int
}

func (e *Explicit) Stats() Stats {
	return Stats{StatesGenerated: e.statesGenerated, PeakFrontier: e.peakFrontier}
}

func stateKey(s model.State) string {
	b := make([]byte, 0, len(s)*5)
	for _, v := range s {
		b = append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24), ',')
	}
	return string(b)
}

// transitionPair is a discovered (from, to) state pair awaiting
// insertion into the relation forest, bucketed under its event's
// relationBucket level until the batch is flushed.
type transitionPair struct {
	From, To ddcore.Minterm
}

func toMinterm(s model.State) ddcore.Minterm {
	m := make(ddcore.Minterm, len(s))
	for i, v := range s {
		m[i] = v
	}
	return m
}

// highestDifferingLevel returns the highest level (1-based) at which
// from and to differ, or 0 if they are equal.
func highestDifferingLevel(from, to model.State) int32 {
	for k := len(from); k >= 1; k-- {
		if from[k-1] != to[k-1] {
			return int32(k)
		}
	}
	return 0
}

// Run explores every state reachable from the model's initial state,
// flushing accumulated batches into the Forest(s) as it goes, and
// returns the final reachable-set handle (owned by the caller). If a
// relation forest was supplied, Run also completes its partitioned
// Relation, returned alongside.
func (e *Explicit) Run(ctx context.Context) (ddcore.Handle, *ddcore.Relation, error) {
	var rel *ddcore.Relation
	var err error
	if e.rf != nil {
		rel, err = ddcore.NewRelation(e.rf)
		if err != nil {
			return 0, nil, err
		}
	}

	init := e.m.InitialState()
	e.pending = append(e.pending, init)
	e.visited[stateKey(init)] = true
	e.statesGenerated++

	stateBatch := make([]ddcore.Minterm, 0, e.batchSize)
	relBatch := make(map[int32][]transitionPair) // level -> pending (from,to) pairs

	reachable, err := e.sf.MintermToHandle(toMinterm(init))
	if err != nil {
		if rel != nil {
			rel.Close()
		}
		return 0, nil, err
	}

	flushStates := func() error {
		if len(stateBatch) == 0 {
			return nil
		}
		h, uerr := e.sf.UnionMinterms(stateBatch)
		if uerr != nil {
			return uerr
		}
		merged := e.sf.Union(reachable, h)
		e.sf.Unlink(reachable)
		e.sf.Unlink(h)
		if e.sf.Errored() {
			return fmt.Errorf("%w: %s", ddcore.ErrInternal, e.sf.Error())
		}
		reachable = merged
		stateBatch = stateBatch[:0]
		e.sf.MaybeCompact()
		return nil
	}

	flushRelation := func() error {
		if rel == nil {
			return nil
		}
		for level, pairs := range relBatch {
			for _, pr := range pairs {
				var h ddcore.Handle
				var rerr error
				if e.topHint != nil {
					h, rerr = e.rf.RelationFromPairBounded(pr.From, pr.To, level)
				} else {
					h, rerr = e.rf.RelationFromPair(pr.From, pr.To)
				}
				if rerr != nil {
					return rerr
				}
				if uerr := rel.UnionInto(level, h); uerr != nil {
					e.rf.Unlink(h)
					return uerr
				}
				e.rf.Unlink(h)
			}
			delete(relBatch, level)
		}
		e.rf.MaybeCompact()
		return nil
	}

	for len(e.pending) > 0 {
		if err := ctx.Err(); err != nil {
			e.sf.Unlink(reachable)
			if rel != nil {
				rel.Close()
			}
			return 0, nil, ddcore.ErrInterrupted
		}

		var batch []model.State
		if e.maximizeBatchRefill {
			n := e.batchSize
			if n > len(e.pending) {
				n = len(e.pending)
			}
			batch, e.pending = e.pending[:n], e.pending[n:]
		} else {
			batch, e.pending = e.pending, nil
		}
		if len(batch) > e.peakFrontier {
			e.peakFrontier = len(batch)
		}

		for _, s := range batch {
			for ev := 0; ev < e.m.NumEvents(); ev++ {
				if !e.m.Enabled(ev, s) {
					continue
				}
				next, ferr := e.m.Fire(ev, s)
				if ferr != nil {
					e.sf.Unlink(reachable)
					if rel != nil {
						rel.Close()
					}
					return 0, nil, ferr
				}
				if rel != nil && highestDifferingLevel(s, next) > 0 {
					level := e.relationBucket(ev)
					if level > 0 {
						relBatch[level] = append(relBatch[level], transitionPair{From: toMinterm(s), To: toMinterm(next)})
					}
				}
				key := stateKey(next)
				if e.visited[key] {
					continue
				}
				e.visited[key] = true
				e.statesGenerated++
				stateBatch = append(stateBatch, toMinterm(next))
				e.pending = append(e.pending, next)

				diffLevel := highestDifferingLevel(s, next)
				flushNow := len(stateBatch) >= e.batchSize
				if e.levelChangeFlush > 0 && diffLevel > e.levelChangeFlush {
					flushNow = true
				}
				if flushNow {
					if ferr := flushStates(); ferr != nil {
						e.sf.Unlink(reachable)
						if rel != nil {
							rel.Close()
						}
						return 0, nil, ferr
					}
					if ferr := flushRelation(); ferr != nil {
						e.sf.Unlink(reachable)
						if rel != nil {
							rel.Close()
						}
						return 0, nil, ferr
					}
				}
			}
		}
	}
	if err := flushStates(); err != nil {
		e.sf.Unlink(reachable)
		if rel != nil {
			rel.Close()
		}
		return 0, nil, err
	}
	if err := flushRelation(); err != nil {
		e.sf.Unlink(reachable)
		if rel != nil {
			rel.Close()
		}
		return 0, nil, err
	}
	if e.useQuasiDuringBuild && rel != nil {
		for k := int32(1); k <= e.rf.NumLevels(); k++ {
			h := rel.At(k)
			if h == ddcore.False {
				continue
			}
			converted, cerr := e.rf.ConvertToIdentityReduced(h)
			if cerr != nil {
				e.sf.Unlink(reachable)
				rel.Close()
				return 0, nil, cerr
			}
			if uerr := rel.UnionInto(k, converted); uerr != nil {
				e.rf.Unlink(converted)
				e.sf.Unlink(reachable)
				rel.Close()
				return 0, nil, uerr
			}
			e.rf.Unlink(converted)
		}
	}
	return reachable, rel, nil
}

// CompleteStateSpaceOnly explores the model with no relation forest
// attached (spec.md §4.8's "state-space-only" completion engine).
func CompleteStateSpaceOnly(ctx context.Context, m model.Model, sf *ddcore.Forest, opts ...Option) (ddcore.Handle, error) {
	e, err := NewExplicit(m, sf, nil, opts...)
	if err != nil {
		return 0, err
	}
	h, _, err := e.Run(ctx)
	return h, err
}

// CompleteRelationGivenStates explores the model, producing both the
// reachable-set handle and the partitioned relation (spec.md §4.8's
// "completion of relation given state space").
func CompleteRelationGivenStates(ctx context.Context, m model.Model, sf, rf *ddcore.Forest, opts ...Option) (ddcore.Handle, *ddcore.Relation, error) {
	e, err := NewExplicit(m, sf, rf, opts...)
	if err != nil {
		return 0, nil, err
	}
	return e.Run(ctx)
}
