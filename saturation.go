// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package ddcore

import (
	"context"
	"fmt"
)

// Relation is a partitioned next-state relation: R[k] holds the slice
// of the relation whose highest-changing level is exactly k
// (spec.md §4.6). It owns one linked handle per level in its own
// relation Forest.
type Relation struct {
	rf *Forest
	r  []Handle // r[0] unused, r[1..numLevels]
}

// NewRelation creates an empty partitioned relation (every R[k] =
// False) over rf.
func NewRelation(rf *Forest) (*Relation, error) {
	if !rf.reduction.isRelation() {
		return nil, fmt.Errorf("%w: NewRelation needs a relation forest", ErrIllegalArgument)
	}
	return &Relation{rf: rf, r: make([]Handle, rf.numLevels+1)}, nil
}

// Forest returns the relation Forest this partition is built over.
func (rel *Relation) Forest() *Forest { return rel.rf }

// At returns R[k].
func (rel *Relation) At(k int32) Handle {
	if k < 1 || int(k) >= len(rel.r) {
		return False
	}
	return rel.r[k]
}

// UnionInto folds h into R[k], the way BuilderFront accumulates one
// transition's relation fragment at a time into its highest-changing-
// level bucket (spec.md §4.8). h's top level must be k (or h may be
// False).
func (rel *Relation) UnionInto(k int32, h Handle) error {
	if k < 1 || int(k) >= len(rel.r) {
		return fmt.Errorf("%w: level %d out of range", ErrIllegalArgument, k)
	}
	if h != False && rel.rf.LevelOf(h) != k {
		return fmt.Errorf("%w: relation fragment's top level (%d) does not match bucket %d", ErrIllegalArgument, rel.rf.LevelOf(h), k)
	}
	merged := rel.rf.Union(rel.r[k], h)
	if rel.rf.Errored() {
		err := fmt.Errorf("%w: %s", ErrInternal, rel.rf.Error())
		rel.rf.err = nil
		return err
	}
	rel.rf.Unlink(rel.r[k])
	rel.r[k] = merged
	return nil
}

// Close releases every R[k] handle.
func (rel *Relation) Close() {
	for k := int32(1); int(k) < len(rel.r); k++ {
		rel.rf.Unlink(rel.r[k])
		rel.r[k] = False
	}
}

// forEachRowCell visits every (col, continuation) pair of row `row` of
// the relation node mxd at the given level, honouring the identity-
// reduced skip rule: a relation handle whose level is below `level`
// stands for "unchanged at this level", i.e. the single cell
// (row, mxd).
func forEachRowCell(rf *Forest, mxd Handle, level, row int32, visit func(col int32, cont Handle)) {
	if mxd == False {
		return
	}
	if mxd == True {
		visit(row, True)
		return
	}
	if rf.LevelOf(mxd) < level {
		visit(row, mxd)
		return
	}
	primed := rf.Edge(mxd, row)
	if primed == False {
		return
	}
	if primed == True {
		visit(row, True)
		return
	}
	n := &rf.nodes.nodes[primed]
	n.forEach(func(col int32, cont Handle) {
		if cont != False {
			visit(col, cont)
		}
	})
}

// forEachColCell is forEachRowCell transposed: it visits every
// (row, continuation) pair whose column equals `col`. There is no
// column index on a row-major relation node, so this scans every row
// of the bound-sized level, which is the straightforward (if
// quadratic-in-bound) implementation spec.md §4.5 leaves as an
// "implementation choice".
func forEachColCell(rf *Forest, mxd Handle, level, bound, col int32, visit func(row int32, cont Handle)) {
	for row := int32(0); row < bound; row++ {
		forEachRowCell(rf, mxd, level, row, func(c int32, cont Handle) {
			if c == col {
				visit(row, cont)
			}
		})
	}
}

// crossCache memoises image/pre-image/RecFire results keyed by
// (p, relationHandle). Unlike OpCache it only ever needs to pin the
// result (p and the relation handle both stay alive for the duration
// of one Saturate/Image/Preimage call through the caller-owns-its-
// arguments convention the rest of this package follows), so a plain
// map plus an explicit release pass is simpler than wiring a second
// forest's nodes through OpCache's single-forest cacheRef/cacheUnref.
type crossCache struct {
	owner *Forest
	table map[[2]Handle]Handle
}

func newCrossCache(owner *Forest) *crossCache {
	return &crossCache{owner: owner, table: make(map[[2]Handle]Handle)}
}

func (c *crossCache) lookup(a, b Handle) (Handle, bool) {
	h, ok := c.table[[2]Handle{a, b}]
	return h, ok
}

func (c *crossCache) insert(a, b, res Handle) {
	c.table[[2]Handle{a, b}] = c.owner.link(res)
}

func (c *crossCache) release() {
	for _, h := range c.table {
		c.owner.Unlink(h)
	}
}

// Image computes { j | exists i in p : (i,j) in r } (spec.md §4.5),
// where r is a single (non-partitioned) relation handle from rf.
func (sf *Forest) Image(rf *Forest, p, r Handle) (Handle, error) {
	if sf.reduction.isRelation() || !rf.reduction.isRelation() {
		return 0, fmt.Errorf("%w: Image needs a set handle and a relation handle", ErrIllegalArgument)
	}
	if err := sf.checkHandle(p); err != nil {
		return 0, fmt.Errorf("Image: %w", err)
	}
	if err := rf.checkHandle(r); err != nil {
		return 0, fmt.Errorf("Image: %w", err)
	}
	cache := newCrossCache(sf)
	res, err := sf.imageRec(rf, cache, p, r, sf.numLevels)
	cache.release()
	return res, err
}

func (sf *Forest) imageRec(rf *Forest, cache *crossCache, p, r Handle, level int32) (Handle, error) {
	if p == False || r == False {
		return False, nil
	}
	if level == 0 {
		return True, nil
	}
	if cached, ok := cache.lookup(p, r); ok {
		return sf.link(cached), nil
	}
	bound := sf.LevelBound(level)
	temp, err := sf.TempNode(level, bound)
	if err != nil {
		return 0, err
	}
	pLevel := sf.LevelOf(p)
	var errOut error
	for i := int32(0); i < bound && errOut == nil; i++ {
		pi := p
		if pLevel == level {
			pi = sf.Edge(p, i)
		}
		if pi == False {
			continue
		}
		forEachRowCell(rf, r, level, i, func(j int32, cont Handle) {
			if errOut != nil {
				return
			}
			t, terr := sf.imageRec(rf, cache, pi, cont, level-1)
			if terr != nil {
				errOut = terr
				return
			}
			old := sf.Edge(temp, j)
			u := sf.Union(old, t)
			sf.Unlink(t)
			if sf.Errored() {
				errOut = fmt.Errorf("%w: %s", ErrInternal, sf.Error())
				return
			}
			if serr := sf.SetEdge(temp, j, u); serr != nil {
				sf.Unlink(u)
				errOut = serr
				return
			}
			sf.Unlink(u)
		})
	}
	if errOut != nil {
		sf.DiscardTemp(temp)
		return 0, errOut
	}
	res, err := sf.Reduce(temp)
	if err != nil {
		return 0, err
	}
	cache.insert(p, r, res)
	return res, nil
}

// Preimage computes { i | exists j in p : (i,j) in r }.
func (sf *Forest) Preimage(rf *Forest, p, r Handle) (Handle, error) {
	if sf.reduction.isRelation() || !rf.reduction.isRelation() {
		return 0, fmt.Errorf("%w: Preimage needs a set handle and a relation handle", ErrIllegalArgument)
	}
	if err := sf.checkHandle(p); err != nil {
		return 0, fmt.Errorf("Preimage: %w", err)
	}
	if err := rf.checkHandle(r); err != nil {
		return 0, fmt.Errorf("Preimage: %w", err)
	}
	cache := newCrossCache(sf)
	res, err := sf.preimageRec(rf, cache, p, r, sf.numLevels)
	cache.release()
	return res, err
}

func (sf *Forest) preimageRec(rf *Forest, cache *crossCache, p, r Handle, level int32) (Handle, error) {
	if p == False || r == False {
		return False, nil
	}
	if level == 0 {
		return True, nil
	}
	if cached, ok := cache.lookup(p, r); ok {
		return sf.link(cached), nil
	}
	bound := sf.LevelBound(level)
	temp, err := sf.TempNode(level, bound)
	if err != nil {
		return 0, err
	}
	pLevel := sf.LevelOf(p)
	var errOut error
	for j := int32(0); j < bound && errOut == nil; j++ {
		pj := p
		if pLevel == level {
			pj = sf.Edge(p, j)
		}
		if pj == False {
			continue
		}
		forEachColCell(rf, r, level, bound, j, func(i int32, cont Handle) {
			if errOut != nil {
				return
			}
			t, terr := sf.preimageRec(rf, cache, pj, cont, level-1)
			if terr != nil {
				errOut = terr
				return
			}
			old := sf.Edge(temp, i)
			u := sf.Union(old, t)
			sf.Unlink(t)
			if sf.Errored() {
				errOut = fmt.Errorf("%w: %s", ErrInternal, sf.Error())
				return
			}
			if serr := sf.SetEdge(temp, i, u); serr != nil {
				sf.Unlink(u)
				errOut = serr
				return
			}
			sf.Unlink(u)
		})
	}
	if errOut != nil {
		sf.DiscardTemp(temp)
		return 0, errOut
	}
	res, err := sf.Reduce(temp)
	if err != nil {
		return 0, err
	}
	cache.insert(p, r, res)
	return res, nil
}

// Saturate computes the least fixpoint of X -> s0 union image(X, rel)
// (spec.md §4.6, Testable property 4) by saturating level-by-level,
// exhausting each level's local relation slice before moving up.
// ctx is checked between outer fixpoint iterations; a cancelled
// context unwinds every in-flight temp node and returns ErrInterrupted
// with the Forest left in a consistent, reusable state.
func (sf *Forest) Saturate(ctx context.Context, rel *Relation, s0 Handle) (Handle, error) {
	if rel == nil {
		return 0, ErrPartitionMissing
	}
	if sf.reduction.isRelation() {
		return 0, fmt.Errorf("%w: Saturate needs a set forest", ErrIllegalArgument)
	}
	if err := sf.checkHandle(s0); err != nil {
		return 0, fmt.Errorf("Saturate: %w", err)
	}
	cache := newCrossCache(sf)
	s := sf.link(s0)
	res, err := sf.satLevel(ctx, rel, cache, s)
	cache.release()
	return res, err
}

// satLevel implements Sat(s) from spec.md §4.6. It consumes one
// reference to s and returns a freshly owned result.
func (sf *Forest) satLevel(ctx context.Context, rel *Relation, cache *crossCache, s Handle) (Handle, error) {
	if s.terminal() {
		return s, nil
	}
	if err := ctx.Err(); err != nil {
		sf.Unlink(s)
		return 0, ErrInterrupted
	}
	level := sf.LevelOf(s)
	bound := sf.LevelBound(level)
	temp, err := sf.TempNode(level, bound)
	if err != nil {
		sf.Unlink(s)
		return 0, err
	}
	var errOut error
	for i := int32(0); i < bound && errOut == nil; i++ {
		child := sf.link(sf.Edge(s, i))
		saturated, serr := sf.satLevel(ctx, rel, cache, child)
		if serr != nil {
			errOut = serr
			continue
		}
		if seterr := sf.SetEdge(temp, i, saturated); seterr != nil {
			sf.Unlink(saturated)
			errOut = seterr
			continue
		}
		sf.Unlink(saturated)
	}
	sf.Unlink(s)
	if errOut != nil {
		sf.DiscardTemp(temp)
		return 0, errOut
	}
	if err := sf.saturateAtLevel(ctx, rel, cache, temp, level); err != nil {
		sf.DiscardTemp(temp)
		return 0, err
	}
	return sf.Reduce(temp)
}

// saturateAtLevel runs the repeat-until-not-changed loop of spec.md
// §4.6 directly against the in-construction node temp, and is the
// "saturate result" step RecFire invokes on itself (the two are
// mutually recursive through RecFire -> saturateAtLevel -> RecFire).
func (sf *Forest) saturateAtLevel(ctx context.Context, rel *Relation, cache *crossCache, temp Handle, level int32) error {
	rk := rel.At(level)
	if rk == False {
		return nil
	}
	bound := sf.LevelBound(level)
	for {
		if err := ctx.Err(); err != nil {
			return ErrInterrupted
		}
		changed := false
		for i := int32(0); i < bound; i++ {
			si := sf.Edge(temp, i)
			if si == False {
				continue
			}
			var errOut error
			forEachRowCell(rel.rf, rk, level, i, func(j int32, cont Handle) {
				if errOut != nil {
					return
				}
				t, terr := sf.RecFire(ctx, rel, cache, si, cont)
				if terr != nil {
					errOut = terr
					return
				}
				old := sf.Edge(temp, j)
				u := sf.Union(old, t)
				sf.Unlink(t)
				if sf.Errored() {
					errOut = fmt.Errorf("%w: %s", ErrInternal, sf.Error())
					return
				}
				if u != old {
					changed = true
				}
				if serr := sf.SetEdge(temp, j, u); serr != nil {
					sf.Unlink(u)
					errOut = serr
					return
				}
				sf.Unlink(u)
			})
			if errOut != nil {
				return errOut
			}
		}
		if !changed {
			return nil
		}
	}
}

// RecFire computes the image of local state-set p through relation
// fragment mxd, saturating the result in the same recursion whenever
// the landing level's own relation slice is non-empty (spec.md §4.6).
// The result is built at the higher of p's and mxd's levels; a p below
// that level (True included) stands for every value there.
func (sf *Forest) RecFire(ctx context.Context, rel *Relation, cache *crossCache, p, mxd Handle) (Handle, error) {
	if mxd == False || p == False {
		return False, nil
	}
	if mxd == True {
		return sf.link(p), nil
	}
	if cached, ok := cache.lookup(p, mxd); ok {
		return sf.link(cached), nil
	}
	level := sf.LevelOf(p)
	if ml := rel.rf.LevelOf(mxd); ml > level {
		level = ml
	}
	pSkips := sf.LevelOf(p) < level
	bound := sf.LevelBound(level)
	temp, err := sf.TempNode(level, bound)
	if err != nil {
		return 0, err
	}
	var errOut error
	for i := int32(0); i < bound && errOut == nil; i++ {
		pi := p
		if !pSkips {
			pi = sf.Edge(p, i)
		}
		if pi == False {
			continue
		}
		forEachRowCell(rel.rf, mxd, level, i, func(j int32, cont Handle) {
			if errOut != nil {
				return
			}
			t, terr := sf.RecFire(ctx, rel, cache, pi, cont)
			if terr != nil {
				errOut = terr
				return
			}
			old := sf.Edge(temp, j)
			u := sf.Union(old, t)
			sf.Unlink(t)
			if sf.Errored() {
				errOut = fmt.Errorf("%w: %s", ErrInternal, sf.Error())
				return
			}
			if serr := sf.SetEdge(temp, j, u); serr != nil {
				sf.Unlink(u)
				errOut = serr
				return
			}
			sf.Unlink(u)
		})
	}
	if errOut != nil {
		sf.DiscardTemp(temp)
		return 0, errOut
	}
	if err := sf.saturateAtLevel(ctx, rel, cache, temp, level); err != nil {
		sf.DiscardTemp(temp)
		return 0, err
	}
	res, err := sf.Reduce(temp)
	if err != nil {
		return 0, err
	}
	cache.insert(p, mxd, res)
	return res, nil
}
