// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package ddcore

import "fmt"

// RelationFromPair builds the singleton-relation handle {(from, to)}
// over a relation forest, chaining one unprimed/primed node pair per
// level bottom level first — the two-tier generalisation of
// MintermToHandle's single-tier chain. Every level is materialized
// explicitly, even where from and to agree: a single observed pair
// cannot tell an incidental same-value row apart from a guard that
// truly pins the level to that one value, so generalizing away an
// agreeing level is left to collapseIdentity once enough pairs have
// been unioned together to cover every row of it. The returned
// handle's top level is therefore always f.numLevels.
//
// Callers that know, independently of any one observed pair, that an
// event can never touch levels above some static bound (for example
// from a Petri net transition's arc set) should use
// RelationFromPairBounded instead to get a tightly-leveled handle
// without waiting on accumulation to prove it.
func (f *Forest) RelationFromPair(from, to Minterm) (Handle, error) {
	return f.relationFromPair(from, to, f.numLevels)
}

// RelationFromPairBounded is RelationFromPair restricted to levels
// [1, topLevel]: levels above topLevel are assumed, by the caller's
// own static knowledge of the event being encoded (not by anything
// observable in this one pair), to never change and are left
// unmaterialized, relying on the identity-skip rule ("a handle whose
// level is below the level being asked about means unchanged here,
// for any row") to mean exactly that. Levels within [1, topLevel] are
// still built explicitly even where from and to agree, since within
// that range an agreeing value may be a genuine guard.
//
// Passing a topLevel the event can actually exceed produces a handle
// that silently drops any effect above it — the bound must come from
// the event's real structure, not from one instance's observed diff.
func (f *Forest) RelationFromPairBounded(from, to Minterm, topLevel int32) (Handle, error) {
	if topLevel < 0 || topLevel > f.numLevels {
		return 0, fmt.Errorf("%w: topLevel out of range", ErrIllegalArgument)
	}
	return f.relationFromPair(from, to, topLevel)
}

func (f *Forest) relationFromPair(from, to Minterm, topLevel int32) (Handle, error) {
	if !f.reduction.isRelation() {
		return 0, fmt.Errorf("%w: RelationFromPair needs a relation forest", ErrIllegalArgument)
	}
	if int32(len(from)) != f.numLevels || int32(len(to)) != f.numLevels {
		return 0, fmt.Errorf("%w: (from, to) must have one value per level", ErrIllegalArgument)
	}
	cur := True
	for k := int32(1); k <= topLevel; k++ {
		bound := f.LevelBound(k)
		row, col := from[k-1], to[k-1]
		if row < 0 || row >= bound || col < 0 || col >= bound {
			f.Unlink(cur)
			return 0, fmt.Errorf("%w: value out of bound at level %d", ErrIllegalArgument, k)
		}
		primedTemp, err := f.tempNode(k, bound, true)
		if err != nil {
			f.Unlink(cur)
			return 0, err
		}
		if err := f.SetEdge(primedTemp, col, cur); err != nil {
			f.Unlink(cur)
			f.DiscardTemp(primedTemp)
			return 0, err
		}
		f.Unlink(cur)
		primedH, err := f.canonicalize(primedTemp)
		if err != nil {
			return 0, err
		}

		unprimedTemp, err := f.tempNode(k, bound, false)
		if err != nil {
			f.Unlink(primedH)
			return 0, err
		}
		if err := f.SetEdge(unprimedTemp, row, primedH); err != nil {
			f.Unlink(primedH)
			f.DiscardTemp(unprimedTemp)
			return 0, err
		}
		f.Unlink(primedH)
		cur, err = f.canonicalize(unprimedTemp)
		if err != nil {
			return 0, err
		}
	}
	return cur, nil
}

// ConvertToIdentityReduced rebuilds h (a handle built under
// MxDRelationQuasi) bottom-up, applying the identity-collapse rule at
// every unprimed level. The conversion shares this Forest's arena and
// UniqueTable: canonical nodes are keyed purely by (level, primed,
// edges), so identity-reduced and quasi-reduced nodes coexist safely
// in the same tables, and structurally identical sub-relations of the
// two shapes are still shared.
func (f *Forest) ConvertToIdentityReduced(h Handle) (Handle, error) {
	if f.reduction != MxDRelationIdentity && f.reduction != MxDRelationQuasi {
		return 0, fmt.Errorf("%w: ConvertToIdentityReduced needs a relation forest", ErrIllegalArgument)
	}
	if err := f.checkHandle(h); err != nil {
		return 0, fmt.Errorf("ConvertToIdentityReduced: %w", err)
	}
	memo := make(map[Handle]Handle)
	res, err := f.convertIdentity(h, memo)
	if err != nil {
		return 0, err
	}
	return res, nil
}

func (f *Forest) convertIdentity(h Handle, memo map[Handle]Handle) (Handle, error) {
	if h.terminal() {
		return h, nil
	}
	if res, ok := memo[h]; ok {
		return f.link(res), nil
	}
	n := &f.nodes.nodes[h]
	level, primed, bound := n.level, n.primed, f.LevelBound(n.level)

	temp, err := f.tempNode(level, bound, primed)
	if err != nil {
		return 0, err
	}
	var setErr error
	n.forEach(func(i int32, child Handle) {
		if setErr != nil || child == False {
			return
		}
		converted, cerr := f.convertIdentity(child, memo)
		if cerr != nil {
			setErr = cerr
			return
		}
		if serr := f.SetEdge(temp, i, converted); serr != nil {
			f.Unlink(converted)
			setErr = serr
			return
		}
		f.Unlink(converted)
	})
	if setErr != nil {
		f.DiscardTemp(temp)
		return 0, setErr
	}

	var res Handle
	if !primed {
		tn := &f.nodes.nodes[temp]
		if target, ok := f.collapseIdentity(tn); ok {
			tn.forEach(func(_ int32, c Handle) {
				if c != False {
					f.Unlink(c)
				}
			})
			f.nodes.recycle(temp)
			res = f.link(target)
			memo[h] = res
			return res, nil
		}
	}
	res, err = f.canonicalize(temp)
	if err != nil {
		return 0, err
	}
	memo[h] = res
	return res, nil
}
