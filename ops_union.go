// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package ddcore

import "fmt"

// checkHandle reports whether h is either a terminal or a live
// canonical node of f, mirroring dalzilio-rudd's checkptr guard at the
// top of every exported BDD method (operations.go).
func (f *Forest) checkHandle(h Handle) error {
	if h.terminal() {
		return nil
	}
	if h < 0 || int(h) >= len(f.nodes.nodes) {
		return fmt.Errorf("%w: handle %d out of range", ErrIllegalArgument, h)
	}
	n := &f.nodes.nodes[h]
	if n.isFree() || n.key == "" {
		return fmt.Errorf("%w: handle %d is not a live canonical node", ErrIllegalArgument, h)
	}
	return nil
}

// Union computes the set (or, for a level-synchronized pair of
// quasi-reduced relation handles, the relation) union of a and b
// (spec.md §4.4). On error the Forest's sticky error is set and False
// is returned, in the chaining style of dalzilio-rudd's Apply.
func (f *Forest) Union(a, b Handle) Handle {
	if err := f.checkHandle(a); err != nil {
		return f.seterror("Union: %s", err)
	}
	if err := f.checkHandle(b); err != nil {
		return f.seterror("Union: %s", err)
	}
	return f.apply(OpUnion, a, b)
}

// Intersect computes the set intersection of a and b.
func (f *Forest) Intersect(a, b Handle) Handle {
	if err := f.checkHandle(a); err != nil {
		return f.seterror("Intersect: %s", err)
	}
	if err := f.checkHandle(b); err != nil {
		return f.seterror("Intersect: %s", err)
	}
	return f.apply(OpIntersect, a, b)
}

// terminalShortcut implements the O(1) base cases of Union/Intersect
// the way rudd's apply() special-cases its constant operands before
// ever consulting the cache. Over a relation forest, True means
// "continue as identity from here", not "universal absorbing value",
// so the set-forest absorbing rule for True does not apply there.
func (f *Forest) terminalShortcut(op Op, a, b Handle) (Handle, bool) {
	relation := f.reduction.isRelation()
	switch op {
	case OpUnion:
		switch {
		case a == b:
			return a, true
		case !relation && (a == True || b == True):
			return True, true
		case a == False:
			return b, true
		case b == False:
			return a, true
		}
	case OpIntersect:
		switch {
		case a == b:
			return a, true
		case a == False || b == False:
			return False, true
		case !relation && a == True:
			return b, true
		case !relation && b == True:
			return a, true
		}
	}
	return 0, false
}

// apply is the recursive engine behind Union/Intersect. Over a set
// forest a level mismatch between a and b is resolved by broadcasting
// the higher-level operand's value unchanged across every index of the
// lower level — the set-forest analogue of a BDD node skip. Relation
// handles are only supported level-synchronized (both built
// quasi-reduced, as BuilderFront's batch accumulation does per
// spec.md §4.8); a genuine level mismatch between two relation
// operands is rejected rather than silently mishandling the
// identity-skip expansion that would otherwise be required.
func (f *Forest) apply(op Op, a, b Handle) Handle {
	if f.err != nil {
		return False
	}
	if res, ok := f.terminalShortcut(op, a, b); ok {
		return f.link(res)
	}
	if cached, ok := f.cache.Lookup(op, a, b); ok {
		return f.link(cached)
	}

	alevel, blevel := f.LevelOf(a), f.LevelOf(b)
	aprimed, bprimed := f.primedOf(a), f.primedOf(b)
	level := alevel
	primed := aprimed
	if blevel > alevel || (blevel == alevel && bprimed && !aprimed) {
		level, primed = blevel, bprimed
	}
	if f.reduction.isRelation() && !a.terminal() && !b.terminal() && (alevel != blevel || aprimed != bprimed) {
		return f.seterror("apply %s: relation operands are not level-synchronized (a: level %d primed=%v, b: level %d primed=%v)", op, alevel, aprimed, blevel, bprimed)
	}
	bound := f.LevelBound(level)
	temp, err := f.tempNode(level, bound, primed)
	if err != nil {
		return f.seterror("apply %s: %s", op, err)
	}
	la, lb := a, b
	for i := int32(0); i < bound; i++ {
		if alevel == level {
			la = f.Edge(a, i)
		}
		if blevel == level {
			lb = f.Edge(b, i)
		}
		child := f.apply(op, la, lb)
		if serr := f.SetEdge(temp, i, child); serr != nil {
			f.Unlink(child)
			f.DiscardTemp(temp)
			return f.seterror("apply %s: %s", op, serr)
		}
		f.Unlink(child)
	}
	res, rerr := f.Reduce(temp)
	if rerr != nil {
		return f.seterror("apply %s: %s", op, rerr)
	}
	f.cache.Insert(op, a, b, res)
	return res
}

// primedOf reports the primed flag of h, false for a terminal.
func (f *Forest) primedOf(h Handle) bool {
	if h.terminal() {
		return false
	}
	return f.nodes.nodes[h].primed
}
