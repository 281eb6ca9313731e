// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package ddcore

import "fmt"

// Forest bundles a NodeStore, a UniqueTable, and one reduction rule
// over one shared variable order (spec.md §4.3). It is the typed
// wrapper consumers build sets (MDD_SET, EVPLUS_INDEX) or relations
// (MXD_RELATION_IDENTITY, MXD_RELATION_QUASI) in.
//
// Forest plays the role dalzilio-rudd's *BDD plays for a single
// Boolean variable order; the difference is that a Forest's levels
// carry arbitrary finite domains instead of a fixed {0,1}, and a
// single process may hold several Forests over the same order (one
// per reduction rule) the way a saturation engine needs both a
// set forest for reachable states and a relation forest for the
// next-state function.
type Forest struct {
	reduction Reduction
	bounds    []int32 // bounds[k] is the domain size of level k, index 0 unused
	numLevels int32

	nodes  *nodeStore
	unique *uniqueTable
	cache  *OpCache

	cfg config
	err error
}

// NewForest creates a Forest over levels 1..len(bounds), where
// bounds[k-1] is the domain size of level k (bounds is 0-indexed by
// level-1 the way a front-end's ordered variable list naturally is).
func NewForest(reduction Reduction, bounds []int32, opts ...Option) (*Forest, error) {
	if len(bounds) == 0 {
		return nil, fmt.Errorf("%w: forest needs at least one level", ErrIllegalArgument)
	}
	for _, b := range bounds {
		if b < 1 {
			return nil, fmt.Errorf("%w: level bound must be positive", ErrIllegalArgument)
		}
	}
	if len(bounds) > _MAXLEVEL {
		return nil, fmt.Errorf("%w: too many levels", ErrIllegalArgument)
	}
	cfg := makeconfig(len(bounds))
	for _, f := range opts {
		f(cfg)
	}
	full := make([]int32, len(bounds)+1)
	copy(full[1:], bounds)
	f := &Forest{
		reduction: reduction,
		bounds:    full,
		numLevels: int32(len(bounds)),
		nodes:     newNodeStore(primeGte(cfg.nodesize), cfg),
		unique:    newUniqueTable(cfg.nodesize),
		cfg:       *cfg,
	}
	f.cache = newOpCache(f, cfg)
	return f, nil
}

// Reduction returns the reduction rule this Forest was created with.
func (f *Forest) Reduction() Reduction { return f.reduction }

// NumLevels returns the number of variable levels (1..NumLevels).
func (f *Forest) NumLevels() int32 { return f.numLevels }

// LevelBound returns the domain size [0, bound) of level k.
func (f *Forest) LevelBound(k int32) int32 {
	if k < 1 || k > f.numLevels {
		return 0
	}
	return f.bounds[k]
}

// Terminal returns the reserved handle for the constant value v: True
// (the full set / the relation's identity continuation) or False (the
// empty set / no relation).
func (f *Forest) Terminal(v bool) Handle {
	if v {
		return True
	}
	return False
}

// LevelOf returns the level of handle h, or 0 for a terminal.
func (f *Forest) LevelOf(h Handle) int32 {
	if h.terminal() {
		return 0
	}
	return f.nodes.nodes[h].level
}

// SizeOf returns the number of edges stored for h (bound(level) if
// full, the nonzero count if sparse). Terminals have size 0.
func (f *Forest) SizeOf(h Handle) int {
	if h.terminal() {
		return 0
	}
	return f.nodes.nodes[h].size()
}

// IsSparse reports whether h is stored in sparse form.
func (f *Forest) IsSparse(h Handle) bool {
	if h.terminal() {
		return false
	}
	return f.nodes.nodes[h].sparse()
}

// Edge returns the child reached from h via index i, or False if h is
// terminal-False or the index is absent from a sparse node.
func (f *Forest) Edge(h Handle, i int32) Handle {
	switch h {
	case False:
		return False
	case True:
		return True
	}
	return f.nodes.nodes[h].edgeAt(i)
}

// link increments the refcount of a canonical handle. Terminals are
// no-ops, matching dalzilio-rudd's AddRef.
func (f *Forest) link(h Handle) Handle {
	if h.terminal() {
		return h
	}
	f.nodes.nodes[h].refcount++
	return h
}

// Link is the externally-visible form of link: callers that intend to
// hold a handle across calls that might trigger recycling must call
// Link first, and Unlink when done.
func (f *Forest) Link(h Handle) Handle { return f.link(h) }

// Unlink decrements the refcount of a canonical handle and, if both
// the refcount and the cache-count have reached zero, recycles the
// node and cascades the unlink to its children (spec.md §3's
// "Refcount invariant").
func (f *Forest) Unlink(h Handle) {
	if h.terminal() {
		return
	}
	n := &f.nodes.nodes[h]
	if n.refcount <= 0 {
		return
	}
	n.refcount--
	f.maybeRecycle(h)
}

func (f *Forest) cacheRef(h Handle) {
	if h.terminal() {
		return
	}
	f.nodes.nodes[h].cacheCount++
}

func (f *Forest) cacheUnref(h Handle) {
	if h.terminal() {
		return
	}
	n := &f.nodes.nodes[h]
	if n.cacheCount <= 0 {
		return
	}
	n.cacheCount--
	f.maybeRecycle(h)
}

func (f *Forest) maybeRecycle(h Handle) {
	n := &f.nodes.nodes[h]
	if n.refcount > 0 || n.cacheCount > 0 {
		return
	}
	children := make([]Handle, 0, n.size())
	n.forEach(func(_ int32, c Handle) {
		if !c.terminal() {
			children = append(children, c)
		}
	})
	if n.key != "" {
		f.unique.remove(n.key)
	}
	f.nodes.recycle(h)
	for _, c := range children {
		f.Unlink(c)
	}
}

// TempNode allocates a mutable, not-yet-canonical node at level with
// size edges, all initially False. It has exactly one holder (the
// caller) until Reduce or DiscardTemp consumes it.
func (f *Forest) TempNode(level int32, size int32) (Handle, error) {
	return f.tempNode(level, size, false)
}

func (f *Forest) tempNode(level int32, size int32, primed bool) (Handle, error) {
	if level < 1 || level > f.numLevels {
		return 0, fmt.Errorf("%w: level %d out of range", ErrIllegalArgument, level)
	}
	h, err := f.nodes.alloc()
	if err != nil {
		return 0, err
	}
	f.nodes.nodes[h] = node{
		level: level,
		primed: primed,
		full:  make([]Handle, size),
	}
	return h, nil
}

// isTemp reports whether h is a live, not-yet-reduced temp node.
func (f *Forest) isTemp(h Handle) bool {
	if h.terminal() || int(h) >= len(f.nodes.nodes) {
		return false
	}
	n := &f.nodes.nodes[h]
	return !n.isFree() && n.key == ""
}

// SetEdge sets the child at index i of the temp node h, taking a
// ownership share of child (spec.md §4.3: "takes ownership share of
// child"). Replacing a previously set edge unlinks the old target
// first.
func (f *Forest) SetEdge(h Handle, i int32, child Handle) error {
	if !f.isTemp(h) {
		return fmt.Errorf("%w: SetEdge on a non-temp handle", ErrIllegalArgument)
	}
	n := &f.nodes.nodes[h]
	if i < 0 || int(i) >= len(n.full) {
		return fmt.Errorf("%w: index %d out of range for size %d", ErrIllegalArgument, i, len(n.full))
	}
	if !child.terminal() {
		cn := &f.nodes.nodes[child]
		childOK := cn.level < n.level || (cn.level == n.level && cn.primed && !n.primed)
		if !childOK {
			return fmt.Errorf("%w: edge must point strictly below its parent's level", ErrInternal)
		}
	}
	old := n.full[i]
	if old == child {
		return nil
	}
	f.Unlink(old)
	f.link(child)
	n.full[i] = child
	return nil
}

// DiscardTemp abandons a temp node without canonicalising it, unlinking
// every edge it was holding. Used on the unwind path of a failed
// construction (spec.md §7).
func (f *Forest) DiscardTemp(h Handle) {
	if !f.isTemp(h) {
		return
	}
	n := &f.nodes.nodes[h]
	n.forEach(func(_ int32, c Handle) { f.Unlink(c) })
	f.nodes.recycle(h)
}

// collapseTarget checks the set-MDD redundant-node rule: a node whose
// every edge points to the same child c collapses to c.
func collapseTarget(n *node) (Handle, bool) {
	var c Handle
	set := false
	ok := true
	n.forEach(func(i int32, h Handle) {
		if !ok {
			return
		}
		if !set {
			c, set = h, true
			return
		}
		if h != c {
			ok = false
		}
	})
	if !ok {
		return 0, false
	}
	if int(len(n.full)) != n.size() {
		// a sparse construction never reaches this path (temp nodes
		// are always built full, see TempNode), kept for safety.
		return 0, false
	}
	if !set {
		return False, true
	}
	return c, true
}

// identityRow checks whether p (a primed node, or a terminal) encodes
// "row maps only to col == row, continuation x", the shape the
// identity-reduced collapse rule requires of every row of an unprimed
// node before the whole level can be skipped.
func (f *Forest) identityRow(p Handle, row int32) (Handle, bool) {
	if p == False {
		return False, true
	}
	if p.terminal() {
		return 0, false
	}
	n := &f.nodes.nodes[p]
	if !n.primed {
		return 0, false
	}
	var target Handle
	found := false
	ok := true
	n.forEach(func(j int32, h Handle) {
		if h == False || !ok {
			return
		}
		if j != row {
			ok = false
			return
		}
		target, found = h, true
	})
	if !ok {
		return 0, false
	}
	if !found {
		return False, true
	}
	return target, true
}

// collapseIdentity checks the identity-reduced MxD rule: an unprimed
// node at level k collapses to x when, for every row i, it behaves as
// the identity (i -> i, continuation x) for a single common x. Every
// row in [0, bound) must be checked explicitly via edgeAt rather than
// n.forEach: a sparsely-stored node only visits its nonzero entries,
// and a row missing from a sparse node is a real guard ("no
// transition when x_k == row"), not an implicit identity continuation
// — conflating the two would collapse away (and silently drop) a
// transition's enabling condition on this level.
func (f *Forest) collapseIdentity(n *node) (Handle, bool) {
	bound := f.LevelBound(n.level)
	var x Handle
	set := false
	for row := int32(0); row < bound; row++ {
		target, ok := f.identityRow(n.edgeAt(row), row)
		if !ok {
			return 0, false
		}
		if !set {
			x, set = target, true
			continue
		}
		if target != x {
			return 0, false
		}
	}
	if !set {
		return False, true
	}
	return x, true
}

// Reduce canonicalises temp node h: it applies the Forest's reduction
// rule, merges with an existing structurally-equal canonical node if
// one exists, and otherwise installs h itself as a new canonical node.
// After Reduce returns, the temp handle h is no longer valid — the
// returned Handle is owned by the caller (one implicit reference) and
// must eventually be passed to Unlink.
func (f *Forest) Reduce(h Handle) (Handle, error) {
	if !f.isTemp(h) {
		return 0, fmt.Errorf("%w: Reduce on a non-temp handle", ErrIllegalArgument)
	}
	n := &f.nodes.nodes[h]

	if !n.primed {
		var target Handle
		var collapsible bool
		switch f.reduction {
		case MDDSet, EVPlusIndex:
			target, collapsible = collapseTarget(n)
		case MxDRelationIdentity:
			target, collapsible = f.collapseIdentity(n)
		}
		if collapsible {
			n.forEach(func(_ int32, c Handle) {
				if c != False {
					f.Unlink(c)
				}
			})
			f.nodes.recycle(h)
			return f.link(target), nil
		}
	}

	return f.canonicalize(h)
}

// canonicalize installs temp node h as a canonical node, merging with
// an existing structurally-equal entry of the UniqueTable when one
// exists. It performs no redundant-node collapse; callers that need a
// reduction rule's collapse check must apply it first (Reduce does so
// for MDDSet/EVPlusIndex/MxDRelationIdentity; forest_relation.go's
// identity-reduction conversion pass applies the same collapse check
// out of band, against a source node that is not this Forest's
// current reduction rule).
func (f *Forest) canonicalize(h Handle) (Handle, error) {
	n := &f.nodes.nodes[h]
	rep := f.chooseRepresentation(n)
	key := rep.signature()
	if existing, ok := f.unique.lookup(key); ok {
		rep.forEach(func(_ int32, c Handle) { f.Unlink(c) })
		f.nodes.recycle(h)
		return f.link(existing), nil
	}
	*n = rep
	n.key = key
	n.refcount = 1
	f.unique.insert(key, h)
	return h, nil
}

// chooseRepresentation decides between full and sparse storage for a
// node built densely by TempNode/SetEdge, per the
// ReductionThresholdSparse configuration (spec.md §4.3).
func (f *Forest) chooseRepresentation(n *node) node {
	size := len(n.full)
	nnz := 0
	for _, h := range n.full {
		if h != False {
			nnz++
		}
	}
	out := *n
	if float64(nnz) <= float64(size)*f.cfg.reductionThresholdSparse {
		idx := make([]int32, 0, nnz)
		val := make([]Handle, 0, nnz)
		for i, h := range n.full {
			if h != False {
				idx = append(idx, int32(i))
				val = append(val, h)
			}
		}
		out.full = nil
		out.idx = idx
		out.val = val
	} else {
		out.full = append([]Handle(nil), n.full...)
	}
	return out
}
