// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package ddcore

import "fmt"

// OpCache memoizes (op, a, b) -> res for the recursive set/relation
// operations (ops_union.go, saturation.go). It generalises
// dalzilio-rudd's applycache (cache.go) from a single fixed Apply
// operator over BDD nodes to the open set of Op values this package
// needs, using one direct-mapped table the way rudd's applycache does
// rather than one table per operator: our operators vastly outnumber
// rudd's five, and sizing one table per Op would waste space on the
// operators used rarely (OpConvertIndex, OpCardinality).
type OpCache struct {
	forest *Forest
	table  []cacheEntry
	ratio  int

	hit  int
	miss int
}

type cacheEntry struct {
	valid bool
	op    Op
	a, b  Handle
	res   Handle
}

func newOpCache(f *Forest, cfg *config) *OpCache {
	size := cfg.cachesize
	if size == 0 {
		size = 10000
	}
	c := &OpCache{
		forest: f,
		table:  make([]cacheEntry, primeGte(size)),
		ratio:  cfg.cacheratio,
	}
	return c
}

// normalize brings commutative operand pairs into a canonical order so
// that Union(a,b) and Union(b,a) share one cache entry.
func (c *OpCache) normalize(op Op, a, b Handle) (Handle, Handle) {
	if op.commutative() && a > b {
		return b, a
	}
	return a, b
}

func (c *OpCache) slot(op Op, a, b Handle) int {
	return _TRIPLE(int(a), int(b), int(op), len(c.table))
}

// Lookup returns a cached result for (op, a, b), if present.
func (c *OpCache) Lookup(op Op, a, b Handle) (Handle, bool) {
	a, b = c.normalize(op, a, b)
	e := &c.table[c.slot(op, a, b)]
	if e.valid && e.op == op && e.a == a && e.b == b {
		c.hit++
		return e.res, true
	}
	c.miss++
	return 0, false
}

// Insert records res as the result of (op, a, b). Operands and result
// are cache-referenced to keep them alive while the entry survives
// (spec.md §3's refcount invariant counts cache rows as holders);
// the slot previously occupying this bucket, if any, is released.
func (c *OpCache) Insert(op Op, a, b, res Handle) Handle {
	a, b = c.normalize(op, a, b)
	e := &c.table[c.slot(op, a, b)]
	if e.valid {
		c.forest.cacheUnref(e.a)
		c.forest.cacheUnref(e.b)
		c.forest.cacheUnref(e.res)
	}
	c.forest.cacheRef(a)
	c.forest.cacheRef(b)
	c.forest.cacheRef(res)
	*e = cacheEntry{valid: true, op: op, a: a, b: b, res: res}
	return res
}

// Clear releases every cached entry's holds and empties the table.
func (c *OpCache) Clear() {
	for i := range c.table {
		e := &c.table[i]
		if !e.valid {
			continue
		}
		c.forest.cacheUnref(e.a)
		c.forest.cacheUnref(e.b)
		c.forest.cacheUnref(e.res)
		*e = cacheEntry{}
	}
}

// Resize replaces the table, sized relative to nodesize by ratio (a
// ratio of zero, the default, leaves the cache size untouched).
func (c *OpCache) Resize(nodesize int) {
	c.Clear()
	if c.ratio <= 0 {
		return
	}
	size := primeGte((nodesize * c.ratio) / 100)
	if size < 1 {
		size = 1
	}
	c.table = make([]cacheEntry, size)
}

func (c *OpCache) String() string {
	total := c.hit + c.miss
	rate := 0.0
	if total > 0 {
		rate = float64(c.hit) * 100 / float64(total)
	}
	return fmt.Sprintf("op-cache: %d entries, %d hits, %d misses (%.1f%%)", len(c.table), c.hit, c.miss, rate)
}
