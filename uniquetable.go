// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package ddcore

import (
	"strconv"
	"strings"
)

// uniqueTable maps the canonical contents of a node (level, primed
// flag, and edge list) to the single handle that represents it,
// enforcing the "two structurally equal nodes share a handle"
// invariant of spec.md §3.
//
// dalzilio-rudd hashes a fixed-size (level, low, high) triple into a
// byte array because a BDD node always has exactly two edges
// (hashing.go / hkernel.go's nodehash). Our nodes have a
// level-dependent, possibly sparse edge count, so we hash a variable-
// length encoded key instead of a fixed byte array; a Go map already
// gives us the open-addressing + automatic-rehash behaviour that
// dalzilio-rudd's hudd.go hand-rolls around map[[huddsize]byte]int.
type uniqueTable struct {
	table map[string]Handle
}

func newUniqueTable(hint int) *uniqueTable {
	return &uniqueTable{table: make(map[string]Handle, hint)}
}

// signature builds the canonical string signature for a node described by
// level, primed, and its edges (either full or sparse — the signature
// is independent of which representation produced it, since
// spec.md §3 requires canonicality to be a property of the edge
// values, not of the sparse/full storage choice).
func (n *node) signature() string {
	var b strings.Builder
	b.Grow(4 + n.size()*6)
	b.WriteString(strconv.Itoa(int(n.level)))
	b.WriteByte(':')
	if n.primed {
		b.WriteByte('P')
	} else {
		b.WriteByte('U')
	}
	n.forEach(func(i int32, h Handle) {
		if h == False {
			return
		}
		b.WriteByte(';')
		b.WriteString(strconv.Itoa(int(i)))
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(int(h)))
	})
	return b.String()
}

func (t *uniqueTable) lookup(key string) (Handle, bool) {
	h, ok := t.table[key]
	return h, ok
}

func (t *uniqueTable) insert(key string, h Handle) {
	t.table[key] = h
}

func (t *uniqueTable) remove(key string) {
	delete(t.table, key)
}

func (t *uniqueTable) len() int {
	return len(t.table)
}
