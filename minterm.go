// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package ddcore

import "fmt"

// Minterm is one complete assignment of values to every level of a set
// forest, in level order (Minterm[k-1] is the value at level k).
type Minterm []int32

// MintermToHandle builds the singleton-set handle {m} by chaining one
// temp node per level, bottom level first, the way a BDD front-end
// builds a single cube one Ithvar at a time before Applying AND across
// them (dalzilio-rudd/operations.go's Makeset) — except here the whole
// cube is built directly since there is no intermediate "literal"
// handle to share.
func (f *Forest) MintermToHandle(m Minterm) (Handle, error) {
	if f.reduction.isRelation() {
		return 0, fmt.Errorf("%w: MintermToHandle needs a set forest", ErrIllegalArgument)
	}
	if int32(len(m)) != f.numLevels {
		return 0, fmt.Errorf("%w: minterm has %d values, forest has %d levels", ErrIllegalArgument, len(m), f.numLevels)
	}
	cur := True
	for k := int32(1); k <= f.numLevels; k++ {
		v := m[k-1]
		bound := f.LevelBound(k)
		if v < 0 || v >= bound {
			f.Unlink(cur)
			return 0, fmt.Errorf("%w: value %d out of bound at level %d", ErrIllegalArgument, v, k)
		}
		temp, err := f.TempNode(k, bound)
		if err != nil {
			f.Unlink(cur)
			return 0, err
		}
		if err := f.SetEdge(temp, v, cur); err != nil {
			f.Unlink(cur)
			f.DiscardTemp(temp)
			return 0, err
		}
		f.Unlink(cur)
		cur, err = f.Reduce(temp)
		if err != nil {
			return 0, err
		}
	}
	return cur, nil
}

// UnionMinterms builds the union of a minterm batch (spec.md §4.5's
// "minterm batch build"); inputs need not be sorted. Each minterm is
// converted with MintermToHandle and folded into the running result
// with Union, one minterm at a time; the batch is not built in a single
// bottom-up pass. Handles are individually unlinked as they fold into
// the running union, leaving the caller owning exactly the final handle.
func (f *Forest) UnionMinterms(batch []Minterm) (Handle, error) {
	acc := False
	for _, m := range batch {
		h, err := f.MintermToHandle(m)
		if err != nil {
			f.Unlink(acc)
			return 0, err
		}
		next := f.Union(acc, h)
		f.Unlink(acc)
		f.Unlink(h)
		if f.Errored() {
			return 0, fmt.Errorf("%w: %s", ErrInternal, f.Error())
		}
		acc = next
	}
	return acc, nil
}

// ForEachMinterm enumerates every minterm accepted by h, calling visit
// once per minterm. A level skipped by reduction is expanded: visit is
// called once for each value in that level's domain, so the number of
// calls equals Cardinality(h). Enumeration stops early if visit
// returns an error.
func (f *Forest) ForEachMinterm(h Handle, visit func(Minterm) error) error {
	if f.reduction.isRelation() {
		return fmt.Errorf("%w: ForEachMinterm needs a set forest", ErrIllegalArgument)
	}
	if err := f.checkHandle(h); err != nil {
		return fmt.Errorf("ForEachMinterm: %w", err)
	}
	profile := make(Minterm, f.numLevels)
	for i := range profile {
		profile[i] = -1
	}
	return f.forEachMinterm(h, f.numLevels, profile, visit)
}

func (f *Forest) forEachMinterm(h Handle, level int32, profile Minterm, visit func(Minterm) error) error {
	if h == False {
		return nil
	}
	if level == 0 {
		if h != True {
			return fmt.Errorf("%w: handle below level 0 is not terminal-True", ErrInternal)
		}
		cp := make(Minterm, len(profile))
		copy(cp, profile)
		return visit(cp)
	}
	if f.LevelOf(h) < level {
		for v := int32(0); v < f.LevelBound(level); v++ {
			profile[level-1] = v
			if err := f.forEachMinterm(h, level-1, profile, visit); err != nil {
				return err
			}
		}
		return nil
	}
	n := &f.nodes.nodes[h]
	var err error
	n.forEach(func(i int32, child Handle) {
		if err != nil || child == False {
			return
		}
		profile[level-1] = i
		err = f.forEachMinterm(child, level-1, profile, visit)
	})
	return err
}
