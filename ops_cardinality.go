// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package ddcore

import (
	"fmt"
	"math/big"
)

// boundsProduct multiplies LevelBound(k) for k in [lo, hi], the
// generalisation of dalzilio-rudd's "2^skipped-levels" factor
// (operations.go's Satcount) to per-level domains that need not be
// binary.
func (f *Forest) boundsProduct(lo, hi int32) *big.Int {
	res := big.NewInt(1)
	for k := lo; k <= hi; k++ {
		res.Mul(res, big.NewInt(int64(f.LevelBound(k))))
	}
	return res
}

// Cardinality returns the number of states (for an MDDSet or
// EVPlusIndex forest) encoded by h, accounting for the implicit
// "any value" meaning of every skipped level the way a fully-reduced
// diagram's Satcount must (spec.md §4.5).
func (f *Forest) Cardinality(h Handle) (*big.Int, error) {
	if f.reduction.isRelation() {
		return nil, fmt.Errorf("%w: Cardinality is not defined over a relation forest", ErrIllegalArgument)
	}
	if err := f.checkHandle(h); err != nil {
		return nil, fmt.Errorf("Cardinality: %w", err)
	}
	if h == False {
		return big.NewInt(0), nil
	}
	top := f.boundsProduct(f.LevelOf(h)+1, f.numLevels)
	memo := make(map[Handle]*big.Int)
	sub := f.cardinality(h, memo)
	return top.Mul(top, sub), nil
}

func (f *Forest) cardinality(h Handle, memo map[Handle]*big.Int) *big.Int {
	if h == False {
		return big.NewInt(0)
	}
	if h == True {
		return big.NewInt(1)
	}
	if res, ok := memo[h]; ok {
		return res
	}
	level := f.LevelOf(h)
	res := big.NewInt(0)
	n := &f.nodes.nodes[h]
	n.forEach(func(_ int32, child Handle) {
		if child == False {
			return
		}
		skip := f.boundsProduct(f.LevelOf(child)+1, level-1)
		term := new(big.Int).Mul(skip, f.cardinality(child, memo))
		res.Add(res, term)
	})
	memo[h] = res
	return res
}
