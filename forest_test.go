// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package ddcore

import "testing"

//********************************************************************************************

func TestNewForestRejectsBadBounds(t *testing.T) {
	if _, err := NewForest(MDDSet, nil); err == nil {
		t.Errorf("NewForest(nil bounds): expected error, got nil")
	}
	if _, err := NewForest(MDDSet, []int32{2, 0, 3}); err == nil {
		t.Errorf("NewForest(zero bound): expected error, got nil")
	}
	if _, err := NewForest(MDDSet, []int32{2, -1}); err == nil {
		t.Errorf("NewForest(negative bound): expected error, got nil")
	}
}

func TestForestLevelBound(t *testing.T) {
	f, err := NewForest(MDDSet, []int32{2, 3, 4})
	if err != nil {
		t.Fatalf("NewForest: %s", err)
	}
	if f.NumLevels() != 3 {
		t.Errorf("NumLevels: expected 3, actual %d", f.NumLevels())
	}
	want := []int32{0, 2, 3, 4}
	for k := int32(1); k <= 3; k++ {
		if got := f.LevelBound(k); got != want[k] {
			t.Errorf("LevelBound(%d): expected %d, actual %d", k, want[k], got)
		}
	}
	if got := f.LevelBound(0); got != 0 {
		t.Errorf("LevelBound(0): expected 0, actual %d", got)
	}
	if got := f.LevelBound(4); got != 0 {
		t.Errorf("LevelBound(out of range): expected 0, actual %d", got)
	}
}

//********************************************************************************************

// TestReduceCollapse grounds spec.md §8's Testable property 1: a
// node whose every edge points to the same child collapses to that
// child, and a node with differing edges does not collapse.
func TestReduceCollapse(t *testing.T) {
	f, err := NewForest(MDDSet, []int32{3})
	if err != nil {
		t.Fatalf("NewForest: %s", err)
	}

	temp, err := f.TempNode(1, 3)
	if err != nil {
		t.Fatalf("TempNode: %s", err)
	}
	for i := int32(0); i < 3; i++ {
		if err := f.SetEdge(temp, i, True); err != nil {
			t.Fatalf("SetEdge: %s", err)
		}
	}
	h, err := f.Reduce(temp)
	if err != nil {
		t.Fatalf("Reduce: %s", err)
	}
	if h != True {
		t.Errorf("a node whose every edge is True: expected collapse to True, actual %d", h)
	}

	// Reducing a node with differing edges must not collapse.
	temp2, err := f.TempNode(1, 3)
	if err != nil {
		t.Fatalf("TempNode: %s", err)
	}
	if err := f.SetEdge(temp2, 0, True); err != nil {
		t.Fatalf("SetEdge: %s", err)
	}
	h2, err := f.Reduce(temp2)
	if err != nil {
		t.Fatalf("Reduce: %s", err)
	}
	if h2 == True || h2 == False {
		t.Errorf("a node with differing edges collapsed to a terminal: %d", h2)
	}
	f.Unlink(h)
	f.Unlink(h2)
}

// TestCanonicalizeShares grounds unique-table hash-consing: building
// the same minterm twice must return the same handle.
func TestCanonicalizeShares(t *testing.T) {
	f, err := NewForest(MDDSet, []int32{2, 2})
	if err != nil {
		t.Fatalf("NewForest: %s", err)
	}
	a, err := f.MintermToHandle(Minterm{1, 0})
	if err != nil {
		t.Fatalf("MintermToHandle: %s", err)
	}
	b, err := f.MintermToHandle(Minterm{1, 0})
	if err != nil {
		t.Fatalf("MintermToHandle: %s", err)
	}
	if a != b {
		t.Errorf("two structurally identical minterms: expected the same handle, actual %d vs %d", a, b)
	}
	f.Unlink(a)
	f.Unlink(b)
}

//********************************************************************************************

// TestRefcountInvariant grounds spec.md §8's Testable property 2: a
// node's lifetime is governed by (refcount + cacheCount), and
// Unlink-ing one reference must leave the node readable through a
// second reference that is still live.
func TestRefcountInvariant(t *testing.T) {
	f, err := NewForest(MDDSet, []int32{2})
	if err != nil {
		t.Fatalf("NewForest: %s", err)
	}
	a, err := f.MintermToHandle(Minterm{0})
	if err != nil {
		t.Fatalf("MintermToHandle: %s", err)
	}
	b := f.Link(a)
	f.Unlink(a)
	// b still holds a reference; the node must still resolve.
	if f.LevelOf(b) != 1 {
		t.Errorf("node unlinked while a second reference is still live: LevelOf returned %d, expected 1", f.LevelOf(b))
	}
	f.Unlink(b)
}
