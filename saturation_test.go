// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package ddcore

import (
	"context"
	"testing"
)

//********************************************************************************************

// TestSaturateLeastFixpoint grounds spec.md §8's Testable property 4:
// Sat(s0) is the least fixpoint of X -> s0 union Image(X, R), checked
// against a hand-computed reachable set for a 3-level binary chain
// "x_k can go from 0 to 1 once x_{k-1} is 1".
func TestSaturateLeastFixpoint(t *testing.T) {
	sf, err := NewForest(MDDSet, []int32{2, 2, 2})
	if err != nil {
		t.Fatalf("NewForest(set): %s", err)
	}
	rf, err := NewForest(MxDRelationIdentity, []int32{2, 2, 2})
	if err != nil {
		t.Fatalf("NewForest(relation): %s", err)
	}

	rel, err := NewRelation(rf)
	if err != nil {
		t.Fatalf("NewRelation: %s", err)
	}
	defer rel.Close()

	// Level 1: x_1 can always go 0 -> 1 (unconditional); it never
	// touches level 2 or 3, so its fragment is bounded to level 1.
	h1, err := rf.RelationFromPairBounded(Minterm{0, 0, 0}, Minterm{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("RelationFromPairBounded level 1: %s", err)
	}
	if err := rel.UnionInto(1, h1); err != nil {
		t.Fatalf("UnionInto(1): %s", err)
	}
	rf.Unlink(h1)

	// Level 2: x_2 can go 0 -> 1 only when x_1 == 1, and x_1 is left
	// unchanged by this event; it never touches level 3, so its
	// fragment is bounded to level 2.
	h2, err := rf.RelationFromPairBounded(Minterm{1, 0, 0}, Minterm{1, 1, 0}, 2)
	if err != nil {
		t.Fatalf("RelationFromPairBounded level 2: %s", err)
	}
	if err := rel.UnionInto(2, h2); err != nil {
		t.Fatalf("UnionInto(2): %s", err)
	}
	rf.Unlink(h2)

	s0, err := sf.MintermToHandle(Minterm{0, 0, 0})
	if err != nil {
		t.Fatalf("MintermToHandle: %s", err)
	}

	res, err := sf.Saturate(context.Background(), rel, s0)
	if err != nil {
		t.Fatalf("Saturate: %s", err)
	}
	defer sf.Unlink(res)

	card, err := sf.Cardinality(res)
	if err != nil {
		t.Fatalf("Cardinality: %s", err)
	}
	// Reachable: (0,0,0), (1,0,0), (1,1,0) -- exactly 3 states.
	if card.String() != "3" {
		t.Errorf("Saturate reachable count: expected 3, actual %s", card.String())
	}

	var got []Minterm
	if err := sf.ForEachMinterm(res, func(m Minterm) error {
		got = append(got, append(Minterm(nil), m...))
		return nil
	}); err != nil {
		t.Fatalf("ForEachMinterm: %s", err)
	}
	want := map[string]bool{"0,0,0": false, "1,0,0": false, "1,1,0": false}
	for _, m := range got {
		key := minKey(m)
		if _, ok := want[key]; !ok {
			t.Errorf("Saturate produced unexpected state %v", m)
			continue
		}
		want[key] = true
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("Saturate did not reach expected state %s", k)
		}
	}
}

func minKey(m Minterm) string {
	out := ""
	for i, v := range m {
		if i > 0 {
			out += ","
		}
		if v < 0 {
			out += "*"
		} else {
			out += string(rune('0' + v))
		}
	}
	return out
}

// TestSaturateRejectsNilRelation grounds Saturate's ErrPartitionMissing
// guard.
func TestSaturateRejectsNilRelation(t *testing.T) {
	sf, err := NewForest(MDDSet, []int32{2})
	if err != nil {
		t.Fatalf("NewForest: %s", err)
	}
	s0, err := sf.MintermToHandle(Minterm{0})
	if err != nil {
		t.Fatalf("MintermToHandle: %s", err)
	}
	if _, err := sf.Saturate(context.Background(), nil, s0); err != ErrPartitionMissing {
		t.Errorf("Saturate(nil relation): expected ErrPartitionMissing, actual %v", err)
	}
	sf.Unlink(s0)
}

// TestSaturateCancellation grounds ctx cancellation unwinding cleanly:
// an already-cancelled context must return ErrInterrupted without
// leaking the Forest into an inconsistent state.
func TestSaturateCancellation(t *testing.T) {
	sf, err := NewForest(MDDSet, []int32{2, 2})
	if err != nil {
		t.Fatalf("NewForest: %s", err)
	}
	rf, err := NewForest(MxDRelationIdentity, []int32{2, 2})
	if err != nil {
		t.Fatalf("NewForest: %s", err)
	}
	rel, err := NewRelation(rf)
	if err != nil {
		t.Fatalf("NewRelation: %s", err)
	}
	defer rel.Close()

	s0, err := sf.MintermToHandle(Minterm{0, 0})
	if err != nil {
		t.Fatalf("MintermToHandle: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sf.Saturate(ctx, rel, s0); err != ErrInterrupted {
		t.Errorf("Saturate with a cancelled context: expected ErrInterrupted, actual %v", err)
	}
}
