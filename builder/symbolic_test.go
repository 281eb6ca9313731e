// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package builder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticefsm/ddcore"
	"github.com/latticefsm/ddcore/model"
)

func TestBinOpEval(t *testing.T) {
	s := model.State{2, 1}
	cases := []struct {
		name string
		e    Expr
		want int32
	}{
		{"add", BinOp{Op: OpAdd, L: PlaceVar(0), R: Const(3)}, 5},
		{"sub", BinOp{Op: OpSub, L: PlaceVar(0), R: Const(3)}, -1},
		{"ge-true", BinOp{Op: OpGe, L: PlaceVar(0), R: Const(2)}, 1},
		{"ge-false", BinOp{Op: OpGe, L: PlaceVar(1), R: Const(2)}, 0},
		{"lt-true", BinOp{Op: OpLt, L: PlaceVar(1), R: Const(2)}, 1},
		{"and-both-nonzero", BinOp{Op: OpAnd, L: PlaceVar(0), R: PlaceVar(1)}, 1},
		{"and-one-zero", BinOp{Op: OpAnd, L: PlaceVar(1), R: Const(0)}, 0},
		{"unknown-op", BinOp{Op: Operator(99), L: Const(1), R: Const(1)}, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, c.e.Eval(s))
		})
	}
}

// TestEnablingExprConjoinsInputAndInhibitGuards grounds EnablingExpr
// against a transition with both an input and an inhibitor arc: it
// must require the input place at or above its arc weight and the
// inhibitor place strictly below its arc weight.
func TestEnablingExprConjoinsInputAndInhibitGuards(t *testing.T) {
	tr := model.Transition{
		Name:    "t",
		Input:   map[int]int32{0: 1},
		Inhibit: map[int]int32{1: 1},
	}
	require.True(t, EvalEnabled(tr, model.State{1, 0}))
	require.False(t, EvalEnabled(tr, model.State{0, 0}), "input place below arc weight")
	require.False(t, EvalEnabled(tr, model.State{1, 1}), "inhibitor place at its arc weight blocks firing")
}

// TestNextStateExprAppliesInputAndOutput grounds NextStateExpr /
// EvalNextState: a place that is both consumed and produced nets the
// two cardinalities.
func TestNextStateExprAppliesInputAndOutput(t *testing.T) {
	tr := model.Transition{
		Name:   "move",
		Input:  map[int]int32{0: 1},
		Output: map[int]int32{0: 1, 1: 1},
	}
	next := EvalNextState(tr, 2, model.State{1, 0})
	require.Equal(t, model.State{1, 1}, next)
}

// TestPetriNetModelSymbolicPath grounds the symbolic construction path
// end to end: PetriNetModel drives CompleteRelationGivenStates purely
// through Expr evaluation rather
// than model.PetriNet's map-lookup Fire, and must reach the same
// reachable set (the two-place capacity-two chain of spec.md §8
// scenario 1).
func TestPetriNetModelSymbolicPath(t *testing.T) {
	m := &PetriNetModel{
		Places:      []model.Place{{Name: "p1", Capacity: 2}, {Name: "p2", Capacity: 2}},
		Transitions: []model.Transition{{Name: "t", Input: map[int]int32{0: 1}, Output: map[int]int32{1: 1}}},
		Initial:     model.State{2, 0},
	}

	require.Equal(t, int32(2), m.NumLevels())
	require.Equal(t, int32(3), m.LevelBound(1))
	require.Equal(t, int32(0), m.LevelBound(0))
	require.Equal(t, "t", m.EventName(0))
	require.Equal(t, "", m.EventName(5))
	require.Equal(t, int32(2), m.EventTopLevel(0))

	sf, err := ddcore.NewForest(ddcore.MDDSet, bounds2(2, 2))
	require.NoError(t, err)
	rf, err := ddcore.NewForest(ddcore.MxDRelationIdentity, bounds2(2, 2))
	require.NoError(t, err)

	h, rel, err := CompleteRelationGivenStates(context.Background(), m, sf, rf)
	require.NoError(t, err)
	defer sf.Unlink(h)
	defer rel.Close()

	card, err := sf.Cardinality(h)
	require.NoError(t, err)
	require.Equal(t, "3", card.String())
}

// TestPetriNetModelFireRejectsOutOfBounds grounds Fire's bounds check:
// a transition the evaluator would otherwise happily drive past a
// place's capacity must error instead of silently overflowing.
func TestPetriNetModelFireRejectsOutOfBounds(t *testing.T) {
	m := &PetriNetModel{
		Places:      []model.Place{{Name: "p1", Capacity: 1}},
		Transitions: []model.Transition{{Name: "overfill", Output: map[int]int32{0: 1}}},
		Initial:     model.State{1},
	}
	_, err := m.Fire(0, model.State{1})
	require.Error(t, err)
}
