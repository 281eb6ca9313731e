// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package builder

import (
	"fmt"

	"github.com/latticefsm/ddcore/model"
)

// Expr is a small arithmetic/boolean expression tree evaluated
// against a model.State, replacing the distillation's
// runtime-built polymorphic `internal_tk`/binary-op objects
// (original_source/.../Formalisms/spn.cc) with a plain AST and one
// recursive Eval, per spec.md §9's "re-implement as a small
// evaluator, not as runtime-built polymorphic objects".
type Expr interface {
	Eval(s model.State) int32
}

// Const is a literal integer expression.
type Const int32

func (c Const) Eval(model.State) int32 { return int32(c) }

// PlaceVar reads the token count of one place from the state vector —
// the AST equivalent of spn.cc's internal_tk.
type PlaceVar int

func (p PlaceVar) Eval(s model.State) int32 { return s[p] }

// BinOp applies one of the arithmetic/comparison operators to two
// subexpressions.
type BinOp struct {
	Op   Operator
	L, R Expr
}

// Operator enumerates the arithmetic and comparison operators BinOp
// supports.
type Operator int

const (
	OpAdd Operator = iota
	OpSub
	OpGe // >=
	OpLt // <
	OpAnd
)

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func (b BinOp) Eval(s model.State) int32 {
	l, r := b.L.Eval(s), b.R.Eval(s)
	switch b.Op {
	case OpAdd:
		return l + r
	case OpSub:
		return l - r
	case OpGe:
		return boolToInt(l >= r)
	case OpLt:
		return boolToInt(l < r)
	case OpAnd:
		return boolToInt(l != 0 && r != 0)
	default:
		return 0
	}
}

// EnablingExpr builds the conjoined guard expression for transition
// tr: AND of (place >= input_card) for every
// input arc and (place < inhibitor_card) for every inhibitor arc —
// literally spec.md §4.8's "for each transition, conjoin
// place_token_count >= input_card over inputs, place_token_count <
// inhibitor_card over inhibitors".
func EnablingExpr(tr model.Transition) Expr {
	var guard Expr = Const(1)
	for place, card := range tr.Input {
		guard = BinOp{Op: OpAnd, L: guard, R: BinOp{Op: OpGe, L: PlaceVar(place), R: Const(card)}}
	}
	for place, card := range tr.Inhibit {
		guard = BinOp{Op: OpAnd, L: guard, R: BinOp{Op: OpLt, L: PlaceVar(place), R: Const(card)}}
	}
	return guard
}

// NextStateExpr builds the next-marking expression for one place
// under transition tr: place - input_card + output_card (spec.md
// §4.8).
func NextStateExpr(tr model.Transition, place int) Expr {
	var e Expr = PlaceVar(place)
	if card, ok := tr.Input[place]; ok {
		e = BinOp{Op: OpSub, L: e, R: Const(card)}
	}
	if card, ok := tr.Output[place]; ok {
		e = BinOp{Op: OpAdd, L: e, R: Const(card)}
	}
	return e
}

// EvalNextState evaluates tr's NextStateExpr for every place, used by
// the symbolic construction path as an alternative to model.Fire when
// the caller only has an arc-logic description rather than a Model
// implementation (spec.md §4.8 "symbolic construction").
func EvalNextState(tr model.Transition, numPlaces int, s model.State) model.State {
	next := make(model.State, numPlaces)
	for p := 0; p < numPlaces; p++ {
		next[p] = NextStateExpr(tr, p).Eval(s)
	}
	return next
}

// EvalEnabled evaluates tr's EnablingExpr against s.
func EvalEnabled(tr model.Transition, s model.State) bool {
	return EnablingExpr(tr).Eval(s) != 0
}

// PetriNetModel wraps a raw slice of transitions behind the symbolic
// evaluator, letting BuilderFront drive a Petri net purely through
// Expr trees instead of model.PetriNet's direct map lookups — the
// "symbolic construction" path of spec.md §4.8, as distinct from
// model.PetriNet's explicit-generation-friendly Enabled/Fire.
type PetriNetModel struct {
	Places      []model.Place
	Transitions []model.Transition
	Initial     model.State
}

func (p *PetriNetModel) NumLevels() int32 { return int32(len(p.Places)) }

func (p *PetriNetModel) LevelBound(k int32) int32 {
	if k < 1 || int(k) > len(p.Places) {
		return 0
	}
	return p.Places[k-1].Capacity + 1
}

func (p *PetriNetModel) InitialState() model.State { return p.Initial.Clone() }

func (p *PetriNetModel) NumEvents() int { return len(p.Transitions) }

func (p *PetriNetModel) EventName(e int) string {
	if e < 0 || e >= len(p.Transitions) {
		return ""
	}
	return p.Transitions[e].Name
}

func (p *PetriNetModel) Enabled(e int, s model.State) bool {
	return EvalEnabled(p.Transitions[e], s)
}

// EventTopLevel implements model.TopLevelHint the same way
// model.PetriNet does: the highest place index tr's input/output arcs
// reach, 1-based (inhibitor arcs gate but never move a token).
func (p *PetriNetModel) EventTopLevel(e int) int32 {
	tr := p.Transitions[e]
	top := -1
	for place := range tr.Input {
		if place > top {
			top = place
		}
	}
	for place := range tr.Output {
		if place > top {
			top = place
		}
	}
	return int32(top + 1)
}

func (p *PetriNetModel) Fire(e int, s model.State) (model.State, error) {
	tr := p.Transitions[e]
	next := EvalNextState(tr, len(p.Places), s)
	for i, v := range next {
		if v < 0 || v > p.Places[i].Capacity {
			return nil, fmt.Errorf("builder: firing %q drives place %q out of bounds (%d)", tr.Name, p.Places[i].Name, v)
		}
	}
	return next, nil
}

var (
	_ model.Model        = (*PetriNetModel)(nil)
	_ model.TopLevelHint = (*PetriNetModel)(nil)
)
