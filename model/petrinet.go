// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package model

import "fmt"

// Place is one state variable of a Petri net: a token count bounded
// by Capacity (spec.md §8 scenario 1's "capacity-2 Petri net").
type Place struct {
	Name     string
	Capacity int32 // domain is [0, Capacity]
}

// Transition is one event of a Petri net, with input/inhibitor/output
// arcs given as place-index -> cardinality maps, grounded directly on
// original_source/.../Formalisms/spn.cc's spn_arcinfo (input, output,
// inhibitor arc lists keyed by place, each carrying a cardinality) —
// re-expressed as plain maps instead of a listarray of arc structs.
type Transition struct {
	Name    string
	Input   map[int]int32 // place index -> required token count
	Inhibit map[int]int32 // place index -> forbidden-at-or-above count
	Output  map[int]int32 // place index -> tokens produced
}

// PetriNet is a place/transition net with finite place capacities,
// satisfying the Model interface via the arc logic spec.md §4.8
// describes: "for each transition, conjoin place_token_count >=
// input_card over inputs, place_token_count < inhibitor_card over
// inhibitors, form next-state as place - input_card + output_card".
type PetriNet struct {
	Places      []Place
	Transitions []Transition
	Initial     State
}

// NewPetriNet validates the net's arcs against its place count and
// capacities, and that Initial is in-bound.
func NewPetriNet(places []Place, transitions []Transition, initial State) (*PetriNet, error) {
	if len(places) == 0 {
		return nil, fmt.Errorf("model: a Petri net needs at least one place")
	}
	if len(initial) != len(places) {
		return nil, fmt.Errorf("model: initial marking has %d values, net has %d places", len(initial), len(places))
	}
	for i, v := range initial {
		if v < 0 || v > places[i].Capacity {
			return nil, fmt.Errorf("model: initial marking at place %q (%d) exceeds capacity %d", places[i].Name, v, places[i].Capacity)
		}
	}
	for _, tr := range transitions {
		for idx := range tr.Input {
			if idx < 0 || idx >= len(places) {
				return nil, fmt.Errorf("model: transition %q references unknown place %d", tr.Name, idx)
			}
		}
		for idx := range tr.Inhibit {
			if idx < 0 || idx >= len(places) {
				return nil, fmt.Errorf("model: transition %q references unknown place %d", tr.Name, idx)
			}
		}
		for idx := range tr.Output {
			if idx < 0 || idx >= len(places) {
				return nil, fmt.Errorf("model: transition %q references unknown place %d", tr.Name, idx)
			}
		}
	}
	return &PetriNet{Places: places, Transitions: transitions, Initial: initial.Clone()}, nil
}

func (n *PetriNet) NumLevels() int32 { return int32(len(n.Places)) }

func (n *PetriNet) LevelBound(k int32) int32 {
	if k < 1 || int(k) > len(n.Places) {
		return 0
	}
	return n.Places[k-1].Capacity + 1
}

func (n *PetriNet) InitialState() State { return n.Initial.Clone() }

func (n *PetriNet) NumEvents() int { return len(n.Transitions) }

func (n *PetriNet) EventName(e int) string {
	if e < 0 || e >= len(n.Transitions) {
		return ""
	}
	return n.Transitions[e].Name
}

// Enabled implements the conjoined input/inhibitor guard of spec.md
// §4.8 over marking s.
func (n *PetriNet) Enabled(e int, s State) bool {
	tr := n.Transitions[e]
	for place, card := range tr.Input {
		if s[place] < card {
			return false
		}
	}
	for place, card := range tr.Inhibit {
		if s[place] >= card {
			return false
		}
	}
	for place, produced := range tr.Output {
		if s[place]+produced-tr.Input[place] > n.Places[place].Capacity {
			return false
		}
	}
	return true
}

// EventTopLevel implements TopLevelHint: a transition can only ever
// change a place it has an input or output arc to (Inhibit arcs gate
// firing but never move tokens), so its top level is the highest such
// place index, 1-based.
func (n *PetriNet) EventTopLevel(e int) int32 {
	tr := n.Transitions[e]
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

// Fire applies tr's input/output arcs: next = place - input_card +
// output_card, per place.
func (n *PetriNet) Fire(e int, s State) (State, error) {
	tr := n.Transitions[e]
	next := s.Clone()
	for place, card := range tr.Input {
		next[place] -= card
	}
	for place, card := range tr.Output {
		next[place] += card
	}
	for i, v := range next {
		if v < 0 || v > n.Places[i].Capacity {
			return nil, fmt.Errorf("model: firing %q drives place %q out of bounds (%d)", tr.Name, n.Places[i].Name, v)
		}
	}
	return next, nil
}
