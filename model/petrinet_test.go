// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestTwoPlaceCapacityTwo grounds spec.md §8 scenario 1: places p1,p2
// capacity 2, initial (2,0), one transition p1(1) -> p2(1).
func TestTwoPlaceCapacityTwo(t *testing.T) {
	places := []Place{{Name: "p1", Capacity: 2}, {Name: "p2", Capacity: 2}}
	trans := []Transition{{Name: "t", Input: map[int]int32{0: 1}, Output: map[int]int32{1: 1}}}
	net, err := NewPetriNet(places, trans, State{2, 0})
	require.NoError(t, err)

	s := net.InitialState()
	seen := map[string]bool{}
	for {
		key := fmtState(s)
		if seen[key] {
			break
		}
		seen[key] = true
		if !net.Enabled(0, s) {
			break
		}
		s, err = net.Fire(0, s)
		require.NoError(t, err)
	}
	require.True(t, seen["2,0"])
	require.True(t, seen["1,1"])
	require.True(t, seen["0,2"])
	require.Len(t, seen, 3)
}

// TestInhibitorGate grounds spec.md §8 scenario 4.
func TestInhibitorGate(t *testing.T) {
	places := []Place{{Name: "a", Capacity: 2}, {Name: "b", Capacity: 2}}
	trans := []Transition{{
		Name:    "t",
		Input:   map[int]int32{0: 1},
		Inhibit: map[int]int32{1: 1},
		Output:  map[int]int32{1: 1},
	}}
	net, err := NewPetriNet(places, trans, State{2, 0})
	require.NoError(t, err)

	require.True(t, net.Enabled(0, State{2, 0}))
	next, err := net.Fire(0, State{2, 0})
	require.NoError(t, err)
	require.Equal(t, State{1, 1}, next)

	require.False(t, net.Enabled(0, State{1, 1}), "b already holds a token, inhibitor blocks t")
}

// TestProducerConsumer grounds spec.md §8 scenario 2: capacity 3,
// reachable set size 16.
func TestProducerConsumer(t *testing.T) {
	places := []Place{{Name: "produced", Capacity: 3}, {Name: "consumed", Capacity: 3}}
	trans := []Transition{
		{Name: "produce", Output: map[int]int32{0: 1}},
		{Name: "consume", Input: map[int]int32{0: 1}, Output: map[int]int32{1: 1}},
	}
	net, err := NewPetriNet(places, trans, State{0, 0})
	require.NoError(t, err)

	seen := map[string]State{}
	frontier := []State{net.InitialState()}
	seen[fmtState(frontier[0])] = frontier[0]
	for len(frontier) > 0 {
		s := frontier[0]
		frontier = frontier[1:]
		for e := range trans {
			if !net.Enabled(e, s) {
				continue
			}
			next, err := net.Fire(e, s)
			require.NoError(t, err)
			key := fmtState(next)
			if _, ok := seen[key]; !ok {
				seen[key] = next
				frontier = append(frontier, next)
			}
		}
	}
	require.Len(t, seen, 16)
}

// TestEventTopLevel grounds the TopLevelHint contract: a transition's
// top level is the highest place index among its input/output arcs,
// 1-based, and never the arcs it only inhibits on.
func TestEventTopLevel(t *testing.T) {
	places := []Place{{Name: "a", Capacity: 2}, {Name: "b", Capacity: 2}, {Name: "c", Capacity: 2}}
	trans := []Transition{
		{Name: "inputOnly", Input: map[int]int32{0: 1}},
		{Name: "outputOnly", Output: map[int]int32{2: 1}},
		{Name: "inhibitOnly", Inhibit: map[int]int32{1: 1}},
		{Name: "none"},
	}
	net, err := NewPetriNet(places, trans, State{1, 0, 0})
	require.NoError(t, err)

	require.Equal(t, int32(1), net.EventTopLevel(0), "input-only arc at place 0 tops out at level 1")
	require.Equal(t, int32(3), net.EventTopLevel(1), "output-only arc at place 2 tops out at level 3")
	require.Equal(t, int32(0), net.EventTopLevel(2), "an inhibitor-only transition never moves a token")
	require.Equal(t, int32(0), net.EventTopLevel(3), "a transition with no arcs touches nothing")
}

// TestNewPetriNetValidation grounds the constructor's validation of
// place count, initial-marking shape/bounds, and arc place references.
func TestNewPetriNetValidation(t *testing.T) {
	places := []Place{{Name: "p", Capacity: 1}}

	_, err := NewPetriNet(nil, nil, State{})
	require.Error(t, err, "a net with no places must be rejected")

	_, err = NewPetriNet(places, nil, State{0, 0})
	require.Error(t, err, "initial marking length must match place count")

	_, err = NewPetriNet(places, nil, State{2})
	require.Error(t, err, "initial marking must respect place capacity")

	_, err = NewPetriNet(places, []Transition{{Name: "t", Input: map[int]int32{5: 1}}}, State{0})
	require.Error(t, err, "a transition referencing an out-of-range input place must be rejected")

	_, err = NewPetriNet(places, []Transition{{Name: "t", Inhibit: map[int]int32{5: 1}}}, State{0})
	require.Error(t, err, "a transition referencing an out-of-range inhibitor place must be rejected")

	_, err = NewPetriNet(places, []Transition{{Name: "t", Output: map[int]int32{5: 1}}}, State{0})
	require.Error(t, err, "a transition referencing an out-of-range output place must be rejected")

	net, err := NewPetriNet(places, nil, State{1})
	require.NoError(t, err)
	require.Equal(t, "", net.EventName(0), "EventName on an out-of-range event returns empty")
}

// TestEnabledRejectsOutputOverflow grounds Enabled's capacity
// lookahead: a transition whose net effect would overflow a place's
// capacity is not enabled even if its input/inhibitor guards hold.
func TestEnabledRejectsOutputOverflow(t *testing.T) {
	places := []Place{{Name: "p", Capacity: 1}}
	trans := []Transition{{Name: "fill", Output: map[int]int32{0: 1}}}
	net, err := NewPetriNet(places, trans, State{1})
	require.NoError(t, err)
	require.False(t, net.Enabled(0, State{1}), "producing into an already-full place must not be enabled")
	require.True(t, net.Enabled(0, State{0}))
}

func fmtState(s State) string {
	out := ""
	for i, v := range s {
		if i > 0 {
			out += ","
		}
		out += itoa(v)
	}
	return out
}

func itoa(v int32) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
