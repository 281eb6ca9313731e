// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateCloneIsIndependent(t *testing.T) {
	s := State{1, 2, 3}
	c := s.Clone()
	require.Equal(t, s, c)
	c[0] = 99
	require.NotEqual(t, s[0], c[0], "Clone: expected the copy to be independent of the original")
}

func TestStateEqual(t *testing.T) {
	require.True(t, State{1, 2}.Equal(State{1, 2}))
	require.False(t, State{1, 2}.Equal(State{1, 3}))
	require.False(t, State{1, 2}.Equal(State{1, 2, 3}), "different lengths must not be equal")
}
