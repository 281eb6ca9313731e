// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package ddcore

import "testing"

//********************************************************************************************

func TestPairInRange(t *testing.T) {
	for a := 0; a < 20; a++ {
		for b := 0; b < 20; b++ {
			if got := _PAIR(a, b, 101); got < 0 || got >= 101 {
				t.Fatalf("_PAIR(%d, %d, 101): expected [0,101), actual %d", a, b, got)
			}
		}
	}
}

func TestPairDistinguishesOrder(t *testing.T) {
	if _PAIR(1, 2, 1009) == _PAIR(2, 1, 1009) {
		t.Errorf("_PAIR(1,2) == _PAIR(2,1): expected the pairing to be order-sensitive")
	}
}

func TestTripleInRange(t *testing.T) {
	for c := 0; c < 10; c++ {
		if got := _TRIPLE(3, 5, c, 101); got < 0 || got >= 101 {
			t.Fatalf("_TRIPLE(3, 5, %d, 101): expected [0,101), actual %d", c, got)
		}
	}
}
