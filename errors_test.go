// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package ddcore

import "testing"

//********************************************************************************************

func TestForestErrorReportsNoErrorInitially(t *testing.T) {
	f, err := NewForest(MDDSet, []int32{2})
	if err != nil {
		t.Fatalf("NewForest: %s", err)
	}
	if f.Errored() {
		t.Errorf("Errored on a fresh Forest: expected false")
	}
	if got := f.Error(); got != "" {
		t.Errorf("Error on a fresh Forest: expected empty string, actual %q", got)
	}
}

// TestSeterrorChainsMessages grounds seterror's chaining rule: each
// call prepends a new message onto the sticky error rather than
// discarding the previous one.
func TestSeterrorChainsMessages(t *testing.T) {
	f, err := NewForest(MDDSet, []int32{2})
	if err != nil {
		t.Fatalf("NewForest: %s", err)
	}
	if got := f.seterror("first %d", 1); got != False {
		t.Errorf("seterror: expected False, actual %d", got)
	}
	if !f.Errored() {
		t.Fatalf("Errored after seterror: expected true")
	}
	f.seterror("second")
	msg := f.Error()
	if !contains(msg, "first 1") || !contains(msg, "second") {
		t.Errorf("Error after two seterror calls: expected both messages chained, actual %q", msg)
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
