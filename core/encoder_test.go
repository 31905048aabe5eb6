package core

import "testing"

// forwardState advances one step along the forward Gray sequence.
func forwardState(s uint8) uint8 {
	switch s {
	case 0:
		return 1
	case 1:
		return 3
	case 3:
		return 2
	default:
		return 0
	}
}

func backwardState(s uint8) uint8 {
	switch s {
	case 0:
		return 2
	case 2:
		return 3
	case 3:
		return 1
	default:
		return 0
	}
}

func TestEncoderForward(t *testing.T) {
	e := NewEncoderChannel(0, 1)
	state := uint8(0)
	for i := 0; i < 8; i++ {
		state = forwardState(state)
		e.Transition(state)
		if got := e.Count(); got != int64(i+1) {
			t.Fatalf("edge %d: count = %d, want %d", i, got, i+1)
		}
	}
	if e.ErrorCount() != 0 {
		t.Errorf("error count = %d, want 0", e.ErrorCount())
	}
}

func TestEncoderBackward(t *testing.T) {
	e := NewEncoderChannel(0, 1)
	state := uint8(0)
	for i := 0; i < 8; i++ {
		state = backwardState(state)
		e.Transition(state)
		if got := e.Count(); got != -int64(i+1) {
			t.Fatalf("edge %d: count = %d, want %d", i, got, -(i + 1))
		}
	}
	if e.ErrorCount() != 0 {
		t.Errorf("error count = %d, want 0", e.ErrorCount())
	}
}

func TestEncoderIllegalTransition(t *testing.T) {
	e := NewEncoderChannel(0, 1)

	// Legal run, then one two-bit jump, then a legal run from the new
	// state. The jump must be counted as an error and nothing else.
	e.Transition(1)
	e.Transition(3)
	if e.Count() != 2 {
		t.Fatalf("setup count = %d, want 2", e.Count())
	}

	e.Transition(0) // 3 -> 0 skips a state
	if e.Count() != 2 {
		t.Errorf("count after illegal transition = %d, want 2", e.Count())
	}
	if e.ErrorCount() != 1 {
		t.Errorf("error count = %d, want 1", e.ErrorCount())
	}

	e.Transition(1)
	if e.Count() != 3 {
		t.Errorf("count after recovery = %d, want 3", e.Count())
	}
	if e.ErrorCount() != 1 {
		t.Errorf("error count after recovery = %d, want 1", e.ErrorCount())
	}
}

func TestEncoderRepeatedState(t *testing.T) {
	e := NewEncoderChannel(0, 1)
	e.Transition(1)
	e.Transition(1)
	e.Transition(1)
	if e.Count() != 1 {
		t.Errorf("count = %d, want 1", e.Count())
	}
	if e.ErrorCount() != 0 {
		t.Errorf("error count = %d, want 0", e.ErrorCount())
	}
}

func TestEncoderZero(t *testing.T) {
	e := NewEncoderChannel(0, 1)
	state := uint8(0)
	for i := 0; i < 5; i++ {
		state = forwardState(state)
		e.Transition(state)
	}
	e.Zero()
	if e.Count() != 0 {
		t.Fatalf("count after zero = %d", e.Count())
	}

	// Decoding continues seamlessly from the retained state.
	e.Transition(forwardState(state))
	if e.Count() != 1 {
		t.Errorf("count after zero + edge = %d, want 1", e.Count())
	}
}
