package core

import "testing"

func TestMPGWholeScale(t *testing.T) {
	var m MPGState
	m.Enable(0, FixedFromSteps(2))

	if got := m.Advance(5); got != FixedFromSteps(10) {
		t.Errorf("5 counts at 2 steps/count = %v, want 10", got.Float())
	}
	if got := m.Advance(5); got != 0 {
		t.Errorf("no new counts: delta = %v, want 0", got.Float())
	}
	if got := m.Advance(2); got != FixedFromSteps(-6) {
		t.Errorf("3 counts back = %v, want -6", got.Float())
	}
}

func TestMPGFractionalAccumulation(t *testing.T) {
	var m MPGState
	m.Enable(0, FixedFromFloat(0.5))

	// Half a step per count: single counts alternate between emitting
	// a step and banking the remainder, and never lose travel.
	var total Fixed
	for c := int64(1); c <= 10; c++ {
		total += m.Advance(c)
	}
	if total != FixedFromSteps(5) {
		t.Errorf("10 counts at 0.5 steps/count = %v, want 5", total.Float())
	}
}

func TestMPGResidualSurvivesAcrossCalls(t *testing.T) {
	var m MPGState
	m.Enable(0, FixedFromFloat(0.25))

	var total Fixed
	for c := int64(1); c <= 100; c++ {
		total += m.Advance(c)
	}
	if total != FixedFromSteps(25) {
		t.Errorf("100 counts at 0.25 steps/count = %v, want 25", total.Float())
	}
}

func TestMPGDisabled(t *testing.T) {
	var m MPGState
	m.Enable(0, FixedFromSteps(1))
	m.Disable()

	if got := m.Advance(100); got != 0 {
		t.Errorf("disabled advance = %v, want 0", got.Float())
	}

	// Re-enabling reseeds the reference; the stale pulses are gone.
	m.Enable(100, FixedFromSteps(1))
	if got := m.Advance(101); got != FixedFromSteps(1) {
		t.Errorf("after re-enable: %v, want 1", got.Float())
	}
}
