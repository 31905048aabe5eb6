package core

import "testing"

func TestProfileTriangular(t *testing.T) {
	// 1000 steps at vmax 1000 steps/s, accel 2000 steps/s^2 cannot
	// reach cruise speed: the profile degrades to triangular with the
	// ramps meeting at half distance.
	var p MotionProfile
	p.Plan(0, FixedFromSteps(1000), FixedFromSteps(1000), FixedFromSteps(2000), 0)

	if p.AccelDistance != FixedFromSteps(500) {
		t.Errorf("accel distance = %v, want 500", p.AccelDistance.Float())
	}
	if p.DecelDistance != FixedFromSteps(500) {
		t.Errorf("decel distance = %v, want 500", p.DecelDistance.Float())
	}
	if p.ConstDistance != 0 {
		t.Errorf("const distance = %v, want 0", p.ConstDistance.Float())
	}
	if got := p.PeakVelocity.Steps(); got != 707 {
		t.Errorf("peak velocity = %d steps/s, want 707", got)
	}
	if p.PeakVelocity >= FixedFromSteps(1000) {
		t.Errorf("triangular peak %v must stay below vmax", p.PeakVelocity.Float())
	}
	if p.AccelDistance+p.DecelDistance > p.TotalDistance {
		t.Errorf("ramp distances exceed total")
	}
}

func TestProfileTrapezoidal(t *testing.T) {
	var p MotionProfile
	p.Plan(0, FixedFromSteps(10000), FixedFromSteps(1000), FixedFromSteps(2000), 0)

	if p.PeakVelocity != FixedFromSteps(1000) {
		t.Errorf("peak = %v, want vmax 1000", p.PeakVelocity.Float())
	}
	if p.AccelDistance != FixedFromSteps(500) {
		t.Errorf("accel distance = %v, want 500", p.AccelDistance.Float())
	}
	if p.ConstDistance != FixedFromSteps(9000) {
		t.Errorf("const distance = %v, want 9000", p.ConstDistance.Float())
	}

	// Cruise phase runs at exactly vmax.
	if v := p.Velocity(p.AccelEndUS + 100); v != FixedFromSteps(1000) {
		t.Errorf("cruise velocity = %v, want 1000", v.Float())
	}
	if p.Phase != PhaseConstant {
		t.Errorf("phase = %v, want constant", p.Phase)
	}
}

func TestProfileVelocityShape(t *testing.T) {
	var p MotionProfile
	p.Plan(0, FixedFromSteps(10000), FixedFromSteps(1000), FixedFromSteps(2000), 0)

	// Monotone rising through acceleration.
	prev := Fixed(-1)
	for e := int64(0); e <= p.AccelEndUS; e += p.AccelEndUS / 10 {
		v := p.Velocity(e)
		if v < prev {
			t.Fatalf("velocity fell during acceleration at %dus: %v < %v",
				e, v.Float(), prev.Float())
		}
		prev = v
	}

	// Monotone falling through deceleration, floored above zero while
	// the profile is still active.
	prev = p.PeakVelocity + 1
	for e := p.ConstEndUS; e <= p.TotalEndUS; e += (p.TotalEndUS - p.ConstEndUS) / 10 {
		v := p.Velocity(e)
		if v > prev {
			t.Fatalf("velocity rose during deceleration at %dus: %v > %v",
				e, v.Float(), prev.Float())
		}
		if v < 0 {
			t.Fatalf("velocity went negative at %dus", e)
		}
		prev = v
	}
}

func TestProfileZeroDistance(t *testing.T) {
	var p MotionProfile
	p.Plan(FixedFromSteps(42), FixedFromSteps(42), FixedFromSteps(1000), FixedFromSteps(2000), 0)

	if !p.Completed {
		t.Fatal("zero-distance move should complete immediately")
	}
	if p.Phase != PhaseCompleted {
		t.Errorf("phase = %v, want completed", p.Phase)
	}
	if v := p.Velocity(100); v != 0 {
		t.Errorf("velocity = %v, want 0", v.Float())
	}
}

func TestProfileDirection(t *testing.T) {
	var p MotionProfile
	p.Plan(FixedFromSteps(100), FixedFromSteps(-100), FixedFromSteps(1000), FixedFromSteps(2000), 0)
	if p.Direction != -1 {
		t.Errorf("direction = %d, want -1", p.Direction)
	}
	if p.TotalDistance != FixedFromSteps(200) {
		t.Errorf("total distance = %v, want 200", p.TotalDistance.Float())
	}
}

func TestProfileShortMoveIsTriangular(t *testing.T) {
	// Any move too short to reach vmax must plan triangular with peak
	// strictly below the velocity limit.
	distances := []int64{10, 100, 500, 999}
	for _, d := range distances {
		var p MotionProfile
		p.Plan(0, FixedFromSteps(d), FixedFromSteps(1000), FixedFromSteps(2000), 0)
		if p.ConstDistance != 0 {
			t.Errorf("move of %d steps: const distance %v, want triangular",
				d, p.ConstDistance.Float())
		}
		if p.PeakVelocity >= FixedFromSteps(1000) {
			t.Errorf("move of %d steps: peak %v not below vmax",
				d, p.PeakVelocity.Float())
		}
	}
}

func TestProfileAreaMatchesDistance(t *testing.T) {
	// Velocity integrated over the planned durations must equal the
	// commanded distance, or the emitter would systematically over- or
	// undershoot before the position clamp catches it.
	cases := []struct{ dist, vmax, accel int64 }{
		{1000, 1000, 2000},
		{10000, 1000, 2000},
		{357, 4000, 8000},
		{100000, 4000, 8000},
	}
	for _, tc := range cases {
		var p MotionProfile
		p.Plan(0, FixedFromSteps(tc.dist), FixedFromSteps(tc.vmax), FixedFromSteps(tc.accel), 0)

		peak := p.PeakVelocity.Float()
		accelT := float64(p.AccelEndUS) / 1e6
		constT := float64(p.ConstEndUS-p.AccelEndUS) / 1e6
		decelT := float64(p.TotalEndUS-p.ConstEndUS) / 1e6
		area := peak*accelT/2 + peak*constT + peak*decelT/2

		if diff := area - float64(tc.dist); diff > 1 || diff < -1 {
			t.Errorf("move %d/%d/%d: area %v differs from distance by %v",
				tc.dist, tc.vmax, tc.accel, area, diff)
		}
	}
}

func TestProfilePhaseMonotonic(t *testing.T) {
	var p MotionProfile
	p.Plan(0, FixedFromSteps(10000), FixedFromSteps(1000), FixedFromSteps(2000), 0)

	last := PhaseIdle
	step := p.TotalEndUS / 200
	for e := int64(0); e < p.TotalEndUS; e += step {
		p.Velocity(e)
		if p.Phase < last {
			t.Fatalf("phase moved backward at %dus: %v after %v", e, p.Phase, last)
		}
		last = p.Phase
	}
	p.Finish()
	if p.Phase != PhaseCompleted || !p.Completed {
		t.Errorf("finish left phase %v", p.Phase)
	}
}
