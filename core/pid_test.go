package core

import "testing"

func TestPIDProportional(t *testing.T) {
	p := NewPIDState(FixedFromSteps(2), 0, 0, FixedFromSteps(-10000), FixedFromSteps(10000))
	out := p.Update(FixedFromSteps(10), 1000)
	if out != FixedFromSteps(20) {
		t.Errorf("P output = %v, want 20", out.Float())
	}
	out = p.Update(FixedFromSteps(-10), 1000)
	if out != FixedFromSteps(-20) {
		t.Errorf("P output = %v, want -20", out.Float())
	}
}

func TestPIDIntegral(t *testing.T) {
	p := NewPIDState(0, FixedFromSteps(1), 0, FixedFromSteps(-100000), FixedFromSteps(100000))

	// A constant error of 1000 steps held for one second integrates to
	// 1000 step-seconds.
	out := p.Update(FixedFromSteps(1000), 1_000_000)
	if out != FixedFromSteps(1000) {
		t.Errorf("I output after 1s = %v, want 1000", out.Float())
	}
	out = p.Update(FixedFromSteps(1000), 1_000_000)
	if out != FixedFromSteps(2000) {
		t.Errorf("I output after 2s = %v, want 2000", out.Float())
	}
}

func TestPIDDerivative(t *testing.T) {
	p := NewPIDState(0, 0, FixedFromSteps(1), FixedFromSteps(-100000), FixedFromSteps(100000))

	// First sample only primes the history.
	if out := p.Update(FixedFromSteps(100), 100_000); out != 0 {
		t.Errorf("first D output = %v, want 0", out.Float())
	}
	// Error grows 100 steps over 0.1s: slope 1000 steps/s.
	out := p.Update(FixedFromSteps(200), 100_000)
	if out != FixedFromSteps(1000) {
		t.Errorf("D output = %v, want 1000", out.Float())
	}
}

func TestPIDOutputClamp(t *testing.T) {
	p := NewPIDState(FixedFromSteps(100), 0, 0, FixedFromSteps(-50), FixedFromSteps(50))
	if out := p.Update(FixedFromSteps(1000), 1000); out != FixedFromSteps(50) {
		t.Errorf("clamped output = %v, want 50", out.Float())
	}
	if out := p.Update(FixedFromSteps(-1000), 1000); out != FixedFromSteps(-50) {
		t.Errorf("clamped output = %v, want -50", out.Float())
	}
}

func TestPIDAntiWindup(t *testing.T) {
	p := NewPIDState(0, FixedFromSteps(1), 0, FixedFromSteps(-100), FixedFromSteps(100))

	// Saturate the output. The integral must stop growing while
	// clamped, so the output right after the error collapses is driven
	// by the committed integral only, not by seconds of windup.
	for i := 0; i < 10; i++ {
		p.Update(FixedFromSteps(10000), 1_000_000)
	}
	out := p.Update(0, 1_000_000)
	if out > FixedFromSteps(100) {
		t.Errorf("post-saturation output = %v, exceeds clamp", out.Float())
	}
	if p.integralUS > int64(FixedFromSteps(10000))*1_000_000 {
		t.Errorf("integral kept winding while saturated: %d", p.integralUS)
	}
}

func TestPIDReset(t *testing.T) {
	p := NewPIDState(FixedFromSteps(1), FixedFromSteps(1), FixedFromSteps(1),
		FixedFromSteps(-100000), FixedFromSteps(100000))
	p.Update(FixedFromSteps(500), 1_000_000)
	p.Update(FixedFromSteps(500), 1_000_000)
	p.Reset()

	if p.integralUS != 0 || p.lastError != 0 || p.primed {
		t.Error("reset left residual state")
	}
	// After reset the first update has no derivative kick.
	out := p.Update(FixedFromSteps(10), 1000)
	if out.Steps() > 11 {
		t.Errorf("post-reset output = %v, want ~10 from P term alone", out.Float())
	}
}
