package core

// Trapezoidal motion profiles. A profile is planned once per move and
// then queried for the instantaneous commanded velocity as a function
// of elapsed time. Short moves degrade to a triangular profile with a
// recomputed peak velocity.
//
// Phase durations are derived from the area under the velocity ramp so
// that velocity integrated over the whole profile equals the commanded
// distance exactly. The emitter clamps emitted steps to the remaining
// distance, so the final position lands on the target to the step.

// ProfilePhase is the lifecycle stage of a motion profile.
type ProfilePhase uint8

const (
	PhaseIdle ProfilePhase = iota
	PhaseAccelerating
	PhaseConstant
	PhaseDecelerating
	PhaseCompleted
)

func (p ProfilePhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAccelerating:
		return "accelerating"
	case PhaseConstant:
		return "constant"
	case PhaseDecelerating:
		return "decelerating"
	case PhaseCompleted:
		return "completed"
	}
	return "?"
}

// minProfileVelocity keeps an active profile above a floor so the
// emitter's minimum-one-step rule can make progress from standstill.
const minProfileVelocity = Fixed(FixedScale) // 1 step/s

// MotionProfile holds one planned move. Owned by the motion update
// context; other contexts see only the derived atomics on the axis.
type MotionProfile struct {
	Phase ProfilePhase

	StartPosition  Fixed
	TargetPosition Fixed
	Direction      int8 // +1 or -1, fixed for the whole move

	TotalDistance Fixed
	AccelDistance Fixed
	ConstDistance Fixed
	DecelDistance Fixed
	PeakVelocity  Fixed

	StartTimeUS int64
	AccelEndUS  int64 // elapsed us at end of acceleration
	ConstEndUS  int64 // elapsed us at end of cruise
	TotalEndUS  int64 // elapsed us at nominal end of move

	Active    bool
	Completed bool
}

// Plan computes the profile for a move from start to target under the
// given velocity and acceleration limits. A zero-distance move
// completes immediately without phase transitions.
func (p *MotionProfile) Plan(start, target, maxVel, maxAccel Fixed, nowUS int64) {
	*p = MotionProfile{
		StartPosition:  start,
		TargetPosition: target,
		StartTimeUS:    nowUS,
		Direction:      1,
	}

	dist := target - start
	if dist < 0 {
		p.Direction = -1
		dist = -dist
	}
	p.TotalDistance = dist

	if dist == 0 {
		p.Phase = PhaseCompleted
		p.Completed = true
		return
	}

	// Distance consumed per ramp at full velocity and acceleration.
	rampDist := maxVel.Mul(maxVel).Div(maxAccel)
	if rampDist*2 >= dist {
		// Triangular: split the move between the two ramps and derive
		// the reachable peak from the acceleration limit.
		p.AccelDistance = dist / 2
		p.DecelDistance = dist - p.AccelDistance
		p.PeakVelocity = FixedSqrt(maxAccel.Mul(dist)) / 2
	} else {
		p.AccelDistance = rampDist
		p.DecelDistance = rampDist
		p.ConstDistance = dist - 2*rampDist
		p.PeakVelocity = maxVel
	}
	if p.PeakVelocity < minProfileVelocity {
		p.PeakVelocity = minProfileVelocity
	}

	// A linear ramp covers its distance in 2*d/v_peak.
	accelUS := DurationUS(2*p.AccelDistance, p.PeakVelocity)
	constUS := DurationUS(p.ConstDistance, p.PeakVelocity)
	decelUS := DurationUS(2*p.DecelDistance, p.PeakVelocity)

	p.AccelEndUS = accelUS
	p.ConstEndUS = accelUS + constUS
	p.TotalEndUS = accelUS + constUS + decelUS

	p.Phase = PhaseAccelerating
	p.Active = true
}

// Velocity returns the commanded speed (magnitude) at the given time,
// advancing the phase as elapsed time crosses phase boundaries. Phases
// only ever move forward. Past the nominal end the profile holds the
// floor velocity; Finish retires it once the position has landed.
func (p *MotionProfile) Velocity(nowUS int64) Fixed {
	if !p.Active {
		return 0
	}

	elapsed := nowUS - p.StartTimeUS
	if elapsed < 0 {
		elapsed = 0
	}

	var v Fixed
	switch {
	case elapsed < p.AccelEndUS:
		p.Phase = PhaseAccelerating
		v = p.PeakVelocity.MulDiv(elapsed, p.AccelEndUS)
	case elapsed < p.ConstEndUS:
		p.Phase = PhaseConstant
		v = p.PeakVelocity
	case elapsed < p.TotalEndUS:
		p.Phase = PhaseDecelerating
		v = p.PeakVelocity.MulDiv(p.TotalEndUS-elapsed, p.TotalEndUS-p.ConstEndUS)
	default:
		// Rounding can leave a step or two outstanding when the
		// nominal duration runs out. Hold the floor until Finish.
		p.Phase = PhaseDecelerating
		v = 0
	}

	if v < minProfileVelocity {
		v = minProfileVelocity
	}
	return v
}

// Finish marks the profile complete. Called by the motion update loop
// once the axis position has reached the target.
func (p *MotionProfile) Finish() {
	p.Active = false
	p.Completed = true
	p.Phase = PhaseCompleted
}

// Cancel abandons the profile without reaching the target.
func (p *MotionProfile) Cancel() {
	p.Active = false
	p.Phase = PhaseIdle
}
