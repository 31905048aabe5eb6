package core

import "sync/atomic"

// AxisMode selects which source drives the axis target. The modes are
// mutually exclusive; switching goes through setMode so the outgoing
// and incoming mode state is reset in one place.
type AxisMode uint8

const (
	// ModeIdle holds position with the output quiet.
	ModeIdle AxisMode = iota
	// ModeProfile follows an open-loop trapezoidal profile.
	ModeProfile
	// ModeHold corrects position error through the PID loop.
	ModeHold
	// ModeSpindleSync slaves the target to the spindle encoder.
	ModeSpindleSync
	// ModeJog follows the manual pulse generator.
	ModeJog
)

func (m AxisMode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeProfile:
		return "profile"
	case ModeHold:
		return "hold"
	case ModeSpindleSync:
		return "spindle_sync"
	case ModeJog:
		return "jog"
	}
	return "?"
}

// Axis is the full state of one linear axis.
//
// The atomic fields are the only ones shared across execution contexts:
// the step emitter consumes velocity and stepsToGo and produces
// position; everything else is owned by the motion update context and
// read by the command layer under the controller's state mutex.
type Axis struct {
	ID AxisID

	// Cross-context fields. position and stepsToGo are fixed-point
	// steps stored as raw int64; velocity is a magnitude in fixed-point
	// steps per second.
	position  atomic.Int64
	stepsToGo atomic.Int64
	velocity  atomic.Int64
	moving    atomic.Bool
	enabled   atomic.Bool

	// Owned by the motion update context.
	Mode           AxisMode
	TargetPosition Fixed
	MaxVelocity    Fixed
	MaxAccel       Fixed
	Profile        MotionProfile
	PID            PIDState
	Sync           SpindleSyncState
	MPG            MPGState

	SoftLimitMin  Fixed
	SoftLimitMax  Fixed
	LimitsEnabled bool
	// pendingLimits defers a limit change requested mid-move until the
	// axis is stationary, so a move in flight is never cut short.
	pendingLimits   bool
	pendingLimitMin Fixed
	pendingLimitMax Fixed
	pendingLimitsOn bool

	Backend StepperBackend
}

// Position returns the current position in fixed-point steps.
func (a *Axis) Position() Fixed {
	return Fixed(a.position.Load())
}

// SetPosition overwrites the position. Zeroing and re-homing only;
// never called while the axis is moving.
func (a *Axis) SetPosition(p Fixed) {
	a.position.Store(int64(p))
}

// Velocity returns the commanded speed magnitude in steps per second.
func (a *Axis) Velocity() Fixed {
	return Fixed(a.velocity.Load())
}

func (a *Axis) setVelocity(v Fixed) {
	a.velocity.Store(int64(v))
}

// StepsToGo returns the signed remaining travel in fixed-point steps.
func (a *Axis) StepsToGo() Fixed {
	return Fixed(a.stepsToGo.Load())
}

func (a *Axis) setStepsToGo(s Fixed) {
	a.stepsToGo.Store(int64(s))
}

// Moving reports whether the axis has nonzero commanded velocity.
func (a *Axis) Moving() bool {
	return a.moving.Load()
}

// Enabled reports whether output driving is permitted.
func (a *Axis) Enabled() bool {
	return a.enabled.Load()
}

// setMode transitions between target sources. The outgoing mode's state
// is retired and the incoming mode's running terms start clean.
func (a *Axis) setMode(m AxisMode) {
	if a.Mode == m {
		return
	}
	switch a.Mode {
	case ModeProfile:
		if a.Profile.Active {
			a.Profile.Cancel()
		}
	case ModeSpindleSync:
		a.Sync.End()
	case ModeJog:
		a.MPG.Disable()
	}
	switch m {
	case ModeHold:
		a.PID.Reset()
	}
	a.Mode = m
	if m == ModeIdle {
		a.haltMotion()
		a.applyPendingLimits()
	}
}

// haltMotion zeroes the derived motion atomics.
func (a *Axis) haltMotion() {
	a.setVelocity(0)
	a.setStepsToGo(0)
	a.moving.Store(false)
}

// withinLimits reports whether a target respects the soft limits.
func (a *Axis) withinLimits(target Fixed) bool {
	if !a.LimitsEnabled {
		return true
	}
	return target >= a.SoftLimitMin && target <= a.SoftLimitMax
}

// clampToLimits bounds a target to the soft limits when they are
// enabled. Used by the target sources that follow an external count
// and cannot reject at issue time.
func (a *Axis) clampToLimits(target Fixed) Fixed {
	if !a.LimitsEnabled {
		return target
	}
	if target < a.SoftLimitMin {
		return a.SoftLimitMin
	}
	if target > a.SoftLimitMax {
		return a.SoftLimitMax
	}
	return target
}

// requestLimits stores new soft limits. Applied immediately when the
// axis is stationary, otherwise deferred to the next idle transition.
func (a *Axis) requestLimits(min, max Fixed, enabled bool) {
	a.pendingLimitMin = min
	a.pendingLimitMax = max
	a.pendingLimitsOn = enabled
	a.pendingLimits = true
	if !a.Moving() {
		a.applyPendingLimits()
	}
}

func (a *Axis) applyPendingLimits() {
	if !a.pendingLimits {
		return
	}
	a.SoftLimitMin = a.pendingLimitMin
	a.SoftLimitMax = a.pendingLimitMax
	a.LimitsEnabled = a.pendingLimitsOn
	a.pendingLimits = false
}
