package core

import (
	"log"
	"sync"
	"time"
)

// Controller owns the whole motion subsystem: two axes, three encoder
// channels, the command queue, the emergency stop and the cooperative
// scheduler. It is an explicit instance passed by handle; nothing in
// this package reaches for it through global state.
//
// Concurrency: the step loop touches only the axis atomics and the
// encoder channels. The motion loop owns the rest of the axis state and
// runs under mu; the command API takes the same mutex for its brief
// reads and writes of that state. The command queue carries commands
// from the issuing side into the motion loop.

// speedWindowUS is how often the spindle speed estimate refreshes.
const speedWindowUS = 100_000

// PIDParams are the gains and output range for one axis hold loop.
type PIDParams struct {
	Kp, Ki, Kd Fixed
	MinOutput  Fixed
	MaxOutput  Fixed
}

// AxisParams is the static configuration of one axis.
type AxisParams struct {
	StepPin    GPIOPin
	DirPin     GPIOPin
	EnablePin  GPIOPin
	InvertStep bool
	InvertDir  bool

	StepsPerMM  Fixed
	MaxVelocity Fixed // steps/s
	MaxAccel    Fixed // steps/s^2

	SoftLimitMin  Fixed
	SoftLimitMax  Fixed
	LimitsEnabled bool

	PID PIDParams
}

// EncoderParams names the input pins of one quadrature pair.
type EncoderParams struct {
	PinA GPIOPin
	PinB GPIOPin
}

// Params is the full controller configuration.
type Params struct {
	StepPeriodUS      int64
	MotionPeriodUS    int64
	SchedulerPeriodUS int64

	Axes [NumAxes]AxisParams

	Spindle             EncoderParams
	MPGX                EncoderParams
	MPGZ                EncoderParams
	SpindleCountsPerRev int64
	BacklashCounts      int64
}

// DefaultParams returns conservative defaults sized for a small lathe
// with 200 step/mm drives and a 600 count/rev spindle encoder.
func DefaultParams() Params {
	axis := AxisParams{
		StepsPerMM:  FixedFromSteps(200),
		MaxVelocity: FixedFromSteps(4000),
		MaxAccel:    FixedFromSteps(8000),
		PID: PIDParams{
			Kp:        FixedFromFloat(8.0),
			Ki:        FixedFromFloat(0.5),
			Kd:        FixedFromFloat(0.05),
			MinOutput: -FixedFromSteps(2000),
			MaxOutput: FixedFromSteps(2000),
		},
	}
	return Params{
		StepPeriodUS:        500,
		MotionPeriodUS:      1000,
		SchedulerPeriodUS:   1000,
		Axes:                [NumAxes]AxisParams{axis, axis},
		SpindleCountsPerRev: 600,
	}
}

// Controller is the motion subsystem instance.
type Controller struct {
	params Params
	gpio   GPIODriver

	axes     [NumAxes]*Axis
	encoders [NumEncoders]*EncoderChannel
	tracker  SpindleTracker

	queue CommandQueue
	estop EmergencyStop
	sched *Scheduler

	epoch time.Time
	clock func() int64 // overridable for tests

	mu           sync.Mutex
	lastMotionUS int64
	lastSpeedUS  int64
}

// NewController wires the axes and encoders onto the given GPIO driver
// and stepper backends.
func NewController(params Params, gpio GPIODriver, backends [NumAxes]StepperBackend) (*Controller, error) {
	c := &Controller{
		params: params,
		gpio:   gpio,
		epoch:  time.Now(),
	}
	c.clock = func() int64 { return time.Since(c.epoch).Microseconds() }
	c.sched = NewScheduler(c.now)
	c.tracker.Deadband = params.BacklashCounts

	for i := range c.axes {
		ap := params.Axes[i]
		a := &Axis{
			ID:            AxisID(i),
			MaxVelocity:   ap.MaxVelocity,
			MaxAccel:      ap.MaxAccel,
			SoftLimitMin:  ap.SoftLimitMin,
			SoftLimitMax:  ap.SoftLimitMax,
			LimitsEnabled: ap.LimitsEnabled,
			PID:           NewPIDState(ap.PID.Kp, ap.PID.Ki, ap.PID.Kd, ap.PID.MinOutput, ap.PID.MaxOutput),
			Backend:       backends[i],
		}
		if err := a.Backend.Init(ap.StepPin, ap.DirPin, ap.EnablePin, ap.InvertStep, ap.InvertDir); err != nil {
			return nil, err
		}
		c.axes[i] = a
	}

	pins := [NumEncoders]EncoderParams{params.Spindle, params.MPGX, params.MPGZ}
	for i := range c.encoders {
		e := NewEncoderChannel(pins[i].PinA, pins[i].PinB)
		if err := e.Configure(gpio); err != nil {
			return nil, err
		}
		c.encoders[i] = e
	}
	return c, nil
}

func (c *Controller) now() int64 {
	return c.clock()
}

// Scheduler exposes the task scheduler for collaborator registration.
func (c *Controller) Scheduler() *Scheduler {
	return c.sched
}

// MotionTick is one pass of the motion update loop: drain the command
// queue, refresh the spindle tracking, then update every axis according
// to its mode. Called at the motion period from its own goroutine.
func (c *Controller) MotionTick(nowUS int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dt := nowUS - c.lastMotionUS
	if c.lastMotionUS == 0 || dt <= 0 {
		dt = c.params.MotionPeriodUS
	}
	c.lastMotionUS = nowUS

	if c.estop.Active() {
		for _, a := range c.axes {
			a.setMode(ModeIdle)
			a.haltMotion()
		}
		c.queue.Clear()
		return
	}

	for {
		cmd, err := c.queue.Pop()
		if err != nil {
			break
		}
		c.apply(cmd, nowUS)
	}

	spindle := c.tracker.Apply(c.encoders[EncoderSpindle].Count())
	if nowUS-c.lastSpeedUS >= speedWindowUS {
		c.tracker.UpdateSpeed(spindle, nowUS, c.params.SpindleCountsPerRev)
		c.lastSpeedUS = nowUS
	}

	for _, a := range c.axes {
		c.updateAxis(a, nowUS, dt, spindle)
	}
}

func (c *Controller) updateAxis(a *Axis, nowUS, dtUS int64, spindle int64) {
	switch a.Mode {
	case ModeProfile:
		remaining := a.TargetPosition - a.Position()
		if remaining.Steps() == 0 {
			a.Profile.Finish()
			a.setMode(ModeIdle)
			return
		}
		v := a.Profile.Velocity(nowUS)
		a.setStepsToGo(remaining)
		a.setVelocity(v)
		a.moving.Store(v != 0)

	case ModeHold:
		errVal := a.TargetPosition - a.Position()
		out := a.PID.Update(errVal, dtUS)
		a.setStepsToGo(errVal)
		a.setVelocity(out.Abs())
		a.moving.Store(out != 0 && errVal.Steps() != 0)

	case ModeSpindleSync:
		target := a.clampToLimits(a.Sync.TargetFor(spindle))
		a.TargetPosition = target
		delta := target - a.Position()
		a.setStepsToGo(delta)
		// Feed rate follows the spindle, not the axis limits. The
		// emitter is asked to close the whole gap within one tick.
		a.setVelocity(catchUpVelocity(delta, dtUS))
		a.moving.Store(delta.Steps() != 0)

	case ModeJog:
		nudge := a.MPG.Advance(c.encoders[mpgEncoderFor(a.ID)].Count())
		if nudge != 0 {
			a.TargetPosition = a.clampToLimits(a.TargetPosition + nudge)
		}
		delta := a.TargetPosition - a.Position()
		v := catchUpVelocity(delta, dtUS)
		if v > a.MaxVelocity {
			v = a.MaxVelocity
		}
		a.setStepsToGo(delta)
		a.setVelocity(v)
		a.moving.Store(delta.Steps() != 0)

	default:
		a.haltMotion()
	}
}

// catchUpVelocity is the speed needed to close delta within one update
// interval.
func catchUpVelocity(delta Fixed, dtUS int64) Fixed {
	return Fixed(divRoundClosest(int64(delta.Abs())*1_000_000, dtUS))
}

func mpgEncoderFor(axis AxisID) EncoderID {
	if axis == AxisX {
		return EncoderMPGX
	}
	return EncoderMPGZ
}

// blockingTimeout bounds the wait on a Blocking command. Generous
// enough for the longest single move at the floor velocity.
const blockingTimeout = 60 * time.Second

// QueueCommand validates a command and enqueues it for the motion loop.
// Every rejection is synchronous; a command that enters the queue has
// passed all issue-time checks. A Blocking command additionally parks
// the caller until the motion retires or the emergency stop fires.
func (c *Controller) QueueCommand(cmd Command) error {
	c.mu.Lock()
	err := c.validate(cmd)
	if err == nil {
		cmd.IssueTime = c.now()
		err = c.queue.Push(cmd)
	}
	c.mu.Unlock()
	if err != nil || !cmd.Blocking {
		return err
	}
	return c.waitBlocking(cmd.Axis, blockingTimeout)
}

// waitBlocking spin-polls a Blocking command to retirement: first until
// the motion loop drains the queue, then until the axis stops moving.
func (c *Controller) waitBlocking(axis AxisID, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for c.queue.Size() > 0 {
		if c.estop.Active() {
			return ErrEmergencyStop
		}
		if time.Now().After(deadline) {
			return ErrAxisBusy
		}
		time.Sleep(time.Millisecond)
	}
	// The pass that consumed the command holds the mutex until it has
	// applied it, so reading the moving flag under the mutex sees the
	// command's effect before the completion wait starts.
	c.mu.Lock()
	moving := c.axes[axis].Moving()
	c.mu.Unlock()
	if !moving {
		return nil
	}
	return c.WaitMoveComplete(axis, time.Until(deadline))
}

// ExecuteImmediate validates and applies a command without queueing,
// for callers that need the effect before their next statement.
func (c *Controller) ExecuteImmediate(cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.validate(cmd); err != nil {
		return err
	}
	cmd.IssueTime = c.now()
	c.apply(cmd, cmd.IssueTime)
	return nil
}

// validate rejects commands that must fail at the point of issue.
// Caller holds mu.
func (c *Controller) validate(cmd Command) error {
	if c.estop.Active() {
		return ErrEmergencyStop
	}
	if !cmd.Axis.Valid() {
		return ErrInvalidAxis
	}
	a := c.axes[cmd.Axis]

	switch cmd.Op {
	case OpMoveRelative, OpMoveAbsolute:
		if !a.Enabled() {
			return ErrAxisDisabled
		}
		if a.Mode == ModeSpindleSync || a.Mode == ModeJog {
			return ErrModeConflict
		}
		if a.Mode == ModeProfile && a.Profile.Active {
			return ErrAxisBusy
		}
		target := cmd.Value
		if cmd.Op == OpMoveRelative {
			target = a.Position() + cmd.Value
		}
		if !a.withinLimits(target) {
			return ErrSoftLimit
		}
	case OpSetVelocityLimit, OpSetAccelLimit:
		if cmd.Value <= 0 {
			return ErrBadParameter
		}
	}
	return nil
}

// apply executes one command inside the motion loop. Commands were
// validated at issue; a command made stale by a state change since then
// is dropped with a log line rather than partially applied.
func (c *Controller) apply(cmd Command, nowUS int64) {
	a := c.axes[cmd.Axis]

	switch cmd.Op {
	case OpMoveRelative:
		c.startMove(a, a.Position()+cmd.Value, nowUS)
	case OpMoveAbsolute:
		c.startMove(a, cmd.Value, nowUS)
	case OpSetVelocityLimit:
		a.MaxVelocity = cmd.Value
	case OpSetAccelLimit:
		a.MaxAccel = cmd.Value
	case OpStop:
		a.setMode(ModeIdle)
	case OpEnableAxis:
		if err := a.Backend.SetEnable(true); err != nil {
			log.Printf("axis %s: enable failed: %v", a.ID, err)
			return
		}
		a.enabled.Store(true)
	case OpDisableAxis:
		a.setMode(ModeIdle)
		a.enabled.Store(false)
		if err := a.Backend.SetEnable(false); err != nil {
			log.Printf("axis %s: disable failed: %v", a.ID, err)
		}
	}
}

func (c *Controller) startMove(a *Axis, target Fixed, nowUS int64) {
	// Re-check the busy state: two moves issued in the same motion
	// period both pass validation, and the second must not replan over
	// the one that just started.
	busy := a.Mode == ModeProfile && a.Profile.Active
	if busy || !a.Enabled() || !a.withinLimits(target) {
		log.Printf("axis %s: dropped stale move to %v", a.ID, target.Float())
		return
	}
	a.setMode(ModeIdle)
	a.TargetPosition = target
	a.Profile.Plan(a.Position(), target, a.MaxVelocity, a.MaxAccel, nowUS)
	if a.Profile.Completed {
		return
	}
	a.Mode = ModeProfile
	a.setStepsToGo(target - a.Position())
	a.moving.Store(true)
}

// HoldAxis switches the axis to closed-loop hold at its current
// position. The PID integral starts clean.
func (c *Controller) HoldAxis(axis AxisID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkAxisReady(axis); err != nil {
		return err
	}
	a := c.axes[axis]
	a.setMode(ModeIdle)
	a.TargetPosition = a.Position()
	a.setMode(ModeHold)
	return nil
}

// StartSpindleSync slaves the axis to the spindle with the given pitch
// in steps per revolution. The current spindle count and axis position
// become the sync reference.
func (c *Controller) StartSpindleSync(axis AxisID, pitch Fixed) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkAxisReady(axis); err != nil {
		return err
	}
	if pitch == 0 || c.params.SpindleCountsPerRev <= 0 {
		return ErrBadParameter
	}
	a := c.axes[axis]
	a.setMode(ModeIdle)
	ref := c.tracker.Apply(c.encoders[EncoderSpindle].Count())
	a.Sync.Begin(ref, a.Position(), pitch, c.params.SpindleCountsPerRev)
	a.TargetPosition = a.Position()
	a.Mode = ModeSpindleSync
	return nil
}

// StopSpindleSync releases the axis from spindle tracking.
func (c *Controller) StopSpindleSync(axis AxisID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !axis.Valid() {
		return ErrInvalidAxis
	}
	a := c.axes[axis]
	if a.Mode == ModeSpindleSync {
		a.setMode(ModeIdle)
	}
	return nil
}

// EnableMPG arms manual jogging on the axis with the given travel per
// encoder count.
func (c *Controller) EnableMPG(axis AxisID, stepsPerCount Fixed) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkAxisReady(axis); err != nil {
		return err
	}
	if stepsPerCount == 0 {
		return ErrBadParameter
	}
	a := c.axes[axis]
	a.setMode(ModeIdle)
	a.MPG.Enable(c.encoders[mpgEncoderFor(axis)].Count(), stepsPerCount)
	a.TargetPosition = a.Position()
	a.Mode = ModeJog
	return nil
}

// DisableMPG disarms manual jogging.
func (c *Controller) DisableMPG(axis AxisID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !axis.Valid() {
		return ErrInvalidAxis
	}
	a := c.axes[axis]
	if a.Mode == ModeJog {
		a.setMode(ModeIdle)
	}
	return nil
}

// checkAxisReady is the shared precondition for mode changes. Caller
// holds mu.
func (c *Controller) checkAxisReady(axis AxisID) error {
	if c.estop.Active() {
		return ErrEmergencyStop
	}
	if !axis.Valid() {
		return ErrInvalidAxis
	}
	if !c.axes[axis].Enabled() {
		return ErrAxisDisabled
	}
	return nil
}

// ZeroAxis declares the current position to be zero. Rejected while the
// axis is moving.
func (c *Controller) ZeroAxis(axis AxisID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !axis.Valid() {
		return ErrInvalidAxis
	}
	a := c.axes[axis]
	if a.Moving() {
		return ErrAxisBusy
	}
	a.setMode(ModeIdle)
	a.SetPosition(0)
	a.TargetPosition = 0
	return nil
}

// ZeroSpindle resets the spindle encoder accumulator. Rejected while
// any axis is spindle-synchronized.
func (c *Controller) ZeroSpindle() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.axes {
		if a.Mode == ModeSpindleSync {
			return ErrModeConflict
		}
	}
	c.encoders[EncoderSpindle].Zero()
	c.tracker.Reset(0, c.now())
	return nil
}

// SetSoftLimits installs new travel bounds. A change requested while
// the axis moves is deferred until it is stationary.
func (c *Controller) SetSoftLimits(axis AxisID, min, max Fixed, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !axis.Valid() {
		return ErrInvalidAxis
	}
	if enabled && min > max {
		return ErrBadParameter
	}
	c.axes[axis].requestLimits(min, max, enabled)
	return nil
}

// SetPIDGains replaces the hold-loop gains.
func (c *Controller) SetPIDGains(axis AxisID, kp, ki, kd Fixed) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !axis.Valid() {
		return ErrInvalidAxis
	}
	if kp < 0 || ki < 0 || kd < 0 {
		return ErrBadParameter
	}
	c.axes[axis].PID.SetGains(kp, ki, kd)
	return nil
}

// SetEmergencyStop latches or releases the stop. Latching halts every
// axis through the atomics immediately and clears the queue; the motion
// loop retires modes and profiles on its next pass. Releasing never
// restarts motion.
func (c *Controller) SetEmergencyStop(on bool) {
	if on {
		if c.estop.Set() {
			log.Printf("emergency stop latched")
		}
		for _, a := range c.axes {
			a.haltMotion()
		}
		c.queue.Clear()
		return
	}
	c.estop.Clear()
}

// WaitMoveComplete spin-polls until the axis stops moving, the timeout
// lapses, or the emergency stop fires. Never an unbounded wait.
func (c *Controller) WaitMoveComplete(axis AxisID, timeout time.Duration) error {
	if !axis.Valid() {
		return ErrInvalidAxis
	}
	a := c.axes[axis]
	deadline := time.Now().Add(timeout)
	for {
		if c.estop.Active() {
			return ErrEmergencyStop
		}
		if !a.Moving() {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrAxisBusy
		}
		time.Sleep(time.Millisecond)
	}
}

// Query operations. All side-effect-free.

// PositionOf returns the axis position in fixed-point steps.
func (c *Controller) PositionOf(axis AxisID) Fixed {
	return c.axes[axis].Position()
}

// TargetOf returns the axis target in fixed-point steps.
func (c *Controller) TargetOf(axis AxisID) Fixed {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.axes[axis].TargetPosition
}

// VelocityOf returns the commanded speed magnitude in steps/s.
func (c *Controller) VelocityOf(axis AxisID) Fixed {
	return c.axes[axis].Velocity()
}

// PhaseOf returns the motion profile phase.
func (c *Controller) PhaseOf(axis AxisID) ProfilePhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.axes[axis].Profile.Phase
}

// ModeOf returns the axis mode.
func (c *Controller) ModeOf(axis AxisID) AxisMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.axes[axis].Mode
}

// MovingOf reports whether the axis has nonzero commanded velocity.
func (c *Controller) MovingOf(axis AxisID) bool {
	return c.axes[axis].Moving()
}

// EnabledOf reports whether axis output driving is permitted.
func (c *Controller) EnabledOf(axis AxisID) bool {
	return c.axes[axis].Enabled()
}

// EncoderCount returns the signed count of an encoder channel.
func (c *Controller) EncoderCount(id EncoderID) int64 {
	return c.encoders[id].Count()
}

// EncoderErrors returns the rejected-transition count of a channel.
func (c *Controller) EncoderErrors(id EncoderID) int64 {
	return c.encoders[id].ErrorCount()
}

// EStopActive reports the emergency stop flag.
func (c *Controller) EStopActive() bool {
	return c.estop.Active()
}

// QueueDepth returns the number of pending commands.
func (c *Controller) QueueDepth() int {
	return c.queue.Size()
}

// SpindleRPM returns the latest spindle speed estimate.
func (c *Controller) SpindleRPM() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.RPM()
}
