package core

import (
	"context"
	"runtime"
	"time"
)

// Step pulse emission and the high-rate sampling loop. StepTick is the
// interrupt-like body: bounded work, no allocation, no blocking. It
// consumes the velocity and remaining-travel atomics published by the
// motion update loop and produces position, one atomic step at a time.

// StepTick emits the step edges due for one emitter period on every
// enabled axis. A disabled axis and an active emergency stop both force
// the commanded velocity to zero and emit nothing.
func (c *Controller) StepTick() {
	stopped := c.estop.Active()
	for _, a := range c.axes {
		if stopped || !a.Enabled() {
			a.setVelocity(0)
			a.moving.Store(false)
			continue
		}

		v := a.Velocity()
		togo := a.StepsToGo()
		remaining := togo.Steps()
		if v == 0 || remaining == 0 {
			continue
		}

		dir := int64(1)
		if remaining < 0 {
			dir = -1
			remaining = -remaining
		}

		// Whole steps due this period, at least one so low commanded
		// velocity still makes progress, clamped to the remaining
		// travel so the axis never steps past its target.
		n := StepsInInterval(v, c.params.StepPeriodUS).Steps()
		if n < 1 {
			n = 1
		}
		if n > remaining {
			n = remaining
		}

		a.Backend.SetDirection(dir > 0)
		for i := int64(0); i < n; i++ {
			a.Backend.Step()
			a.position.Add(dir * FixedScale)
			a.stepsToGo.Add(-dir * FixedScale)
		}
	}
}

// SampleEncoders polls the three quadrature channels once. Runs in the
// same high-rate context as StepTick so edges are never more than one
// emitter period stale.
func (c *Controller) SampleEncoders() {
	for _, e := range c.encoders {
		e.Sample(c.gpio)
	}
}

// RunStepLoop drives encoder sampling and step emission at the emitter
// period until the context is cancelled. The goroutine is pinned to its
// OS thread to keep the period steady.
func (c *Controller) RunStepLoop(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	period := time.Duration(c.params.StepPeriodUS) * time.Microsecond
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.SampleEncoders()
			c.StepTick()
		}
	}
}

// RunMotionLoop drives the motion update at its fixed rate until the
// context is cancelled.
func (c *Controller) RunMotionLoop(ctx context.Context) {
	period := time.Duration(c.params.MotionPeriodUS) * time.Microsecond
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.MotionTick(c.now())
		}
	}
}

// RunScheduler drives the cooperative task scheduler until the context
// is cancelled.
func (c *Controller) RunScheduler(ctx context.Context) {
	period := time.Duration(c.params.SchedulerPeriodUS) * time.Microsecond
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sched.RunPass(c.now())
		}
	}
}
