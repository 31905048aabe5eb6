package core

// PIDState is the position correction loop for fine positioning when an
// axis is in closed-loop hold mode. Error is target minus current
// position; the output is a velocity command clamped to the configured
// range. All terms are fixed point and the integral accumulates in
// error-microseconds, so millisecond update intervals lose no
// precision.
type PIDState struct {
	Kp Fixed
	Ki Fixed
	Kd Fixed

	MinOutput Fixed
	MaxOutput Fixed

	integralUS int64 // fixed-point error times microseconds
	lastError  Fixed
	primed     bool // lastError holds a real sample
}

// NewPIDState returns a loop with the given gains and output range.
func NewPIDState(kp, ki, kd, minOut, maxOut Fixed) PIDState {
	return PIDState{Kp: kp, Ki: ki, Kd: kd, MinOutput: minOut, MaxOutput: maxOut}
}

// SetGains replaces the gains without disturbing the running terms.
func (p *PIDState) SetGains(kp, ki, kd Fixed) {
	p.Kp, p.Ki, p.Kd = kp, ki, kd
}

// Update advances the loop by dtUS microseconds and returns the clamped
// velocity command. The integral term is only committed when the
// unclamped output stays inside the output range, which stops windup
// while the output is saturated.
func (p *PIDState) Update(errorVal Fixed, dtUS int64) Fixed {
	if dtUS <= 0 {
		return 0
	}

	integralUS := p.integralUS + int64(errorVal)*dtUS
	integral := Fixed(divRoundClosest(integralUS, 1_000_000))

	var deriv Fixed
	if p.primed {
		deriv = Fixed(divRoundClosest((int64(errorVal)-int64(p.lastError))*1_000_000, dtUS))
	}
	p.lastError = errorVal
	p.primed = true

	out := p.Kp.Mul(errorVal) + p.Ki.Mul(integral) + p.Kd.Mul(deriv)
	if out > p.MaxOutput {
		out = p.MaxOutput
	} else if out < p.MinOutput {
		out = p.MinOutput
	} else {
		p.integralUS = integralUS
	}
	return out
}

// Reset clears the accumulated error terms. Must be called on every
// transition into closed-loop mode so a stale integral cannot kick the
// axis.
func (p *PIDState) Reset() {
	p.integralUS = 0
	p.lastError = 0
	p.primed = false
}
