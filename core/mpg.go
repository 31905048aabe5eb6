package core

// Manual pulse generator jogging. Each MPG detent nudges the axis
// target by a configurable scale. The scale can be fractional, so the
// remainder of every conversion is carried in fixed point rather than
// discarded, and slow hand motion still adds up to exact travel.

// MPGState maps one MPG encoder onto one axis.
type MPGState struct {
	// StepsPerCount is the axis travel per quadrature count in steps.
	StepsPerCount Fixed

	Active    bool
	lastCount int64
	residual  Fixed
}

// Enable arms jogging, seeding the reference count so pulses that
// arrived while disarmed are not replayed.
func (m *MPGState) Enable(currentCount int64, scale Fixed) {
	m.StepsPerCount = scale
	m.lastCount = currentCount
	m.residual = 0
	m.Active = true
}

// Disable disarms jogging and drops any fractional remainder.
func (m *MPGState) Disable() {
	m.Active = false
	m.residual = 0
}

// Advance converts the counts received since the previous call into an
// axis target delta. The fractional part of the conversion is retained
// for the next call.
func (m *MPGState) Advance(currentCount int64) Fixed {
	if !m.Active {
		m.lastCount = currentCount
		return 0
	}
	delta := currentCount - m.lastCount
	m.lastCount = currentCount
	if delta == 0 {
		return 0
	}

	total := m.residual + m.StepsPerCount*Fixed(delta)
	whole := FixedFromSteps(total.Steps())
	m.residual = total - whole
	return whole
}
