package core

// Fixed-point math shared by the planner, the spindle coordinator and the
// step emitter. Positions and velocities are carried as Q.8 fixed point so
// fractional steps accumulate deterministically instead of drifting the way
// binary floats do.

const (
	// FixedShift is the number of fractional bits.
	FixedShift = 8
	// FixedScale is the value of one whole step.
	FixedScale = 1 << FixedShift
)

// Fixed is a signed fixed-point quantity with FixedShift fractional bits.
// Units depend on use: steps, steps/s or steps/s^2.
type Fixed int64

// FixedFromSteps converts a whole step count.
func FixedFromSteps(steps int64) Fixed {
	return Fixed(steps << FixedShift)
}

// FixedFromFloat converts a float, rounding to the nearest representable
// value. Used only at configuration time, never in the motion loops.
func FixedFromFloat(v float64) Fixed {
	if v >= 0 {
		return Fixed(v*FixedScale + 0.5)
	}
	return Fixed(v*FixedScale - 0.5)
}

// Float converts to float64 for reporting.
func (f Fixed) Float() float64 {
	return float64(f) / FixedScale
}

// Steps rounds to the nearest whole step, half away from zero.
func (f Fixed) Steps() int64 {
	if f >= 0 {
		return (int64(f) + FixedScale/2) >> FixedShift
	}
	return -((-int64(f) + FixedScale/2) >> FixedShift)
}

// Abs returns the magnitude.
func (f Fixed) Abs() Fixed {
	if f < 0 {
		return -f
	}
	return f
}

// Mul multiplies two fixed-point values.
func (f Fixed) Mul(o Fixed) Fixed {
	return Fixed((int64(f) * int64(o)) >> FixedShift)
}

// Div divides two fixed-point values. Division by zero yields zero rather
// than a panic so a misconfigured rate cannot take down a motion loop.
func (f Fixed) Div(o Fixed) Fixed {
	if o == 0 {
		return 0
	}
	return Fixed((int64(f) << FixedShift) / int64(o))
}

// MulDiv computes f*num/den in one widened operation, multiplying before
// dividing so exact integer ratios stay exact. This is what keeps
// spindle-synchronized feed free of cumulative error.
func (f Fixed) MulDiv(num, den int64) Fixed {
	return Fixed(divRoundClosest(int64(f)*num, den))
}

// divRoundClosest divides rounding half away from zero.
func divRoundClosest(num, den int64) int64 {
	if den == 0 {
		return 0
	}
	if den < 0 {
		num, den = -num, -den
	}
	if num >= 0 {
		return (num + den/2) / den
	}
	return -((-num + den/2) / den)
}

// FixedSqrt returns the square root of a non-negative fixed-point value
// using Newton iteration on the widened integer.
func FixedSqrt(f Fixed) Fixed {
	if f <= 0 {
		return 0
	}
	n := int64(f) << FixedShift
	z := n
	for i := 0; i < 48; i++ {
		next := (z + n/z) / 2
		if next >= z {
			break
		}
		z = next
	}
	return Fixed(z)
}

// StepsInInterval returns the fixed-point step distance covered at velocity
// (steps/s) over an interval in microseconds.
func StepsInInterval(velocity Fixed, intervalUS int64) Fixed {
	return Fixed(divRoundClosest(int64(velocity)*intervalUS, 1_000_000))
}

// DurationUS returns the time in microseconds to cover amount at rate.
func DurationUS(amount, rate Fixed) int64 {
	if rate == 0 {
		return 0
	}
	return divRoundClosest(int64(amount)*1_000_000, int64(rate))
}

// MMToSteps converts millimetres to fixed-point steps.
func MMToSteps(mm, stepsPerMM Fixed) Fixed {
	return mm.Mul(stepsPerMM)
}

// StepsToMM converts fixed-point steps to millimetres.
func StepsToMM(steps, stepsPerMM Fixed) Fixed {
	return steps.Div(stepsPerMM)
}
