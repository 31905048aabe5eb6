package core

// Spindle-synchronized feed. While active, the axis target is a pure
// function of the live spindle encoder count relative to the reference
// captured at activation. The conversion multiplies before dividing in
// wide precision so exact count-to-pitch ratios stay exact and no error
// accumulates over many revolutions.

// SpindleSyncState captures the reference for one synchronized feed.
type SpindleSyncState struct {
	ReferenceSpindleCount int64
	ReferenceAxisPosition Fixed

	// PitchPerRev is the axis travel per spindle revolution in steps.
	PitchPerRev Fixed
	// CountsPerRev is the encoder resolution in quadrature counts.
	CountsPerRev int64

	Active bool
}

// Begin captures the current spindle count and axis position as the
// sync reference.
func (s *SpindleSyncState) Begin(spindleCount int64, axisPos, pitch Fixed, countsPerRev int64) {
	s.ReferenceSpindleCount = spindleCount
	s.ReferenceAxisPosition = axisPos
	s.PitchPerRev = pitch
	s.CountsPerRev = countsPerRev
	s.Active = true
}

// End clears the sync state.
func (s *SpindleSyncState) End() {
	*s = SpindleSyncState{}
}

// TargetFor returns the axis target for the given live spindle count.
// Computed fresh from the absolute delta every time, so direction
// reversal walks the target back along the same values it advanced
// through.
func (s *SpindleSyncState) TargetFor(spindleCount int64) Fixed {
	if !s.Active || s.CountsPerRev == 0 {
		return s.ReferenceAxisPosition
	}
	delta := spindleCount - s.ReferenceSpindleCount
	return s.ReferenceAxisPosition + s.PitchPerRev.MulDiv(delta, s.CountsPerRev)
}

// SpindleTracker derives spindle speed and applies a backlash deadband
// to the raw encoder count before it feeds the sync conversion. Count
// jitter around a direction change smaller than the deadband is
// absorbed instead of being translated into axis motion.
type SpindleTracker struct {
	Deadband int64 // counts of mechanical play absorbed on reversal

	filtered int64

	lastCount  int64
	lastTimeUS int64
	rpm        int64
}

// Apply filters one raw count sample and returns the filtered count.
// Forward motion propagates one to one. A reversal must take up the
// play first, so the output trails the raw count by Deadband while the
// spindle runs backward and reverse jitter inside the deadband does
// not propagate at all.
func (t *SpindleTracker) Apply(raw int64) int64 {
	if raw > t.filtered {
		t.filtered = raw
	} else if t.filtered-raw > t.Deadband {
		t.filtered = raw + t.Deadband
	}
	return t.filtered
}

// Filtered returns the current deadband-filtered count.
func (t *SpindleTracker) Filtered() int64 {
	return t.filtered
}

// UpdateSpeed recomputes the spindle speed estimate from the count
// delta since the previous call. countsPerRev of zero leaves the
// estimate untouched.
func (t *SpindleTracker) UpdateSpeed(count, nowUS, countsPerRev int64) {
	dt := nowUS - t.lastTimeUS
	if dt <= 0 || countsPerRev == 0 {
		return
	}
	delta := count - t.lastCount
	t.lastCount = count
	t.lastTimeUS = nowUS

	// counts/us to rev/min.
	t.rpm = divRoundClosest(delta*60_000_000, dt*countsPerRev)
}

// RPM returns the latest speed estimate, signed by direction.
func (t *SpindleTracker) RPM() int64 {
	return t.rpm
}

// Reset clears the filter so the next sample seeds it.
func (t *SpindleTracker) Reset(raw, nowUS int64) {
	t.filtered = raw
	t.lastCount = raw
	t.lastTimeUS = nowUS
	t.rpm = 0
}
