package core

import "sync/atomic"

// EmergencyStop is the single authoritative halt flag. It is settable
// from any context; the atomic store gives every reader
// release-acquire visibility, and the step emitter observes it within
// one emitter period.
type EmergencyStop struct {
	active atomic.Bool
	trips  atomic.Uint64
}

// Set latches the stop condition. Returns true if this call tripped it.
func (e *EmergencyStop) Set() bool {
	if e.active.Swap(true) {
		return false
	}
	e.trips.Add(1)
	return true
}

// Clear releases the stop. Motion does not resume on its own; every
// move must be re-requested.
func (e *EmergencyStop) Clear() {
	e.active.Store(false)
}

// Active reports the flag.
func (e *EmergencyStop) Active() bool {
	return e.active.Load()
}

// Trips returns how many times the stop has been latched.
func (e *EmergencyStop) Trips() uint64 {
	return e.trips.Load()
}
