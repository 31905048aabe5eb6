package core

import "errors"

var (
	// ErrQueueFull is returned when the command queue has no free slot.
	// Commands are never overwritten or silently dropped.
	ErrQueueFull = errors.New("command queue full")

	// ErrQueueEmpty is returned by a pop on an empty queue.
	ErrQueueEmpty = errors.New("command queue empty")

	// ErrEmergencyStop is returned while the emergency stop is latched.
	ErrEmergencyStop = errors.New("emergency stop active")

	// ErrAxisDisabled is returned for motion requests on a disabled axis.
	ErrAxisDisabled = errors.New("axis disabled")

	// ErrSoftLimit is returned when a move target lies outside the
	// configured soft travel limits.
	ErrSoftLimit = errors.New("target outside soft limits")

	// ErrInvalidAxis is returned for an out-of-range axis index.
	ErrInvalidAxis = errors.New("invalid axis")

	// ErrBadParameter is returned for a zero or negative limit value.
	ErrBadParameter = errors.New("bad parameter")

	// ErrAxisBusy is returned when a new move is requested while the
	// axis is still executing a profile.
	ErrAxisBusy = errors.New("axis busy")

	// ErrModeConflict is returned when a request conflicts with the
	// axis mode, such as a manual move during spindle-synchronized feed.
	ErrModeConflict = errors.New("axis mode conflict")
)
