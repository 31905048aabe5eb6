package core

// StepperBackend is the hardware abstraction for a single step/direction
// driver stage. Implementations must make Step safe to call from the
// high-rate emitter context without allocation or blocking.
type StepperBackend interface {
	// Init configures the step, direction and enable outputs.
	Init(stepPin, dirPin, enablePin GPIOPin, invertStep, invertDir bool) error

	// Step emits one step pulse (rising and falling edge).
	Step()

	// SetDirection drives the direction output. true is the positive
	// travel direction after polarity inversion.
	SetDirection(forward bool)

	// SetEnable drives the motor enable output.
	SetEnable(on bool) error

	// Stop forces the step output to its inactive level.
	Stop()

	// Name identifies the backend for diagnostics.
	Name() string
}
