// Package sim provides in-memory GPIO and stepper backends for running
// the controller without hardware.
package sim

import (
	"sync"
	"sync/atomic"

	"goels/core"
)

var (
	_ core.GPIODriver     = (*GPIO)(nil)
	_ core.StepperBackend = (*StepperBackend)(nil)
)

// GPIO is an in-memory pin bank. Input pins can be driven from test or
// simulation code through SetPin and read back by the controller.
type GPIO struct {
	mu   sync.Mutex
	pins map[core.GPIOPin]bool
}

// NewGPIO returns an empty pin bank.
func NewGPIO() *GPIO {
	return &GPIO{pins: make(map[core.GPIOPin]bool)}
}

func (g *GPIO) ConfigureOutput(pin core.GPIOPin) error      { return nil }
func (g *GPIO) ConfigureInputPullUp(pin core.GPIOPin) error { return nil }

func (g *GPIO) SetPin(pin core.GPIOPin, value bool) error {
	g.mu.Lock()
	g.pins[pin] = value
	g.mu.Unlock()
	return nil
}

func (g *GPIO) ReadPin(pin core.GPIOPin) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pins[pin]
}

// StepperBackend counts step edges instead of driving hardware.
type StepperBackend struct {
	name string

	steps   atomic.Int64
	forward atomic.Bool
	enabled atomic.Bool
}

// NewStepperBackend returns a named simulated driver stage.
func NewStepperBackend(name string) *StepperBackend {
	return &StepperBackend{name: name}
}

func (b *StepperBackend) Init(step, dir, enable core.GPIOPin, invertStep, invertDir bool) error {
	return nil
}

func (b *StepperBackend) Step() {
	b.steps.Add(1)
}

func (b *StepperBackend) SetDirection(forward bool) {
	b.forward.Store(forward)
}

func (b *StepperBackend) SetEnable(on bool) error {
	b.enabled.Store(on)
	return nil
}

func (b *StepperBackend) Stop() {}

func (b *StepperBackend) Name() string { return b.name }

// Steps returns the total step edges emitted.
func (b *StepperBackend) Steps() int64 { return b.steps.Load() }

// Forward returns the last commanded direction.
func (b *StepperBackend) Forward() bool { return b.forward.Load() }

// Enabled returns the driver enable state.
func (b *StepperBackend) Enabled() bool { return b.enabled.Load() }
