// Package linux drives real GPIO through periph.io on hosted Linux
// boards such as the Raspberry Pi.
package linux

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"goels/core"
)

var (
	_ core.GPIODriver     = (*GPIO)(nil)
	_ core.StepperBackend = (*StepperBackend)(nil)
)

// GPIO implements core.GPIODriver over the periph.io pin registry.
type GPIO struct {
	mu   sync.Mutex
	pins map[core.GPIOPin]gpio.PinIO
}

// NewGPIO initializes the periph host and returns a driver.
func NewGPIO() (*GPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	return &GPIO{pins: make(map[core.GPIOPin]gpio.PinIO)}, nil
}

func (g *GPIO) lookup(pin core.GPIOPin) (gpio.PinIO, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.pins[pin]; ok {
		return p, nil
	}
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if p == nil {
		return nil, fmt.Errorf("no such pin GPIO%d", pin)
	}
	g.pins[pin] = p
	return p, nil
}

func (g *GPIO) ConfigureOutput(pin core.GPIOPin) error {
	p, err := g.lookup(pin)
	if err != nil {
		return err
	}
	return p.Out(gpio.Low)
}

func (g *GPIO) ConfigureInputPullUp(pin core.GPIOPin) error {
	p, err := g.lookup(pin)
	if err != nil {
		return err
	}
	return p.In(gpio.PullUp, gpio.NoEdge)
}

func (g *GPIO) SetPin(pin core.GPIOPin, value bool) error {
	p, err := g.lookup(pin)
	if err != nil {
		return err
	}
	return p.Out(gpio.Level(value))
}

func (g *GPIO) ReadPin(pin core.GPIOPin) bool {
	p, err := g.lookup(pin)
	if err != nil {
		return false
	}
	return bool(p.Read())
}

// StepperBackend drives a step/dir/enable stage through the GPIO
// driver. Step emits both edges back to back; step drivers latch on
// the rising edge, so no hold delay is inserted.
type StepperBackend struct {
	gpio *GPIO

	stepPin   core.GPIOPin
	dirPin    core.GPIOPin
	enablePin core.GPIOPin

	invertStep bool
	invertDir  bool
}

// NewStepperBackend returns a backend bound to the driver.
func NewStepperBackend(g *GPIO) *StepperBackend {
	return &StepperBackend{gpio: g}
}

func (b *StepperBackend) Init(step, dir, enable core.GPIOPin, invertStep, invertDir bool) error {
	b.stepPin, b.dirPin, b.enablePin = step, dir, enable
	b.invertStep, b.invertDir = invertStep, invertDir

	for _, pin := range []core.GPIOPin{step, dir, enable} {
		if err := b.gpio.ConfigureOutput(pin); err != nil {
			return err
		}
	}
	return b.gpio.SetPin(b.stepPin, b.invertStep)
}

func (b *StepperBackend) Step() {
	b.gpio.SetPin(b.stepPin, !b.invertStep)
	b.gpio.SetPin(b.stepPin, b.invertStep)
}

func (b *StepperBackend) SetDirection(forward bool) {
	b.gpio.SetPin(b.dirPin, forward != b.invertDir)
}

func (b *StepperBackend) SetEnable(on bool) error {
	// Enable inputs are commonly active low.
	return b.gpio.SetPin(b.enablePin, !on)
}

func (b *StepperBackend) Stop() {
	b.gpio.SetPin(b.stepPin, b.invertStep)
}

func (b *StepperBackend) Name() string { return "linux-gpio" }
