package core

import "sync/atomic"

// Quadrature decoding for the spindle encoder and the manual pulse
// generators. The decoder keeps a signed accumulator advanced by the
// legal transition table; illegal transitions are counted and rejected
// so a glitch can never corrupt the absolute reference.

// EncoderID identifies one of the decoded encoder channels.
type EncoderID uint8

const (
	EncoderSpindle EncoderID = 0
	EncoderMPGX    EncoderID = 1
	EncoderMPGZ    EncoderID = 2

	NumEncoders = 3
)

func (e EncoderID) String() string {
	switch e {
	case EncoderSpindle:
		return "spindle"
	case EncoderMPGX:
		return "mpg_x"
	case EncoderMPGZ:
		return "mpg_z"
	}
	return "?"
}

// quadIllegal marks a two-edge jump where direction cannot be known.
const quadIllegal = int8(2)

// quadTable maps prev*4+cur to the count delta for that transition.
// States follow the Gray sequence 0,1,3,2 in the forward direction.
var quadTable = [16]int8{
	0, +1, -1, quadIllegal,
	-1, 0, quadIllegal, +1,
	+1, quadIllegal, 0, -1,
	quadIllegal, -1, +1, 0,
}

// EncoderChannel decodes one quadrature pair. count and errorCount are
// written only by the decoding context and read atomically everywhere
// else.
type EncoderChannel struct {
	count      atomic.Int64
	errorCount atomic.Int64
	lastState  uint8

	pinA GPIOPin
	pinB GPIOPin
}

// NewEncoderChannel creates a channel for the given input pins.
func NewEncoderChannel(pinA, pinB GPIOPin) *EncoderChannel {
	return &EncoderChannel{pinA: pinA, pinB: pinB}
}

// Configure sets up the input pins and seeds the decoder state from the
// current pin levels so the first real edge decodes correctly.
func (e *EncoderChannel) Configure(gpio GPIODriver) error {
	if err := gpio.ConfigureInputPullUp(e.pinA); err != nil {
		return err
	}
	if err := gpio.ConfigureInputPullUp(e.pinB); err != nil {
		return err
	}
	e.lastState = quadState(gpio.ReadPin(e.pinA), gpio.ReadPin(e.pinB))
	return nil
}

// Sample reads both pins and applies the resulting transition.
func (e *EncoderChannel) Sample(gpio GPIODriver) {
	e.Transition(quadState(gpio.ReadPin(e.pinA), gpio.ReadPin(e.pinB)))
}

// Transition applies one observed quadrature state. A legal transition
// moves count by exactly +-1; an illegal one increments errorCount and
// leaves count untouched.
func (e *EncoderChannel) Transition(state uint8) {
	delta := quadTable[e.lastState<<2|state&3]
	e.lastState = state & 3
	switch delta {
	case 0:
	case quadIllegal:
		e.errorCount.Add(1)
	default:
		e.count.Add(int64(delta))
	}
}

// Count returns the signed accumulator.
func (e *EncoderChannel) Count() int64 {
	return e.count.Load()
}

// ErrorCount returns the number of rejected transitions.
func (e *EncoderChannel) ErrorCount() int64 {
	return e.errorCount.Load()
}

// Zero resets the accumulator. The decoder state is kept so decoding
// continues seamlessly.
func (e *EncoderChannel) Zero() {
	e.count.Store(0)
}

func quadState(a, b bool) uint8 {
	var s uint8
	if a {
		s |= 2
	}
	if b {
		s |= 1
	}
	return s
}
