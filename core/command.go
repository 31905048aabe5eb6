package core

// Motion commands passed from the issuing context to the execution context.
// A command is immutable once enqueued and consumed exactly once.

// AxisID identifies one of the two linear axes.
type AxisID uint8

const (
	// AxisX is the cross-slide axis.
	AxisX AxisID = 0
	// AxisZ is the carriage (lead screw) axis.
	AxisZ AxisID = 1

	// NumAxes is the number of physical axes.
	NumAxes = 2
)

func (a AxisID) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisZ:
		return "Z"
	}
	return "?"
}

// Valid reports whether the axis index is in range.
func (a AxisID) Valid() bool {
	return a < NumAxes
}

// CommandOp is the tag of a motion command variant.
type CommandOp uint8

const (
	OpMoveRelative CommandOp = iota
	OpMoveAbsolute
	OpSetVelocityLimit
	OpSetAccelLimit
	OpStop
	OpEnableAxis
	OpDisableAxis
)

func (op CommandOp) String() string {
	switch op {
	case OpMoveRelative:
		return "move_relative"
	case OpMoveAbsolute:
		return "move_absolute"
	case OpSetVelocityLimit:
		return "set_velocity_limit"
	case OpSetAccelLimit:
		return "set_accel_limit"
	case OpStop:
		return "stop"
	case OpEnableAxis:
		return "enable_axis"
	case OpDisableAxis:
		return "disable_axis"
	}
	return "unknown"
}

// Command is a single motion command.
type Command struct {
	Op    CommandOp
	Axis  AxisID
	Value Fixed // steps for moves, steps/s or steps/s^2 for limit changes

	// IssueTime is the controller clock (microseconds) at issue.
	IssueTime int64

	// Blocking asks the issuer to wait for completion. The wait is a
	// spin-poll bounded by the emergency-stop flag, never an unbounded
	// block (see Controller.WaitMoveComplete).
	Blocking bool
}

// WithBlocking marks the command so QueueCommand waits for it to
// retire before returning.
func (cmd Command) WithBlocking() Command {
	cmd.Blocking = true
	return cmd
}

// Command constructors, mirroring the operations the external collaborators
// are allowed to request.

func MoveRelative(axis AxisID, steps int64) Command {
	return Command{Op: OpMoveRelative, Axis: axis, Value: FixedFromSteps(steps)}
}

func MoveAbsolute(axis AxisID, position Fixed) Command {
	return Command{Op: OpMoveAbsolute, Axis: axis, Value: position}
}

func SetVelocityLimit(axis AxisID, v Fixed) Command {
	return Command{Op: OpSetVelocityLimit, Axis: axis, Value: v}
}

func SetAccelLimit(axis AxisID, a Fixed) Command {
	return Command{Op: OpSetAccelLimit, Axis: axis, Value: a}
}

func StopAxis(axis AxisID) Command {
	return Command{Op: OpStop, Axis: axis}
}

func EnableAxis(axis AxisID) Command {
	return Command{Op: OpEnableAxis, Axis: axis}
}

func DisableAxis(axis AxisID) Command {
	return Command{Op: OpDisableAxis, Axis: axis}
}
