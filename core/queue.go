package core

import "sync/atomic"

// CommandQueueSize is the ring capacity. Power of two so indices wrap
// with a mask.
const CommandQueueSize = 16

// CommandQueue is a bounded single-producer single-consumer ring buffer
// for motion commands. head and tail are free-running counters; their
// difference is the fill level, so all slots are usable. Push fails on
// a full queue rather than overwriting.
type CommandQueue struct {
	head atomic.Uint32 // consumer index
	tail atomic.Uint32 // producer index
	peak atomic.Uint32 // high-water mark, diagnostics only

	slots [CommandQueueSize]Command
}

// Push enqueues a command. Producer context only.
func (q *CommandQueue) Push(cmd Command) error {
	tail := q.tail.Load()
	head := q.head.Load()
	if tail-head >= CommandQueueSize {
		return ErrQueueFull
	}
	q.slots[tail&(CommandQueueSize-1)] = cmd
	q.tail.Store(tail + 1)

	if depth := tail + 1 - head; depth > q.peak.Load() {
		q.peak.Store(depth)
	}
	return nil
}

// Pop dequeues the oldest command. Consumer context only.
func (q *CommandQueue) Pop() (Command, error) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return Command{}, ErrQueueEmpty
	}
	cmd := q.slots[head&(CommandQueueSize-1)]
	q.head.Store(head + 1)
	return cmd, nil
}

// Size returns the number of queued commands. Safe from any context.
func (q *CommandQueue) Size() int {
	return int(q.tail.Load() - q.head.Load())
}

// Peak returns the high-water mark since the last Clear.
func (q *CommandQueue) Peak() int {
	return int(q.peak.Load())
}

// Clear discards every queued command. Advancing the consumer index to
// the producer index is safe from any context because head only ever
// moves forward.
func (q *CommandQueue) Clear() {
	q.head.Store(q.tail.Load())
	q.peak.Store(0)
}
