package core

import "testing"

func TestQueuePushPopFIFO(t *testing.T) {
	var q CommandQueue

	for i := 0; i < CommandQueueSize; i++ {
		if err := q.Push(MoveRelative(AxisX, int64(i))); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if q.Size() != CommandQueueSize {
		t.Fatalf("size = %d, want %d", q.Size(), CommandQueueSize)
	}

	// One past capacity must fail, not overwrite.
	if err := q.Push(StopAxis(AxisX)); err != ErrQueueFull {
		t.Fatalf("push over capacity: got %v, want ErrQueueFull", err)
	}

	for i := 0; i < CommandQueueSize; i++ {
		cmd, err := q.Pop()
		if err != nil {
			t.Fatalf("pop %d: %v", i, err)
		}
		if cmd.Value != FixedFromSteps(int64(i)) {
			t.Errorf("pop %d: value %v, want %d", i, cmd.Value.Float(), i)
		}
	}
	if _, err := q.Pop(); err != ErrQueueEmpty {
		t.Fatalf("pop on empty: got %v, want ErrQueueEmpty", err)
	}
}

func TestQueueClear(t *testing.T) {
	var q CommandQueue
	for i := 0; i < 5; i++ {
		if err := q.Push(StopAxis(AxisZ)); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	q.Clear()
	if q.Size() != 0 {
		t.Fatalf("size after clear = %d, want 0", q.Size())
	}

	// The ring stays usable after a clear.
	if err := q.Push(EnableAxis(AxisX)); err != nil {
		t.Fatalf("push after clear: %v", err)
	}
	cmd, err := q.Pop()
	if err != nil {
		t.Fatalf("pop after clear: %v", err)
	}
	if cmd.Op != OpEnableAxis {
		t.Errorf("op = %v, want enable_axis", cmd.Op)
	}
}

func TestQueueWrapAround(t *testing.T) {
	var q CommandQueue

	// Push/pop across the index wrap several times over.
	for round := 0; round < 5; round++ {
		for i := 0; i < CommandQueueSize; i++ {
			if err := q.Push(MoveRelative(AxisZ, int64(round*100+i))); err != nil {
				t.Fatalf("round %d push %d: %v", round, i, err)
			}
		}
		for i := 0; i < CommandQueueSize; i++ {
			cmd, err := q.Pop()
			if err != nil {
				t.Fatalf("round %d pop %d: %v", round, i, err)
			}
			if want := FixedFromSteps(int64(round*100 + i)); cmd.Value != want {
				t.Errorf("round %d pop %d: value %v", round, i, cmd.Value.Float())
			}
		}
	}
}

func TestQueuePeak(t *testing.T) {
	var q CommandQueue
	for i := 0; i < 7; i++ {
		q.Push(StopAxis(AxisX))
	}
	for i := 0; i < 7; i++ {
		q.Pop()
	}
	if q.Peak() != 7 {
		t.Errorf("peak = %d, want 7", q.Peak())
	}
}
