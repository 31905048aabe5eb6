package core

// Cooperative tiered scheduler for the low-rate control loop. Tasks are
// registered once at startup; each pass runs every Critical task
// unconditionally and the remaining tiers when their period has
// elapsed. Tasks must not block; the scheduler records per-task timing
// so a misbehaving callback shows up in diagnostics.

// TaskTier orders tasks within a scheduler pass.
type TaskTier uint8

const (
	TierCritical TaskTier = iota
	TierHigh
	TierNormal
	TierLow

	numTiers = 4
)

func (t TaskTier) String() string {
	switch t {
	case TierCritical:
		return "critical"
	case TierHigh:
		return "high"
	case TierNormal:
		return "normal"
	case TierLow:
		return "low"
	}
	return "?"
}

// ScheduledTask is one periodic callback.
type ScheduledTask struct {
	Name     string
	Tier     TaskTier
	PeriodUS int64
	Callback func(nowUS int64)

	LastRunUS int64
	RunCount  uint64
	MaxRunUS  int64
}

// Scheduler runs registered tasks from a single goroutine. Not safe for
// concurrent registration after the loop starts.
type Scheduler struct {
	tasks [numTiers][]*ScheduledTask
	clock func() int64
}

// NewScheduler creates a scheduler using the given microsecond clock.
func NewScheduler(clock func() int64) *Scheduler {
	return &Scheduler{clock: clock}
}

// Register adds a task. Registration order is preserved within a tier.
func (s *Scheduler) Register(name string, tier TaskTier, periodUS int64, cb func(nowUS int64)) *ScheduledTask {
	t := &ScheduledTask{Name: name, Tier: tier, PeriodUS: periodUS, Callback: cb}
	s.tasks[tier] = append(s.tasks[tier], t)
	return t
}

// RunPass executes one scheduler pass at the given time. Critical tasks
// run unconditionally; other tiers run when their period has elapsed,
// in tier order then registration order.
func (s *Scheduler) RunPass(nowUS int64) {
	for tier := TierCritical; tier < numTiers; tier++ {
		for _, t := range s.tasks[tier] {
			// A task that has never run is due immediately.
			if tier != TierCritical && t.RunCount > 0 && nowUS-t.LastRunUS < t.PeriodUS {
				continue
			}
			t.LastRunUS = nowUS
			start := s.clock()
			t.Callback(nowUS)
			t.RunCount++

			if took := s.clock() - start; took > t.MaxRunUS {
				t.MaxRunUS = took
			}
		}
	}
}

// Tasks returns every registered task in execution order, for
// diagnostics.
func (s *Scheduler) Tasks() []*ScheduledTask {
	var out []*ScheduledTask
	for tier := TierCritical; tier < numTiers; tier++ {
		out = append(out, s.tasks[tier]...)
	}
	return out
}
