package core

import (
	"fmt"
	"strings"
)

// AxisStatus is a point-in-time snapshot of one axis, assembled from
// the query operations.
type AxisStatus struct {
	Axis     string  `json:"axis"`
	Position float64 `json:"position"`
	Target   float64 `json:"target"`
	Error    float64 `json:"error"`
	Velocity float64 `json:"velocity"`
	Mode     string  `json:"mode"`
	Phase    string  `json:"phase"`
	Moving   bool    `json:"moving"`
	Enabled  bool    `json:"enabled"`

	MPGActive bool    `json:"mpg_active"`
	MPGScale  float64 `json:"mpg_scale"`
}

// Status is a full controller snapshot for the display and network
// collaborators.
type Status struct {
	Axes            [NumAxes]AxisStatus `json:"axes"`
	SpindleCount    int64               `json:"spindle_count"`
	SpindleFiltered int64               `json:"spindle_filtered"`
	SpindleRPM      int64               `json:"spindle_rpm"`
	EncoderFaults   int64               `json:"encoder_faults"`
	EStop           bool                `json:"estop"`
	QueueDepth      int                 `json:"queue_depth"`
	QueuePeak       int                 `json:"queue_peak"`
	EStopTrips      uint64              `json:"estop_trips"`
}

// Snapshot assembles a consistent status from the query operations.
func (c *Controller) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s Status
	for i, a := range c.axes {
		pos := a.Position()
		s.Axes[i] = AxisStatus{
			Axis:      a.ID.String(),
			Position:  pos.Float(),
			Target:    a.TargetPosition.Float(),
			Error:     (a.TargetPosition - pos).Float(),
			Velocity:  a.Velocity().Float(),
			Mode:      a.Mode.String(),
			Phase:     a.Profile.Phase.String(),
			Moving:    a.Moving(),
			Enabled:   a.Enabled(),
			MPGActive: a.MPG.Active,
			MPGScale:  a.MPG.StepsPerCount.Float(),
		}
	}
	s.SpindleCount = c.encoders[EncoderSpindle].Count()
	s.SpindleFiltered = c.tracker.Filtered()
	s.SpindleRPM = c.tracker.RPM()
	for _, e := range c.encoders {
		s.EncoderFaults += e.ErrorCount()
	}
	s.EStop = c.estop.Active()
	s.QueueDepth = c.queue.Size()
	s.QueuePeak = c.queue.Peak()
	s.EStopTrips = c.estop.Trips()
	return s
}

// StatusReport renders the snapshot as a human-readable block for
// diagnostics.
func (c *Controller) StatusReport() string {
	s := c.Snapshot()
	var b strings.Builder
	for _, a := range s.Axes {
		fmt.Fprintf(&b, "axis %s: pos=%.2f target=%.2f err=%.2f vel=%.1f mode=%s phase=%s",
			a.Axis, a.Position, a.Target, a.Error, a.Velocity, a.Mode, a.Phase)
		if !a.Enabled {
			b.WriteString(" disabled")
		}
		if a.Moving {
			b.WriteString(" moving")
		}
		if a.MPGActive {
			fmt.Fprintf(&b, " mpg=%.2f", a.MPGScale)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "spindle: count=%d filtered=%d rpm=%d faults=%d\n",
		s.SpindleCount, s.SpindleFiltered, s.SpindleRPM, s.EncoderFaults)
	fmt.Fprintf(&b, "queue: depth=%d peak=%d\n", s.QueueDepth, s.QueuePeak)
	fmt.Fprintf(&b, "estop: %v (trips=%d)\n", s.EStop, s.EStopTrips)
	return b.String()
}
