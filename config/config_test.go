package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goels/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goels.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, int64(500), cfg.StepPeriodUS)
	assert.Equal(t, int64(1000), cfg.MotionPeriodUS)
	assert.Equal(t, int64(600), cfg.SpindleCountsPerRev)
	assert.Equal(t, 200.0, cfg.AxisX.StepsPerMM)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, "goels/status", cfg.Monitor.Topic)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
step_period_us: 250
spindle_counts_per_rev: 2400
axis_x:
  step_pin: 12
  dir_pin: 13
  steps_per_mm: 400
  max_velocity: 10
  max_accel: 20
  min_position: 0
  max_position: 150
  limits_enabled: true
spindle:
  pin_a: 4
  pin_b: 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(250), cfg.StepPeriodUS)
	assert.Equal(t, int64(2400), cfg.SpindleCountsPerRev)
	assert.Equal(t, uint32(12), cfg.AxisX.StepPin)
	assert.Equal(t, 400.0, cfg.AxisX.StepsPerMM)
	assert.True(t, cfg.AxisX.LimitsEnabled)
	// Untouched values still pick up defaults.
	assert.Equal(t, int64(1000), cfg.MotionPeriodUS)
	assert.Equal(t, 200.0, cfg.AxisZ.StepsPerMM)
}

func TestValidateRejectsNonPhysical(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"negative accel", "axis_x:\n  max_accel: -5\n"},
		{"negative velocity", "axis_z:\n  max_velocity: -1\n"},
		{"inverted limits", "axis_x:\n  limits_enabled: true\n  min_position: 100\n  max_position: 10\n"},
		{"negative gain", "axis_x:\n  pid:\n    kp: -1\n"},
		{"negative backlash", "backlash_counts: -3\n"},
		{"bad counts per rev", "spindle_counts_per_rev: -600\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/goels.yaml")
	assert.Error(t, err)
}

func TestToParams(t *testing.T) {
	path := writeConfig(t, `
axis_x:
  steps_per_mm: 200
  max_velocity: 5
  max_accel: 10
  min_position: 0
  max_position: 100
  limits_enabled: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	p := cfg.ToParams()
	x := p.Axes[core.AxisX]

	// 5 mm/s at 200 steps/mm is 1000 steps/s.
	assert.Equal(t, core.FixedFromSteps(1000), x.MaxVelocity)
	assert.Equal(t, core.FixedFromSteps(2000), x.MaxAccel)
	assert.Equal(t, core.FixedFromSteps(20000), x.SoftLimitMax)
	assert.True(t, x.LimitsEnabled)
	assert.Equal(t, int64(600), p.SpindleCountsPerRev)
}
