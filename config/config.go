// Package config loads and validates the controller configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"goels/core"
)

// AxisConfig configures one linear axis. Positions and rates are in
// millimetres; conversion to steps happens in ToParams.
type AxisConfig struct {
	StepPin    uint32 `mapstructure:"step_pin"`
	DirPin     uint32 `mapstructure:"dir_pin"`
	EnablePin  uint32 `mapstructure:"enable_pin"`
	InvertStep bool   `mapstructure:"invert_step"`
	InvertDir  bool   `mapstructure:"invert_dir"`

	StepsPerMM  float64 `mapstructure:"steps_per_mm"`
	MaxVelocity float64 `mapstructure:"max_velocity"` // mm/s
	MaxAccel    float64 `mapstructure:"max_accel"`    // mm/s^2

	MinPosition   float64 `mapstructure:"min_position"` // mm
	MaxPosition   float64 `mapstructure:"max_position"` // mm
	LimitsEnabled bool    `mapstructure:"limits_enabled"`

	PID PIDConfig `mapstructure:"pid"`
}

// PIDConfig is the hold-loop tuning for one axis.
type PIDConfig struct {
	Kp        float64 `mapstructure:"kp"`
	Ki        float64 `mapstructure:"ki"`
	Kd        float64 `mapstructure:"kd"`
	MaxOutput float64 `mapstructure:"max_output"` // mm/s
}

// EncoderConfig names the input pins of one quadrature pair.
type EncoderConfig struct {
	PinA uint32 `mapstructure:"pin_a"`
	PinB uint32 `mapstructure:"pin_b"`
}

// Config is the full controller configuration.
type Config struct {
	StepPeriodUS      int64 `mapstructure:"step_period_us"`
	MotionPeriodUS    int64 `mapstructure:"motion_period_us"`
	SchedulerPeriodUS int64 `mapstructure:"scheduler_period_us"`

	AxisX AxisConfig `mapstructure:"axis_x"`
	AxisZ AxisConfig `mapstructure:"axis_z"`

	Spindle             EncoderConfig `mapstructure:"spindle"`
	MPGX                EncoderConfig `mapstructure:"mpg_x"`
	MPGZ                EncoderConfig `mapstructure:"mpg_z"`
	SpindleCountsPerRev int64         `mapstructure:"spindle_counts_per_rev"`
	BacklashCounts      int64         `mapstructure:"backlash_counts"`

	Serial  SerialConfig  `mapstructure:"serial"`
	Monitor MonitorConfig `mapstructure:"monitor"`
}

// SerialConfig configures the optional serial status sink.
type SerialConfig struct {
	Device string `mapstructure:"device"`
	Baud   int    `mapstructure:"baud"`
}

// MonitorConfig configures the optional MQTT status publisher.
type MonitorConfig struct {
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
	PeriodMS int64  `mapstructure:"period_ms"`
}

// Load reads the configuration file at path, or defaults plus
// environment overrides when path is empty. Environment variables use
// the GOELS_ prefix with underscores for nesting.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("goels")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(cfg *Config) {
	if cfg.StepPeriodUS == 0 {
		cfg.StepPeriodUS = 500
	}
	if cfg.MotionPeriodUS == 0 {
		cfg.MotionPeriodUS = 1000
	}
	if cfg.SchedulerPeriodUS == 0 {
		cfg.SchedulerPeriodUS = 1000
	}
	if cfg.SpindleCountsPerRev == 0 {
		cfg.SpindleCountsPerRev = 600
	}

	axes := []*AxisConfig{&cfg.AxisX, &cfg.AxisZ}
	for _, a := range axes {
		if a.StepsPerMM == 0 {
			a.StepsPerMM = 200.0
		}
		if a.MaxVelocity == 0 {
			a.MaxVelocity = 20.0 // mm/s
		}
		if a.MaxAccel == 0 {
			a.MaxAccel = 40.0 // mm/s^2
		}
		if a.PID.Kp == 0 {
			a.PID.Kp = 8.0
		}
		if a.PID.Ki == 0 {
			a.PID.Ki = 0.5
		}
		if a.PID.Kd == 0 {
			a.PID.Kd = 0.05
		}
		if a.PID.MaxOutput == 0 {
			a.PID.MaxOutput = 10.0 // mm/s
		}
	}

	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = 115200
	}
	if cfg.Monitor.Topic == "" {
		cfg.Monitor.Topic = "goels/status"
	}
	if cfg.Monitor.ClientID == "" {
		cfg.Monitor.ClientID = "goels"
	}
	if cfg.Monitor.PeriodMS == 0 {
		cfg.Monitor.PeriodMS = 500
	}
}

// Validate rejects non-physical parameters so a bad file can never put
// garbage limits into the motion loops.
func (c *Config) Validate() error {
	if c.StepPeriodUS <= 0 || c.MotionPeriodUS <= 0 || c.SchedulerPeriodUS <= 0 {
		return fmt.Errorf("periods must be positive")
	}
	if c.SpindleCountsPerRev <= 0 {
		return fmt.Errorf("spindle_counts_per_rev must be positive")
	}
	if c.BacklashCounts < 0 {
		return fmt.Errorf("backlash_counts must not be negative")
	}

	for _, ax := range []struct {
		name string
		cfg  *AxisConfig
	}{{"axis_x", &c.AxisX}, {"axis_z", &c.AxisZ}} {
		if ax.cfg.StepsPerMM <= 0 {
			return fmt.Errorf("%s: steps_per_mm must be positive", ax.name)
		}
		if ax.cfg.MaxVelocity <= 0 {
			return fmt.Errorf("%s: max_velocity must be positive", ax.name)
		}
		if ax.cfg.MaxAccel <= 0 {
			return fmt.Errorf("%s: max_accel must be positive", ax.name)
		}
		if ax.cfg.LimitsEnabled && ax.cfg.MinPosition > ax.cfg.MaxPosition {
			return fmt.Errorf("%s: min_position exceeds max_position", ax.name)
		}
		if ax.cfg.PID.Kp < 0 || ax.cfg.PID.Ki < 0 || ax.cfg.PID.Kd < 0 {
			return fmt.Errorf("%s: pid gains must not be negative", ax.name)
		}
	}
	return nil
}

// ToParams converts the millimetre-based configuration into the
// step-based controller parameters.
func (c *Config) ToParams() core.Params {
	p := core.Params{
		StepPeriodUS:        c.StepPeriodUS,
		MotionPeriodUS:      c.MotionPeriodUS,
		SchedulerPeriodUS:   c.SchedulerPeriodUS,
		SpindleCountsPerRev: c.SpindleCountsPerRev,
		BacklashCounts:      c.BacklashCounts,
		Spindle:             core.EncoderParams{PinA: core.GPIOPin(c.Spindle.PinA), PinB: core.GPIOPin(c.Spindle.PinB)},
		MPGX:                core.EncoderParams{PinA: core.GPIOPin(c.MPGX.PinA), PinB: core.GPIOPin(c.MPGX.PinB)},
		MPGZ:                core.EncoderParams{PinA: core.GPIOPin(c.MPGZ.PinA), PinB: core.GPIOPin(c.MPGZ.PinB)},
	}
	p.Axes[core.AxisX] = axisParams(&c.AxisX)
	p.Axes[core.AxisZ] = axisParams(&c.AxisZ)
	return p
}

func axisParams(a *AxisConfig) core.AxisParams {
	spmm := a.StepsPerMM
	return core.AxisParams{
		StepPin:    core.GPIOPin(a.StepPin),
		DirPin:     core.GPIOPin(a.DirPin),
		EnablePin:  core.GPIOPin(a.EnablePin),
		InvertStep: a.InvertStep,
		InvertDir:  a.InvertDir,

		StepsPerMM:  core.FixedFromFloat(spmm),
		MaxVelocity: core.FixedFromFloat(a.MaxVelocity * spmm),
		MaxAccel:    core.FixedFromFloat(a.MaxAccel * spmm),

		SoftLimitMin:  core.FixedFromFloat(a.MinPosition * spmm),
		SoftLimitMax:  core.FixedFromFloat(a.MaxPosition * spmm),
		LimitsEnabled: a.LimitsEnabled,

		PID: core.PIDParams{
			Kp:        core.FixedFromFloat(a.PID.Kp),
			Ki:        core.FixedFromFloat(a.PID.Ki),
			Kd:        core.FixedFromFloat(a.PID.Kd),
			MinOutput: core.FixedFromFloat(-a.PID.MaxOutput * spmm),
			MaxOutput: core.FixedFromFloat(a.PID.MaxOutput * spmm),
		},
	}
}
