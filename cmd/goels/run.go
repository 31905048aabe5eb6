package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"goels/config"
	"goels/core"
	"goels/host/monitor"
	"goels/host/serial"
	"goels/targets/linux"
	"goels/targets/sim"
)

func run() error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	params := cfg.ToParams()

	var gpio core.GPIODriver
	var backends [core.NumAxes]core.StepperBackend
	if useSim {
		gpio = sim.NewGPIO()
		backends[core.AxisX] = sim.NewStepperBackend("sim-x")
		backends[core.AxisZ] = sim.NewStepperBackend("sim-z")
	} else {
		lg, err := linux.NewGPIO()
		if err != nil {
			return err
		}
		gpio = lg
		backends[core.AxisX] = linux.NewStepperBackend(lg)
		backends[core.AxisZ] = linux.NewStepperBackend(lg)
	}

	ctrl, err := core.NewController(params, gpio, backends)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ctrl.RunStepLoop(ctx)
	go ctrl.RunMotionLoop(ctx)

	if cfg.Serial.Device != "" {
		port, err := serial.Open(&serial.Config{Device: cfg.Serial.Device, Baud: cfg.Serial.Baud})
		if err != nil {
			return err
		}
		sink := serial.NewStatusSink(port)
		defer sink.Close()
		ctrl.Scheduler().Register("serial_status", core.TierLow, 1_000_000, func(int64) {
			if err := sink.Publish(ctrl.StatusReport()); err != nil {
				log.Printf("serial status: %v", err)
			}
		})
	}

	if cfg.Monitor.Broker != "" {
		pub, err := monitor.New(monitor.Config{
			Broker:   cfg.Monitor.Broker,
			Topic:    cfg.Monitor.Topic,
			ClientID: cfg.Monitor.ClientID,
			Period:   time.Duration(cfg.Monitor.PeriodMS) * time.Millisecond,
		}, ctrl)
		if err != nil {
			return err
		}
		go pub.Run(ctx)
	}

	go ctrl.RunScheduler(ctx)

	fmt.Printf("goels %s\n", version)
	if useSim {
		fmt.Println("running against simulated hardware")
	}
	console(ctrl, cfg)
	return nil
}

// console is the interactive operator loop.
func console(ctrl *core.Controller, cfg *config.Config) {
	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)

		switch parts[0] {
		case "quit", "exit", "q":
			return
		case "help", "?":
			printHelp()
		case "status", "s":
			fmt.Print(ctrl.StatusReport())
		case "tasks":
			for _, t := range ctrl.Scheduler().Tasks() {
				fmt.Printf("  %-16s %-8s period=%dus runs=%d max=%dus\n",
					t.Name, t.Tier, t.PeriodUS, t.RunCount, t.MaxRunUS)
			}
		case "zerospindle":
			if err := ctrl.ZeroSpindle(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		case "rpm":
			fmt.Printf("spindle: %d rpm (%d counts)\n",
				ctrl.SpindleRPM(), ctrl.EncoderCount(core.EncoderSpindle))
		case "estop":
			ctrl.SetEmergencyStop(true)
			fmt.Println("emergency stop latched")
		case "release":
			ctrl.SetEmergencyStop(false)
			fmt.Println("emergency stop released")
		default:
			if err := axisCommand(ctrl, cfg, parts); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		}
	}
}

func axisCommand(ctrl *core.Controller, cfg *config.Config, parts []string) error {
	if len(parts) < 2 {
		return fmt.Errorf("unknown command: %s (type 'help')", parts[0])
	}
	axis, axisCfg, err := parseAxis(cfg, parts[1])
	if err != nil {
		return err
	}
	spmm := core.FixedFromFloat(axisCfg.StepsPerMM)

	mmArg := func(i int) (core.Fixed, error) {
		if len(parts) <= i {
			return 0, fmt.Errorf("%s: missing argument", parts[0])
		}
		v, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return 0, fmt.Errorf("%s: bad number %q", parts[0], parts[i])
		}
		return core.MMToSteps(core.FixedFromFloat(v), spmm), nil
	}

	switch parts[0] {
	case "enable":
		return ctrl.ExecuteImmediate(core.EnableAxis(axis))
	case "disable":
		return ctrl.ExecuteImmediate(core.DisableAxis(axis))
	case "stop":
		return ctrl.ExecuteImmediate(core.StopAxis(axis))
	case "move":
		steps, err := mmArg(2)
		if err != nil {
			return err
		}
		return ctrl.QueueCommand(core.MoveRelative(axis, steps.Steps()))
	case "moveto":
		steps, err := mmArg(2)
		if err != nil {
			return err
		}
		return ctrl.QueueCommand(core.MoveAbsolute(axis, steps))
	case "sync":
		pitch, err := mmArg(2)
		if err != nil {
			return err
		}
		return ctrl.StartSpindleSync(axis, pitch)
	case "unsync":
		return ctrl.StopSpindleSync(axis)
	case "jog":
		scale, err := mmArg(2)
		if err != nil {
			return err
		}
		return ctrl.EnableMPG(axis, scale)
	case "nojog":
		return ctrl.DisableMPG(axis)
	case "hold":
		return ctrl.HoldAxis(axis)
	case "zero":
		return ctrl.ZeroAxis(axis)
	case "limits":
		lo, err := mmArg(2)
		if err != nil {
			return err
		}
		hi, err := mmArg(3)
		if err != nil {
			return err
		}
		return ctrl.SetSoftLimits(axis, lo, hi, true)
	case "pid":
		if len(parts) < 5 {
			return fmt.Errorf("pid: need AXIS KP KI KD")
		}
		var gains [3]core.Fixed
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(parts[i+2], 64)
			if err != nil {
				return fmt.Errorf("pid: bad number %q", parts[i+2])
			}
			gains[i] = core.FixedFromFloat(v)
		}
		return ctrl.SetPIDGains(axis, gains[0], gains[1], gains[2])
	}
	return fmt.Errorf("unknown command: %s (type 'help')", parts[0])
}

func parseAxis(cfg *config.Config, s string) (core.AxisID, *config.AxisConfig, error) {
	switch strings.ToUpper(s) {
	case "X":
		return core.AxisX, &cfg.AxisX, nil
	case "Z":
		return core.AxisZ, &cfg.AxisZ, nil
	}
	return 0, nil, fmt.Errorf("unknown axis %q", s)
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  status               - Print the status report")
	fmt.Println("  enable/disable AXIS  - Energize or release an axis (X or Z)")
	fmt.Println("  move AXIS MM         - Relative move in millimetres")
	fmt.Println("  moveto AXIS MM       - Absolute move in millimetres")
	fmt.Println("  stop AXIS            - Stop the axis")
	fmt.Println("  sync AXIS PITCH      - Spindle-synchronized feed, mm per revolution")
	fmt.Println("  unsync AXIS          - Leave spindle-synchronized feed")
	fmt.Println("  jog AXIS MM          - Arm the pulse generator, mm per count")
	fmt.Println("  nojog AXIS           - Disarm the pulse generator")
	fmt.Println("  hold AXIS            - Closed-loop hold at the current position")
	fmt.Println("  zero AXIS            - Declare the current position zero")
	fmt.Println("  limits AXIS MIN MAX  - Set soft travel limits in millimetres")
	fmt.Println("  pid AXIS KP KI KD    - Set the hold-loop gains")
	fmt.Println("  zerospindle          - Reset the spindle encoder count")
	fmt.Println("  rpm                  - Show spindle speed")
	fmt.Println("  estop / release      - Latch or release the emergency stop")
	fmt.Println("  tasks                - Show scheduler diagnostics")
	fmt.Println("  quit/exit/q          - Exit")
	fmt.Println()
}
