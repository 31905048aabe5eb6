// Package serial writes periodic status lines to a serial console, for
// an operator display or a logging terminal hanging off the controller.
package serial

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// Config describes a serial port.
type Config struct {
	Device      string
	Baud        int
	ReadTimeout int // milliseconds
}

// Port is the minimal serial interface the status sink needs.
type Port interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	Close() error
}

// NativePort wraps the tarm/serial implementation
type NativePort struct {
	port *serial.Port
	cfg  *Config
}

// Open opens a native serial port
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	serialConfig := &serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	}

	port, err := serial.OpenPort(serialConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	return &NativePort{port: port, cfg: cfg}, nil
}

// Read reads data from the serial port
func (p *NativePort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write writes data to the serial port
func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close closes the serial port
func (p *NativePort) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// StatusSink renders status reports onto a port.
type StatusSink struct {
	port Port
}

// NewStatusSink wraps a port.
func NewStatusSink(port Port) *StatusSink {
	return &StatusSink{port: port}
}

// Publish writes one status report framed by blank lines so a dumb
// terminal shows readable blocks.
func (s *StatusSink) Publish(report string) error {
	_, err := fmt.Fprintf(s.port, "\r\n%s\r\n", report)
	return err
}

// Close releases the underlying port.
func (s *StatusSink) Close() error {
	return s.port.Close()
}
