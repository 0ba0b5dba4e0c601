// Package gpio provides single-line GPIO access with hardware abstraction.
// The real implementations use the Linux GPIO character device or periph.io.
// The fake implementation replays a scripted waveform for testing without hardware.
package gpio

import (
	"errors"
	"fmt"
	"time"
)

// Level is the electrical level of a line.
type Level uint8

const (
	Low  Level = 0
	High Level = 1
)

func (l Level) String() string {
	if l == High {
		return "HIGH"
	}
	return "LOW"
}

// Mode is the direction of a line.
type Mode int

const (
	Input Mode = iota
	Output
)

func (m Mode) String() string {
	if m == Output {
		return "OUTPUT"
	}
	return "INPUT"
}

// ErrInvalidLevel is returned when the underlying library reports a value
// outside {0, 1}. It signals a broken platform contract, not bad sensor data.
var ErrInvalidLevel = errors.New("gpio: invalid level from gpio library")

// LevelFromRaw converts a raw library value into a Level.
func LevelFromRaw(v int) (Level, error) {
	switch v {
	case 0:
		return Low, nil
	case 1:
		return High, nil
	}
	return Low, fmt.Errorf("%w: %d", ErrInvalidLevel, v)
}

// Line drives a single bidirectional GPIO line.
type Line interface {
	// SetMode switches the line direction.
	SetMode(m Mode) error

	// Write drives the line. Only valid in Output mode.
	Write(l Level) error

	// Read samples the line level.
	// Returns an error wrapping ErrInvalidLevel for out-of-domain values.
	Read() (Level, error)

	// DelayMilliseconds blocks for n milliseconds.
	DelayMilliseconds(n int)

	// DelayMicroseconds busy-waits for n microseconds.
	DelayMicroseconds(n int)

	// Close releases GPIO resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendChardev = "chardev"
	BackendPeriph  = "periph"
)

// Open returns a hardware line for the given backend and BCM pin.
// chip is only used by the chardev backend.
func Open(backend, chip string, pin int) (Line, error) {
	switch backend {
	case BackendChardev, "":
		l, err := NewChardevLine(chip, pin)
		if err != nil {
			return nil, err
		}
		return l, nil
	case BackendPeriph:
		l, err := NewPeriphLine(pin)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	return nil, fmt.Errorf("gpio: unknown backend %q", backend)
}

func delayMilliseconds(n int) {
	if n <= 0 {
		return
	}
	time.Sleep(time.Duration(n) * time.Millisecond)
}

// delayMicroseconds spins instead of sleeping: the scheduler cannot
// resume a sleeping goroutine within a few microseconds.
func delayMicroseconds(n int) {
	if n <= 0 {
		return
	}
	d := time.Duration(n) * time.Microsecond
	start := time.Now()
	for time.Since(start) < d {
	}
}
