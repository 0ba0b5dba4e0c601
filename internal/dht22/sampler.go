package dht22

import (
	"fmt"
	"runtime/debug"

	"github.com/sweeney/dht22-sensor/internal/gpio"
)

// Sample wakes the sensor and records the width of every level the line holds,
// for up to t.MaxTimings transitions (never more than MaxTransitions). The pass stops at the first edge that
// saturates at t.TimeoutTicks; that edge is not recorded.
//
// Errors are GPIO failures (including out-of-range levels) and are fatal for
// the process. A stuck line is not an error: it shows up as Capture.TimedOut.
func Sample(line gpio.Line, t Timing) (Capture, error) {
	// GC pauses during the busy-poll would stretch pulse widths.
	gcPercent := debug.SetGCPercent(-1)
	defer debug.SetGCPercent(gcPercent)

	if err := wake(line, t); err != nil {
		return Capture{}, err
	}

	limit := max(0, min(t.MaxTimings, MaxTransitions))
	capture := Capture{Pulses: make([]Pulse, 0, limit)}
	last := gpio.High
	for i := 0; i < limit; i++ {
		width, next, ok, err := measure(line, last, t)
		if err != nil {
			return capture, err
		}
		if !ok {
			capture.TimedOut = true
			break
		}
		capture.Pulses = append(capture.Pulses, Pulse{Index: i, Level: last, Width: width})
		last = next
	}

	return capture, nil
}

// wake holds the line low for t.WakeMillis then releases it to the sensor.
func wake(line gpio.Line, t Timing) error {
	if err := line.SetMode(gpio.Output); err != nil {
		return fmt.Errorf("wake: %w", err)
	}
	if err := line.Write(gpio.Low); err != nil {
		return fmt.Errorf("wake: %w", err)
	}
	line.DelayMilliseconds(t.WakeMillis)
	if err := line.SetMode(gpio.Input); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	return nil
}

// measure polls the line while it stays at level, one tick per poll.
// Returns the tick count, the new level, and ok=false if the count reached
// t.TimeoutTicks without a transition.
func measure(line gpio.Line, level gpio.Level, t Timing) (uint8, gpio.Level, bool, error) {
	var width uint8
	for {
		l, err := line.Read()
		if err != nil {
			return width, level, false, err
		}
		if l != level {
			return width, l, true, nil
		}
		width++
		line.DelayMicroseconds(t.TickMicros)
		if width >= t.TimeoutTicks {
			return width, level, false, nil
		}
	}
}
