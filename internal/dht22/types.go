// Package dht22 decodes the single-wire protocol of DHT22/AM2302 sensors.
// The sampler drives a gpio.Line; decoding and validation are pure functions
// of the captured pulse widths.
package dht22

import "github.com/sweeney/dht22-sensor/internal/gpio"

// FrameBits is the number of data bits in one sensor frame.
const FrameBits = 40

// Protocol limits for Timing values.
const (
	// MaxTransitions caps MaxTimings. A frame needs fewer than 90.
	MaxTransitions = 255
	// MinWakeMillis is the shortest start signal the sensor answers to.
	MinWakeMillis = 18
)

// Timing holds the protocol constants. Widths are measured in polling ticks,
// one tick being a line read followed by a TickMicros delay.
type Timing struct {
	// MaxTimings bounds the number of transitions sampled per attempt
	// (preamble plus 40 data bits plus their low separators).
	MaxTimings int
	// TimeoutTicks is the saturation value of a pulse width. An edge that
	// reaches it is treated as "no transition".
	TimeoutTicks uint8
	// BitThreshold separates a 0 bit (short high) from a 1 bit (long high).
	BitThreshold uint8
	// Preamble is the number of leading handshake transitions to discard.
	Preamble int
	// WakeMillis is how long the host holds the line low to wake the sensor.
	WakeMillis int
	// TickMicros is the delay between two polls of the line.
	TickMicros int
}

// DefaultTiming returns the usual DHT22 protocol constants.
func DefaultTiming() Timing {
	return Timing{
		MaxTimings:   85,
		TimeoutTicks: 255,
		BitThreshold: 16,
		Preamble:     4,
		WakeMillis:   20,
		TickMicros:   1,
	}
}

// Pulse is the width of one level before the line transitioned.
type Pulse struct {
	Index int
	Level gpio.Level
	Width uint8
}

// Capture is the result of one sampling pass.
type Capture struct {
	Pulses []Pulse
	// TimedOut is set when an edge saturated and the pass stopped early.
	TimedOut bool
}

// Frame is the raw 5-byte payload: humidity (2), temperature (2), checksum (1).
type Frame [5]byte

// Reading is a validated humidity/temperature pair.
type Reading struct {
	Humidity    float64 // percent relative humidity
	Temperature float64 // degrees Celsius
}

// Fahrenheit returns the temperature in degrees Fahrenheit.
func (r Reading) Fahrenheit() float64 {
	return r.Temperature*9.0/5.0 + 32.0
}

// Outcome classifies an acquisition attempt.
type Outcome int

const (
	Success Outcome = iota
	Incomplete
	ChecksumMismatch
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "SUCCESS"
	case Incomplete:
		return "INCOMPLETE"
	case ChecksumMismatch:
		return "CHECKSUM_MISMATCH"
	}
	return "UNKNOWN"
}

// Result is the outcome of one attempt. Reading is only meaningful on Success.
type Result struct {
	Outcome Outcome
	Reading Reading
	Frame   Frame
	Bits    int
}

// OK reports whether the attempt produced a reading.
func (r Result) OK() bool {
	return r.Outcome == Success
}
