package dht22

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/dht22-sensor/internal/gpio"
)

// Reader performs single acquisition attempts on one line.
type Reader struct {
	line   gpio.Line
	timing Timing
	logger logrus.FieldLogger
}

// NewReader creates a Reader for the given line. The line must stay owned by
// the caller's lock for as long as the Reader is used.
func NewReader(line gpio.Line, timing Timing, logger logrus.FieldLogger) *Reader {
	return &Reader{
		line:   line,
		timing: timing,
		logger: logger.WithField("sensor", "DHT22|AM2302"),
	}
}

// Attempt runs one wake, sample, decode and validate cycle.
// Recoverable failures are reported through Result.Outcome; a non-nil error
// means the GPIO layer itself failed.
func (r *Reader) Attempt() (Result, error) {
	capture, err := Sample(r.line, r.timing)
	if err != nil {
		return Result{}, fmt.Errorf("sample: %w", err)
	}

	r.logger.Debugf("Pulses received from sensor: %v", widths(capture.Pulses))

	frame, bits := Decode(capture.Pulses, r.timing)
	res := Validate(frame, bits)

	r.logger.WithFields(logrus.Fields{
		"transitions": len(capture.Pulses),
		"timed_out":   capture.TimedOut,
		"bits":        bits,
		"frame":       fmt.Sprintf("% x", frame[:]),
		"outcome":     res.Outcome,
	}).Debug("attempt decoded")

	return res, nil
}

func widths(pulses []Pulse) []uint8 {
	w := make([]uint8, len(pulses))
	for i, p := range pulses {
		w[i] = p.Width
	}
	return w
}
