package gpio

import (
	"errors"
	"fmt"
	"strconv"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphLine drives a line through periph.io. On a Raspberry Pi periph maps
// the GPIO registers directly, so a read costs well under a microsecond.
type PeriphLine struct {
	pin pgpio.PinIO
	bcm int
}

// NewPeriphLine initializes the periph host drivers and looks up the BCM pin.
func NewPeriphLine(pin int) (*PeriphLine, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}

	p := gpioreg.ByName(strconv.Itoa(pin))
	if p == nil {
		return nil, fmt.Errorf("pin %d not found", pin)
	}

	if err := p.In(pgpio.PullUp, pgpio.NoEdge); err != nil {
		return nil, fmt.Errorf("set pin %d input: %w", pin, err)
	}

	return &PeriphLine{pin: p, bcm: pin}, nil
}

// SetMode switches the line direction. Output starts driven low.
func (p *PeriphLine) SetMode(m Mode) error {
	var err error
	if m == Output {
		err = p.pin.Out(pgpio.Low)
	} else {
		err = p.pin.In(pgpio.PullUp, pgpio.NoEdge)
	}
	if err != nil {
		return fmt.Errorf("set pin %d %s: %w", p.bcm, m, err)
	}
	return nil
}

// Write drives the line to the given level.
func (p *PeriphLine) Write(l Level) error {
	if err := p.pin.Out(l == High); err != nil {
		return fmt.Errorf("write pin %d: %w", p.bcm, err)
	}
	return nil
}

// Read samples the line. periph levels are booleans so they are always in range.
func (p *PeriphLine) Read() (Level, error) {
	if p.pin.Read() {
		return High, nil
	}
	return Low, nil
}

// DelayMilliseconds sleeps for n milliseconds.
func (p *PeriphLine) DelayMilliseconds(n int) { delayMilliseconds(n) }

// DelayMicroseconds busy-waits for n microseconds.
func (p *PeriphLine) DelayMicroseconds(n int) { delayMicroseconds(n) }

// Close leaves the pin as an input with pull-up and halts any edge detection.
func (p *PeriphLine) Close() error {
	var errs []error
	if err := p.pin.In(pgpio.PullUp, pgpio.NoEdge); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", p.bcm, err))
	}
	if err := p.pin.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halt pin %d: %w", p.bcm, err))
	}
	return errors.Join(errs...)
}
