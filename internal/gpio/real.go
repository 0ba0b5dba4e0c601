//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// ChardevLine drives a line through the Linux GPIO character device.
type ChardevLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	pin  int
}

// NewChardevLine opens the chip and requests the BCM pin as an input with pull-up,
// which is the idle state of the DHT data line.
func NewChardevLine(chipName string, pin int) (*ChardevLine, error) {
	if chipName == "" {
		chipName = "gpiochip0"
	}
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("dht22"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request pin %d: %w", pin, err)
	}

	return &ChardevLine{
		chip: chip,
		line: line,
		pin:  pin,
	}, nil
}

// SetMode reconfigures the line direction. Output starts driven low.
func (c *ChardevLine) SetMode(m Mode) error {
	var err error
	if m == Output {
		err = c.line.Reconfigure(gpiocdev.AsOutput(0))
	} else {
		err = c.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp)
	}
	if err != nil {
		return fmt.Errorf("set pin %d %s: %w", c.pin, m, err)
	}
	return nil
}

// Write drives the line to the given level.
func (c *ChardevLine) Write(l Level) error {
	if err := c.line.SetValue(int(l)); err != nil {
		return fmt.Errorf("write pin %d: %w", c.pin, err)
	}
	return nil
}

// Read samples the line.
func (c *ChardevLine) Read() (Level, error) {
	raw, err := c.line.Value()
	if err != nil {
		return Low, fmt.Errorf("read pin %d: %w", c.pin, err)
	}
	return LevelFromRaw(raw)
}

// DelayMilliseconds sleeps for n milliseconds.
func (c *ChardevLine) DelayMilliseconds(n int) { delayMilliseconds(n) }

// DelayMicroseconds busy-waits for n microseconds.
func (c *ChardevLine) DelayMicroseconds(n int) { delayMicroseconds(n) }

// Close releases GPIO resources.
// The line is left as an input with pull-up so the sensor sees an idle bus.
func (c *ChardevLine) Close() error {
	var errs []error

	if c.line != nil {
		if err := c.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", c.pin, err))
		}
		if err := c.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", c.pin, err))
		}
	}
	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
