//go:build !linux

package gpio

import "errors"

// ChardevLine is not available on non-Linux platforms.
type ChardevLine struct{}

// NewChardevLine returns an error on non-Linux platforms.
func NewChardevLine(chipName string, pin int) (*ChardevLine, error) {
	return nil, errors.New("gpio: character device not supported on this platform (requires Linux)")
}

// SetMode is not implemented on non-Linux platforms.
func (c *ChardevLine) SetMode(m Mode) error {
	return errors.New("gpio: not supported")
}

// Write is not implemented on non-Linux platforms.
func (c *ChardevLine) Write(l Level) error {
	return errors.New("gpio: not supported")
}

// Read is not implemented on non-Linux platforms.
func (c *ChardevLine) Read() (Level, error) {
	return Low, errors.New("gpio: not supported")
}

// DelayMilliseconds sleeps for n milliseconds.
func (c *ChardevLine) DelayMilliseconds(n int) { delayMilliseconds(n) }

// DelayMicroseconds busy-waits for n microseconds.
func (c *ChardevLine) DelayMicroseconds(n int) { delayMicroseconds(n) }

// Close is not implemented on non-Linux platforms.
func (c *ChardevLine) Close() error {
	return nil
}
