// Package session runs the retry policy around single sensor attempts.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/dht22-sensor/internal/dht22"
)

// ErrExhausted is returned when every attempt failed to produce a reading.
var ErrExhausted = errors.New("no valid reading within attempt budget")

// ErrInvalidTries is returned for an attempt budget below 1.
var ErrInvalidTries = errors.New("invalid tries supplied")

// Defaults for Config.
const (
	DefaultTries       = 100
	DefaultRetryDelay  = 3000 * time.Millisecond
	DefaultSettleDelay = 1500 * time.Millisecond
)

// Attempter performs one acquisition attempt.
// A non-nil error is fatal and stops the session.
type Attempter interface {
	Attempt() (dht22.Result, error)
}

// Sleeper blocks for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Config controls the retry loop.
type Config struct {
	Tries int
	// RetryDelay separates attempts. The sensor needs about 2s between
	// samples; retrying faster only produces more bad frames.
	RetryDelay time.Duration
	// SettleDelay is observed after the loop, before the caller releases the
	// line, so the next process does not start on a line still in use.
	SettleDelay time.Duration
}

// DefaultConfig returns 100 tries, 3s between attempts and a 1.5s settle.
func DefaultConfig() Config {
	return Config{
		Tries:       DefaultTries,
		RetryDelay:  DefaultRetryDelay,
		SettleDelay: DefaultSettleDelay,
	}
}

// Validate checks the attempt budget.
func (c Config) Validate() error {
	if c.Tries < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidTries, c.Tries)
	}
	return nil
}

// Report summarizes a session.
type Report struct {
	// Reading is nil if no attempt succeeded.
	Reading          *dht22.Reading
	Attempts         int
	Incomplete       int
	ChecksumMismatch int
}

// Controller runs attempts until one succeeds or the budget is spent.
type Controller struct {
	cfg     Config
	reader  Attempter
	sleeper Sleeper
	logger  logrus.FieldLogger
}

// NewController creates a Controller. A nil sleeper uses real time.
func NewController(cfg Config, reader Attempter, sleeper Sleeper, logger logrus.FieldLogger) *Controller {
	if sleeper == nil {
		sleeper = TimeSleeper{}
	}
	return &Controller{
		cfg:     cfg,
		reader:  reader,
		sleeper: sleeper,
		logger:  logger,
	}
}

// Run performs up to cfg.Tries attempts, waiting RetryDelay between failures.
// After a success or an exhausted budget it waits SettleDelay.
//
// A fatal attempt error returns immediately without settling. Cancelling ctx
// interrupts the retry wait and ends the session after settling; the report
// then carries ctx.Err().
func (c *Controller) Run(ctx context.Context) (Report, error) {
	var rep Report
	if err := c.cfg.Validate(); err != nil {
		return rep, err
	}

	var stopErr error
	for rep.Attempts < c.cfg.Tries {
		rep.Attempts++
		res, err := c.reader.Attempt()
		if err != nil {
			return rep, fmt.Errorf("attempt %d: %w", rep.Attempts, err)
		}

		if res.OK() {
			reading := res.Reading
			rep.Reading = &reading
			c.logger.WithFields(logrus.Fields{
				"attempt":     rep.Attempts,
				"humidity":    reading.Humidity,
				"temperature": reading.Temperature,
			}).Debug("reading obtained")
			break
		}

		switch res.Outcome {
		case dht22.Incomplete:
			rep.Incomplete++
		case dht22.ChecksumMismatch:
			rep.ChecksumMismatch++
		}
		c.logger.WithFields(logrus.Fields{
			"attempt": rep.Attempts,
			"outcome": res.Outcome,
			"bits":    res.Bits,
		}).Warn("Data not good, skip")

		if rep.Attempts == c.cfg.Tries {
			break
		}
		if err := c.sleeper.Sleep(ctx, c.cfg.RetryDelay); err != nil {
			c.logger.Debugf("retry wait interrupted: %v", err)
			stopErr = err
			break
		}
	}

	// Settle even when cancelled: the line must be quiet before release.
	c.sleeper.Sleep(context.Background(), c.cfg.SettleDelay)

	if stopErr != nil {
		return rep, stopErr
	}
	if rep.Reading == nil {
		return rep, fmt.Errorf("%w: %d attempts", ErrExhausted, rep.Attempts)
	}
	return rep, nil
}

// TimeSleeper waits on the wall clock.
type TimeSleeper struct{}

// Sleep blocks for d or until ctx is done.
func (TimeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
