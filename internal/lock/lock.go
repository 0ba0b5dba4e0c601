// Package lock provides the process-level guard around the sensor line.
// Waking the sensor drives the line low, which corrupts any other process
// reading it, so only one process may hold the line at a time.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// DefaultPath is the lock file used when none is configured.
const DefaultPath = "/var/run/dht22.lock"

// DefaultRetry is how often a blocked Acquire polls the lock.
const DefaultRetry = 100 * time.Millisecond

// Guard is a held lock file.
type Guard struct {
	fl   *flock.Flock
	once sync.Once
	err  error
}

// Acquire blocks until the lock at path is held or ctx is done.
func Acquire(ctx context.Context, path string, retry time.Duration) (*Guard, error) {
	if retry <= 0 {
		retry = DefaultRetry
	}

	fl := flock.New(path)
	locked, err := fl.TryLockContext(ctx, retry)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock %s: not acquired", path)
	}

	return &Guard{fl: fl}, nil
}

// TryAcquire takes the lock without waiting. It returns (nil, nil) if
// another process holds it.
func TryAcquire(path string) (*Guard, error) {
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, nil
	}
	return &Guard{fl: fl}, nil
}

// Path returns the lock file path.
func (g *Guard) Path() string {
	return g.fl.Path()
}

// Release unlocks the file. Safe to call more than once.
func (g *Guard) Release() error {
	g.once.Do(func() {
		if err := g.fl.Unlock(); err != nil {
			g.err = fmt.Errorf("unlock %s: %w", g.fl.Path(), err)
		}
	})
	return g.err
}
