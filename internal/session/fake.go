package session

import (
	"context"
	"time"

	"github.com/sweeney/dht22-sensor/internal/dht22"
)

// FakeAttempter returns scripted results.
type FakeAttempter struct {
	// Results are returned in order; the last one repeats.
	Results []dht22.Result

	// Errors, if set for an attempt index, is returned instead of a result.
	Errors map[int]error

	// Calls counts Attempt calls.
	Calls int
}

// Attempt returns the next scripted result.
func (f *FakeAttempter) Attempt() (dht22.Result, error) {
	i := f.Calls
	f.Calls++
	if err, ok := f.Errors[i]; ok {
		return dht22.Result{}, err
	}
	if len(f.Results) == 0 {
		return dht22.Result{Outcome: dht22.Incomplete}, nil
	}
	if i >= len(f.Results) {
		i = len(f.Results) - 1
	}
	return f.Results[i], nil
}

// FakeSleeper records requested waits without blocking.
type FakeSleeper struct {
	Waits []time.Duration

	// CancelAfter, if positive, makes the nth wait (1-based) fail with
	// context.Canceled.
	CancelAfter int
}

// Sleep records d.
func (f *FakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	f.Waits = append(f.Waits, d)
	if f.CancelAfter > 0 && len(f.Waits) == f.CancelAfter {
		return context.Canceled
	}
	return ctx.Err()
}
