// Package retry holds the remote read retry policy shared by the full sync
// and the drift passes.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
)

type SleepFunc func(ctx context.Context, d time.Duration) error

type Policy struct {
	Attempts int // at least one attempt is always made
	Delay    time.Duration
	// Sleep defaults to Sleep.
	Sleep SleepFunc
	// OnRetry, if set, is called before each wait with the failed attempt.
	OnRetry func(attempt int, err error)
}

// Do calls fn until it succeeds, fails with something other than
// model.ErrTransientRead, or runs out of attempts. It returns the number of
// retries made.
func Do[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, int, error) {
	attempts := max(p.Attempts, 1)
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var (
		out     T
		err     error
		retries int
	)
	for i := 1; i <= attempts; i++ {
		out, err = fn()
		if err == nil || !errors.Is(err, model.ErrTransientRead) || i == attempts {
			return out, retries, err
		}
		retries++
		if p.OnRetry != nil {
			p.OnRetry(i, err)
		}
		if serr := sleep(ctx, p.Delay); serr != nil {
			return out, retries, serr
		}
	}
	return out, retries, err
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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
