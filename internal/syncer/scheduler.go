package syncer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/retry"
)

// Scheduler decides how long the loop sleeps between cycles.
type Scheduler interface {
	Wait(ctx context.Context) error
}

type IntervalScheduler struct {
	Interval time.Duration
}

func (s IntervalScheduler) Wait(ctx context.Context) error {
	return retry.Sleep(ctx, s.Interval)
}

// Health tracks whether the last cycle reached the store.
type Health struct {
	ok     atomic.Bool
	notify func(ok bool)
}

// NewHealth starts healthy. notify, if set, is called on every change.
func NewHealth(notify func(ok bool)) *Health {
	h := &Health{notify: notify}
	h.ok.Store(true)
	return h
}

func (h *Health) Healthy() bool { return h.ok.Load() }

func (h *Health) set(ok bool) {
	if h.ok.Swap(ok) != ok && h.notify != nil {
		h.notify(ok)
	}
}
