// Package fetch implements polite, throttled access to the contest source.
package fetch

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/kkeeling/dk-contest-finder/internal/metrics"
)

// minFloorPause is applied even when the configured delay has already
// elapsed, so no request ever takes the zero-delay path.
const minFloorPause = 25 * time.Millisecond

// pauseController abstracts how the throttle sleeps so tests can avoid
// real timers.
type pauseController interface {
	Pause(ctx context.Context, delay time.Duration)
}

type timerPauseController struct{}

func (timerPauseController) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Throttle spaces outbound requests by a delay drawn uniformly from
// [minDelay, maxDelay] on every call, so the request cadence never settles
// into a detectable fixed rhythm.
//
// The last-call timestamp is shared by every fetcher and guarded by a
// mutex; concurrent callers reserve their slot under the lock and sleep
// outside it, so parallel detail workers cannot both observe a stale
// elapsed time and burst past the intended rate.
type Throttle struct {
	mu       sync.Mutex
	minDelay time.Duration
	maxDelay time.Duration
	next     time.Time

	pause pauseController
	now   func() time.Time
}

// NewThrottle builds a Throttle for the given delay window. A window with
// max below min collapses to the fixed min delay.
func NewThrottle(minDelay, maxDelay time.Duration) *Throttle {
	if minDelay < 0 {
		minDelay = 0
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Throttle{
		minDelay: minDelay,
		maxDelay: maxDelay,
		pause:    timerPauseController{},
		now:      time.Now,
	}
}

// Wait blocks until the caller's reserved slot arrives, or until the
// context is canceled.
func (t *Throttle) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("throttle wait: %w", err)
	}

	t.mu.Lock()
	now := t.now()
	target := t.next.Add(t.randomDelay())
	floor := now.Add(minFloorPause)
	if target.Before(floor) {
		target = floor
	}
	t.next = target
	t.mu.Unlock()

	metrics.ObserveThrottleDelay(target.Sub(now))
	t.pause.Pause(ctx, target.Sub(now))
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("throttle wait: %w", err)
	}
	return nil
}

func (t *Throttle) randomDelay() time.Duration {
	window := t.maxDelay - t.minDelay
	if window <= 0 {
		return t.minDelay
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(window)))
	if err != nil {
		return t.minDelay + window/2
	}
	return t.minDelay + time.Duration(n.Int64())
}
