// Package sweeper drops expired cached values in the background.
package sweeper

import (
	"context"
	"fmt"
	"time"

	loadingengine "github.com/karupanerura/loading-engine"
)

// IntervalSweeper purges expired values of a target at a fixed interval.
// Storages only hide expired values on read; sweeping releases their memory,
// and the keys the engine tracks for them.
type IntervalSweeper struct {
	target            loadingengine.Purger
	interval          time.Duration
	onBackgroundError func(error)
	onSwept           func(int)
}

// NewIntervalSweeper creates a new IntervalSweeper.
// Errors of background sweeps are passed to onBackgroundError, which must not be nil.
// It panics if interval is not positive.
func NewIntervalSweeper(target loadingengine.Purger, interval time.Duration, onBackgroundError func(error)) *IntervalSweeper {
	if interval <= 0 {
		panic("sweeper: interval must be positive")
	}
	return &IntervalSweeper{
		target:            target,
		interval:          interval,
		onBackgroundError: onBackgroundError,
	}
}

// OnSwept registers a callback receiving the number of values dropped by each successful sweep.
// It must be called before LaunchBackgroundSweeper.
func (s *IntervalSweeper) OnSwept(f func(int)) *IntervalSweeper {
	s.onSwept = f
	return s
}

// LaunchBackgroundSweeper sweeps once immediately and then on every tick, until ctx is done.
// The returned channel is closed once the background goroutine has exited.
func (s *IntervalSweeper) LaunchBackgroundSweeper(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.poll(ctx)
	}()
	return done
}

func (s *IntervalSweeper) poll(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *IntervalSweeper) sweep(ctx context.Context) {
	n, err := s.target.PurgeExpired(ctx)
	if err != nil {
		s.onBackgroundError(fmt.Errorf("sweeper: purge expired: %w", err))
		return
	}
	if s.onSwept != nil {
		s.onSwept(n)
	}
}
