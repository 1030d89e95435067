package engine

import (
	"context"
	"errors"
	"time"

	loadingengine "github.com/karupanerura/loading-engine"
	"github.com/karupanerura/loading-engine/internal/panicutil"
)

// flight is a load in progress. value and err are written before done is closed.
type flight struct {
	done  chan struct{}
	value any
	err   error
}

func newFlight() *flight {
	return &flight{done: make(chan struct{})}
}

type outcome struct {
	value any
	err   error
}

// run invokes the producer until it succeeds or the attempts are exhausted, then settles the flight.
func (e *Engine) run(ent *entry, fl *flight, producer Producer, o loadOptions) {
	ctx := e.context()
	started := e.clock.Now()

	var (
		value   any
		err     error
		attempt = 1
	)
	for {
		value, err = e.attempt(ctx, ent, producer, o.timeout, attempt)
		if err == nil || attempt >= o.attempts() {
			break
		}

		delay := o.backoff.Delay(attempt)
		e.logger.Debug("load attempt failed, retrying", "key", ent.key, "attempt", attempt, "delay", delay, "error", err)
		if !sleep(ctx, delay) {
			break
		}

		attempt++
		e.mu.Lock()
		ent.attempt = attempt
		e.metrics.Retries++
		listeners := e.listenersLocked()
		e.mu.Unlock()

		e.recorder.Retry()
		e.dispatch(listeners, Event{
			Kind:     EventRetry,
			Key:      ent.key,
			Err:      err,
			Attempt:  attempt,
			Duration: e.clock.Now().Sub(started),
		})
	}

	e.settle(ent, fl, outcome{value: value, err: err}, attempt, started, o.ttl)
}

// attempt invokes the producer once. With a timeout the producer is abandoned when it does not settle in time.
func (e *Engine) attempt(base context.Context, ent *entry, producer Producer, timeout time.Duration, attempt int) (any, error) {
	ctx := withProgress(base, ent.progress)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ch := make(chan outcome, 1)
	go func() {
		var value any
		guard := panicutil.Guard{OnGoexit: func() {
			ch <- outcome{err: ErrProducerGoexit}
		}}
		err := guard.Run(func() (err error) {
			value, err = producer(ctx)
			return
		})
		ch <- outcome{value: value, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil && timeout > 0 && base.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, e.timedOut(ent.key, attempt, timeout)
		}
		return out.value, out.err
	case <-ctx.Done():
		if err := base.Err(); err != nil {
			return nil, err
		}
		return nil, e.timedOut(ent.key, attempt, timeout)
	}
}

func (e *Engine) timedOut(key string, attempt int, timeout time.Duration) error {
	e.mu.Lock()
	e.metrics.Timeouts++
	e.mu.Unlock()

	e.recorder.Timeout()
	return &TimeoutError{Key: key, Attempt: attempt, Timeout: timeout}
}

// settle publishes the outcome to the cache, the waiters and the listeners, in that order.
func (e *Engine) settle(ent *entry, fl *flight, out outcome, attempts int, started time.Time, ttl time.Duration) {
	now := e.clock.Now()
	ev := Event{
		Key:      ent.key,
		Attempt:  attempts,
		Duration: now.Sub(started),
	}

	e.mu.Lock()
	// a cleared or reset entry still releases its waiters but must not touch the cache
	current := e.entries[ent.key] == ent
	ent.flight = nil
	ent.progress.settle()
	if out.err == nil {
		ent.status = StatusSucceeded
		ev.Kind, ev.Data = EventLoadSuccess, out.value
		if current {
			cached := &loadingengine.CacheEntry[string, any]{
				Entry:    loadingengine.Entry[string, any]{Key: ent.key, Value: out.value},
				CachedAt: now,
			}
			if ttl > 0 {
				cached.ExpiresAt = now.Add(ttl)
			}
			_ = e.storage.Set(e.context(), cached)
		}
	} else {
		ent.status = StatusFailed
		ev.Kind, ev.Err = EventLoadError, out.err
		e.metrics.Failures++
		if current {
			_ = e.storage.Delete(e.context(), ent.key)
		}
	}
	fl.value, fl.err = out.value, out.err
	close(fl.done)
	listeners := e.listenersLocked()
	e.mu.Unlock()

	if out.err != nil {
		e.logger.Debug("load failed", "key", ent.key, "attempts", attempts, "error", out.err)
	}
	e.recorder.Settle(out.err == nil, ev.Duration)
	e.dispatch(listeners, ev)
}

// sleep waits for d, returning false if ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
