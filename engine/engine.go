package engine

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"regexp"
	"slices"
	"sync"
	"time"

	loadingengine "github.com/karupanerura/loading-engine"
	"github.com/karupanerura/loading-engine/storage"
	"github.com/karupanerura/loading-engine/storage/memstorage"
)

// Producer computes the value of a key. It is invoked without any lock held and may perform any I/O.
// The context carries the per-attempt timeout and can be passed to ReportProgress.
type Producer func(ctx context.Context) (any, error)

// Engine is a keyed, deduplicating, retrying, cache-backed loader.
// It is safe for concurrent use.
type Engine struct {
	storage  loadingengine.CacheStorage[string, any]
	clock    loadingengine.Clock
	cloner   loadingengine.ValueCloner[any]
	context  func() context.Context
	logger   *slog.Logger
	recorder loadingengine.MetricsRecorder
	estimate time.Duration
	defaults loadOptions

	mu                 sync.Mutex
	entries            map[string]*entry
	metrics            Metrics
	subscriptions      []subscription
	nextSubscriptionID uint64
}

// entry is the state of one key. Every field but progress is guarded by Engine.mu.
type entry struct {
	key      string
	status   LoadStatus
	flight   *flight
	attempt  int
	progress *progressTracker
}

var _ loadingengine.Purger = (*Engine)(nil)

// New creates a new Engine.
func New(opts ...Option) *Engine {
	c := defaultConfig()
	for _, o := range opts {
		o.apply(&c)
	}
	if c.storage == nil {
		c.storage = memstorage.NewInMemoryStorage(
			memstorage.WithClock[string, any](c.clock),
			memstorage.WithCloner[string](c.cloner),
			memstorage.WithExpirationPolicy[string, any](c.policy),
		)
	}

	e := &Engine{
		clock:    c.clock,
		cloner:   c.cloner,
		context:  c.context,
		logger:   c.logger,
		recorder: c.recorder,
		estimate: c.estimate,
		defaults: defaultLoadOptions().with(c.defaults),
		entries:  map[string]*entry{},
	}
	e.storage = &storage.SilentErrorStorage[string, any]{
		Storage: c.storage,
		OnError: func(err error) {
			e.logger.Warn("cache storage failure", "error", err)
		},
	}
	return e
}

// Load returns the value of key, invoking producer only when no cached value or in-flight load exists.
//
// Concurrent calls for a key share one producer invocation and observe the same outcome.
// A successful value is cached until its TTL elapses or it is cleared; failures are not cached.
// ctx bounds only this caller's wait: when it is done Load returns ctx.Err() and the shared
// load continues for the other callers.
func (e *Engine) Load(ctx context.Context, key string, producer Producer, opts ...LoadOption) (any, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if producer == nil {
		return nil, ErrNilProducer
	}

	e.mu.Lock()
	e.metrics.TotalRequests++
	if ent, ok := e.entries[key]; ok && ent.status == StatusLoading {
		e.metrics.CacheHits++
		e.metrics.Deduplicated++
		fl := ent.flight
		e.mu.Unlock()

		e.recorder.Hit()
		e.recorder.Dedup()
		return e.wait(ctx, fl, true)
	}
	if cached, _ := e.storage.Get(ctx, key); cached != nil {
		e.metrics.CacheHits++
		e.mu.Unlock()

		e.recorder.Hit()
		return cached.Value, nil
	}

	e.metrics.CacheMisses++
	o := e.defaults.with(opts)
	ent := &entry{
		key:      key,
		status:   StatusLoading,
		flight:   newFlight(),
		attempt:  1,
		progress: newProgressTracker(e.clock, e.estimate),
	}
	// installed before the producer starts so that every later caller attaches to this flight
	e.entries[key] = ent
	fl := ent.flight
	e.mu.Unlock()

	e.recorder.Miss()
	go e.run(ent, fl, producer, o)
	return e.wait(ctx, fl, false)
}

func (e *Engine) wait(ctx context.Context, fl *flight, follower bool) (any, error) {
	select {
	case <-fl.done:
		if fl.err != nil {
			return nil, fl.err
		}
		if follower {
			return e.cloner.CloneValue(fl.value), nil
		}
		return fl.value, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Load is the typed form of (*Engine).Load.
// It returns a *TypeMismatchError when the value shared or cached under key is not a V.
func Load[V any](ctx context.Context, e *Engine, key string, producer func(context.Context) (V, error), opts ...LoadOption) (V, error) {
	var zero V
	if producer == nil {
		return zero, ErrNilProducer
	}

	v, err := e.Load(ctx, key, func(ctx context.Context) (any, error) {
		return producer(ctx)
	}, opts...)
	if err != nil || v == nil {
		return zero, err
	}
	typed, ok := v.(V)
	if !ok {
		return zero, &TypeMismatchError{
			Key:  key,
			Want: reflect.TypeFor[V]().String(),
			Got:  fmt.Sprintf("%T", v),
		}
	}
	return typed, nil
}

// IsLoading reports whether a load for key is in flight.
func (e *Engine) IsLoading(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.entries[key]
	return ok && ent.status == StatusLoading
}

// GetLoadingState returns a snapshot of key, or false when the engine knows nothing about it.
// A key whose value expired or was evicted from the storage is forgotten.
func (e *Engine) GetLoadingState(key string) (LoadingState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.entries[key]
	if !ok || !e.aliveLocked(key, ent) {
		return LoadingState{Status: StatusIdle}, false
	}
	return LoadingState{
		Status:    ent.status,
		IsLoading: ent.status == StatusLoading,
		Progress:  ent.progress.value(),
		Attempt:   ent.attempt,
	}, true
}

// Keys returns the sorted keys the engine currently tracks, skipping those whose value has expired or been evicted.
func (e *Engine) Keys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys := make([]string, 0, len(e.entries))
	for k, ent := range e.entries {
		if e.aliveLocked(k, ent) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// aliveLocked forgets a succeeded entry whose value the storage no longer holds,
// because it expired or was evicted. e.mu must be held.
func (e *Engine) aliveLocked(key string, ent *entry) bool {
	if ent.status != StatusSucceeded {
		return true
	}
	if cached, _ := e.storage.Get(e.context(), key); cached != nil {
		return true
	}
	delete(e.entries, key)
	return false
}

// ClearCache forgets every key and its cached value. Metrics are kept.
// Loads in flight are not cancelled, but their results are no longer cached
// and the next request for their key starts a new load.
func (e *Engine) ClearCache() {
	e.clear(func(string) bool { return true })
}

// ClearCacheMatching is ClearCache restricted to the keys matching the regular expression pattern.
// The pattern is unanchored: "test-.*" matches "my-test-key".
func (e *Engine) ClearCacheMatching(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("engine: invalid key pattern: %w", err)
	}
	e.ClearCacheRegexp(re)
	return nil
}

// ClearCacheRegexp is ClearCache restricted to the keys matching re.
func (e *Engine) ClearCacheRegexp(re *regexp.Regexp) {
	e.clear(re.MatchString)
}

func (e *Engine) clear(match func(string) bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearLocked(match)
}

func (e *Engine) clearLocked(match func(string) bool) {
	for k := range e.entries {
		if match(k) {
			delete(e.entries, k)
		}
	}
	_, _ = e.storage.DeleteFunc(e.context(), match)
}

// PurgeExpired drops expired cached values together with the keys that no longer have a value.
func (e *Engine) PurgeExpired(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, err := e.storage.Purge(ctx)
	if err != nil {
		return n, err
	}
	for k, ent := range e.entries {
		if ent.status != StatusSucceeded {
			continue
		}
		if cached, _ := e.storage.Get(ctx, k); cached == nil {
			delete(e.entries, k)
		}
	}
	return n, nil
}

// Metrics returns a snapshot of the request counters.
func (e *Engine) Metrics() Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metrics
}

// ResetMetrics sets every counter back to zero.
func (e *Engine) ResetMetrics() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = Metrics{}
}

// Reset drops every key, cached value, counter and listener.
// Loads in flight still resolve their own callers but leave no trace in the engine.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.clearLocked(func(string) bool { return true })
	e.entries = map[string]*entry{}
	e.metrics = Metrics{}
	e.subscriptions = nil
}
