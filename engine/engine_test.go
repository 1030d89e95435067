package engine_test

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	loadingengine "github.com/karupanerura/loading-engine"
	"github.com/karupanerura/loading-engine/engine"
	"github.com/karupanerura/loading-engine/storage/lrustorage"
)

var errSource = errors.New("source error")

type politician struct {
	ID   string
	Name string
}

// countingProducer returns a producer that counts its invocations and fails the first failures of them.
func countingProducer(calls *atomic.Int32, failures int32, value any) engine.Producer {
	return func(context.Context) (any, error) {
		if n := calls.Inc(); n <= failures {
			return nil, fmt.Errorf("attempt %d: %w", n, errSource)
		}
		return value, nil
	}
}

// blockingProducer returns a producer that counts its invocations and returns value once release is closed.
func blockingProducer(calls *atomic.Int32, release <-chan struct{}, value any) engine.Producer {
	return func(ctx context.Context) (any, error) {
		calls.Inc()
		select {
		case <-release:
			return value, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func waitLoading(t *testing.T, e *engine.Engine, key string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !e.IsLoading(key) {
		if time.Now().After(deadline) {
			t.Fatalf("%s never started loading", key)
		}
		runtime.Gosched()
	}
}

func assertMetricsInvariant(t *testing.T, m engine.Metrics) {
	t.Helper()
	if m.CacheHits+m.CacheMisses != m.TotalRequests {
		t.Errorf("hits(%d)+misses(%d) != total(%d)", m.CacheHits, m.CacheMisses, m.TotalRequests)
	}
}

func TestDefault(t *testing.T) {
	engine.Destroy()
	t.Cleanup(engine.Destroy)

	first := engine.Default()
	if second := engine.Default(); first != second {
		t.Error("Default must return the same engine")
	}

	if _, err := first.Load(t.Context(), "politician-1", func(context.Context) (any, error) { return "Alice", nil }); err != nil {
		t.Fatal(err)
	}

	engine.Destroy()
	renewed := engine.Default()
	if renewed == first {
		t.Error("Default must construct a new engine after Destroy")
	}
	if keys := renewed.Keys(); len(keys) != 0 {
		t.Errorf("new engine must be empty, got keys %v", keys)
	}
}

func TestEngine_Load(t *testing.T) {
	t.Parallel()

	t.Run("caches the value", func(t *testing.T) {
		t.Parallel()

		e := engine.New()
		var calls atomic.Int32
		producer := countingProducer(&calls, 0, &politician{ID: "1", Name: "Alice"})

		first, err := e.Load(t.Context(), "politician-1", producer)
		if err != nil {
			t.Fatal(err)
		}
		second, err := e.Load(t.Context(), "politician-1", producer)
		if err != nil {
			t.Fatal(err)
		}
		if calls.Load() != 1 {
			t.Errorf("producer invoked %d times, want 1", calls.Load())
		}
		if df := cmp.Diff(first, second); df != "" {
			t.Errorf("cached value diff=%s", df)
		}

		want := engine.Metrics{TotalRequests: 2, CacheHits: 1, CacheMisses: 1}
		if df := cmp.Diff(want, e.Metrics()); df != "" {
			t.Errorf("metrics diff=%s", df)
		}
	})

	t.Run("shares one producer invocation among concurrent callers", func(t *testing.T) {
		t.Parallel()

		e := engine.New()
		var calls atomic.Int32
		release := make(chan struct{})
		value := &politician{ID: "1", Name: "Alice"}
		producer := blockingProducer(&calls, release, value)

		const callers = 16
		results := make([]any, callers)
		var eg errgroup.Group
		for i := range callers {
			eg.Go(func() error {
				v, err := e.Load(t.Context(), "politician-1", producer)
				results[i] = v
				return err
			})
		}
		waitLoading(t, e, "politician-1")
		close(release)
		if err := eg.Wait(); err != nil {
			t.Fatal(err)
		}

		if calls.Load() != 1 {
			t.Errorf("producer invoked %d times, want 1", calls.Load())
		}
		for i, v := range results {
			if v != value {
				t.Errorf("caller %d got %v, want the shared value", i, v)
			}
		}

		m := e.Metrics()
		if m.TotalRequests != callers || m.CacheMisses != 1 {
			t.Errorf("unexpected metrics %+v", m)
		}
		assertMetricsInvariant(t, m)
	})

	t.Run("rejects an empty key", func(t *testing.T) {
		t.Parallel()

		e := engine.New()
		var calls atomic.Int32
		if _, err := e.Load(t.Context(), "", countingProducer(&calls, 0, 1)); !errors.Is(err, engine.ErrEmptyKey) {
			t.Errorf("err = %v, want ErrEmptyKey", err)
		}
		if _, err := e.Load(t.Context(), "key", nil); !errors.Is(err, engine.ErrNilProducer) {
			t.Errorf("err = %v, want ErrNilProducer", err)
		}
		if calls.Load() != 0 {
			t.Error("producer must not be invoked")
		}
		if df := cmp.Diff(engine.Metrics{}, e.Metrics()); df != "" {
			t.Errorf("rejected requests must not be counted: diff=%s", df)
		}
	})

	t.Run("clones values for followers", func(t *testing.T) {
		t.Parallel()

		e := engine.New(engine.WithValueCloner(loadingengine.DefaultValueCloner[any]()))
		var calls atomic.Int32
		release := make(chan struct{})
		value := &clonablePolitician{Name: "Alice"}
		producer := blockingProducer(&calls, release, value)

		var eg errgroup.Group
		var leader any
		eg.Go(func() (err error) {
			leader, err = e.Load(t.Context(), "politician-1", producer)
			return
		})
		waitLoading(t, e, "politician-1")

		var follower any
		eg.Go(func() (err error) {
			follower, err = e.Load(t.Context(), "politician-1", producer)
			return
		})
		close(release)
		if err := eg.Wait(); err != nil {
			t.Fatal(err)
		}

		if leader != value {
			t.Error("leader must receive the produced value")
		}
		if df := cmp.Diff(value, follower); df != "" {
			t.Errorf("follower value diff=%s", df)
		}
	})
}

type clonablePolitician struct {
	Name string
}

func (p *clonablePolitician) Clone() any {
	return &clonablePolitician{Name: p.Name}
}

func TestEngine_LoadRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		retries       int
		failures      int32
		expectedCalls int32
		expectedError error
		expectedState engine.LoadStatus
	}{
		{
			name:          "succeeds after transient failures",
			retries:       3,
			failures:      2,
			expectedCalls: 3,
			expectedState: engine.StatusSucceeded,
		},
		{
			name:          "fails once attempts are exhausted",
			retries:       2,
			failures:      100,
			expectedCalls: 2,
			expectedError: errSource,
			expectedState: engine.StatusFailed,
		},
		{
			name:          "does not retry by default",
			retries:       0,
			failures:      1,
			expectedCalls: 1,
			expectedError: errSource,
			expectedState: engine.StatusFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := engine.New()
			var calls atomic.Int32
			v, err := e.Load(t.Context(), "politician-1", countingProducer(&calls, tt.failures, "Alice"),
				engine.WithRetries(tt.retries), engine.WithRetryDelay(time.Millisecond))
			if !errors.Is(err, tt.expectedError) {
				t.Errorf("err = %v, want %v", err, tt.expectedError)
			}
			if err == nil && v != "Alice" {
				t.Errorf("value = %v, want Alice", v)
			}
			if calls.Load() != tt.expectedCalls {
				t.Errorf("producer invoked %d times, want %d", calls.Load(), tt.expectedCalls)
			}

			state, ok := e.GetLoadingState("politician-1")
			if !ok {
				t.Fatal("state must be known")
			}
			want := engine.LoadingState{Status: tt.expectedState, Progress: 100, Attempt: int(tt.expectedCalls)}
			if df := cmp.Diff(want, state); df != "" {
				t.Errorf("state diff=%s", df)
			}

			m := e.Metrics()
			if m.Retries != uint64(tt.expectedCalls-1) {
				t.Errorf("retries = %d, want %d", m.Retries, tt.expectedCalls-1)
			}
		})
	}

	t.Run("failures are not cached", func(t *testing.T) {
		t.Parallel()

		e := engine.New()
		var calls atomic.Int32
		producer := countingProducer(&calls, 1, "Alice")
		if _, err := e.Load(t.Context(), "politician-1", producer); !errors.Is(err, errSource) {
			t.Fatalf("err = %v, want source error", err)
		}
		v, err := e.Load(t.Context(), "politician-1", producer)
		if err != nil {
			t.Fatal(err)
		}
		if v != "Alice" || calls.Load() != 2 {
			t.Errorf("got %v after %d calls", v, calls.Load())
		}
		if m := e.Metrics(); m.Failures != 1 || m.CacheMisses != 2 {
			t.Errorf("unexpected metrics %+v", m)
		}
	})
}

func TestEngine_LoadTimeout(t *testing.T) {
	t.Parallel()

	t.Run("retries an attempt that timed out", func(t *testing.T) {
		t.Parallel()

		e := engine.New()
		var calls atomic.Int32
		v, err := e.Load(t.Context(), "slow", func(ctx context.Context) (any, error) {
			if calls.Inc() == 1 {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return "done", nil
		}, engine.WithRetries(2), engine.WithTimeout(20*time.Millisecond), engine.WithRetryDelay(0))
		if err != nil {
			t.Fatal(err)
		}
		if v != "done" || calls.Load() != 2 {
			t.Errorf("got %v after %d calls", v, calls.Load())
		}
		if m := e.Metrics(); m.Timeouts != 1 || m.Retries != 1 {
			t.Errorf("unexpected metrics %+v", m)
		}
	})

	t.Run("abandons a producer ignoring its context", func(t *testing.T) {
		t.Parallel()

		e := engine.New()
		release := make(chan struct{})
		defer close(release)

		_, err := e.Load(t.Context(), "stuck", func(context.Context) (any, error) {
			<-release
			return "late", nil
		}, engine.WithTimeout(10*time.Millisecond))

		var timeoutErr *engine.TimeoutError
		if !errors.As(err, &timeoutErr) {
			t.Fatalf("err = %v, want *TimeoutError", err)
		}
		if !errors.Is(err, engine.ErrTimeout) {
			t.Error("TimeoutError must wrap ErrTimeout")
		}
		want := &engine.TimeoutError{Key: "stuck", Attempt: 1, Timeout: 10 * time.Millisecond}
		if df := cmp.Diff(want, timeoutErr); df != "" {
			t.Errorf("error diff=%s", df)
		}
		if e.IsLoading("stuck") {
			t.Error("timed out load must be settled")
		}
	})
}

func TestEngine_LoadCallerContext(t *testing.T) {
	t.Parallel()

	e := engine.New()
	var calls atomic.Int32
	release := make(chan struct{})
	producer := blockingProducer(&calls, release, "Alice")

	ctx, cancel := context.WithCancel(t.Context())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := e.Load(ctx, "politician-1", producer)
		leaderErr <- err
	}()
	waitLoading(t, e, "politician-1")

	type result struct {
		value any
		err   error
	}
	follower := make(chan result, 1)
	go func() {
		v, err := e.Load(t.Context(), "politician-1", producer)
		follower <- result{v, err}
	}()

	cancel()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller err = %v, want context.Canceled", err)
	}
	if !e.IsLoading("politician-1") {
		t.Error("load must continue after a caller gives up")
	}

	close(release)
	got := <-follower
	if got.err != nil || got.value != "Alice" {
		t.Errorf("other caller got %v, %v", got.value, got.err)
	}
	if calls.Load() != 1 {
		t.Errorf("producer invoked %d times, want 1", calls.Load())
	}
}

func TestEngine_LoadProducerPanic(t *testing.T) {
	t.Parallel()

	e := engine.New()
	_, err := e.Load(t.Context(), "panicky", func(context.Context) (any, error) {
		panic("boom")
	})
	var recovered *panics.ErrRecovered
	if !errors.As(err, &recovered) {
		t.Fatalf("err = %v, want *panics.ErrRecovered", err)
	}
	if recovered.Value != "boom" {
		t.Errorf("recovered value = %v", recovered.Value)
	}

	_, err = e.Load(t.Context(), "goexit", func(context.Context) (any, error) {
		runtime.Goexit()
		return nil, nil
	})
	if !errors.Is(err, engine.ErrProducerGoexit) {
		t.Errorf("err = %v, want ErrProducerGoexit", err)
	}

	state, _ := e.GetLoadingState("panicky")
	if state.Status != engine.StatusFailed {
		t.Errorf("status = %v, want failed", state.Status)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	e := engine.New()
	got, err := engine.Load(t.Context(), e, "politician-1", func(context.Context) (*politician, error) {
		return &politician{ID: "1", Name: "Alice"}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if df := cmp.Diff(&politician{ID: "1", Name: "Alice"}, got); df != "" {
		t.Errorf("value diff=%s", df)
	}

	_, err = engine.Load(t.Context(), e, "politician-1", func(context.Context) (string, error) {
		return "Alice", nil
	})
	var mismatch *engine.TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("err = %v, want *TypeMismatchError", err)
	}
	want := &engine.TypeMismatchError{Key: "politician-1", Want: "string", Got: "*engine_test.politician"}
	if df := cmp.Diff(want, mismatch); df != "" {
		t.Errorf("error diff=%s", df)
	}
}

func TestEngine_IsLoading(t *testing.T) {
	t.Parallel()

	e := engine.New()
	if e.IsLoading("politician-1") {
		t.Error("unknown key must not be loading")
	}
	if state, ok := e.GetLoadingState("politician-1"); ok || state.Status != engine.StatusIdle {
		t.Errorf("unknown key state = %+v, %v", state, ok)
	}

	var calls atomic.Int32
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := e.Load(t.Context(), "politician-1", blockingProducer(&calls, release, "Alice"))
		done <- err
	}()
	waitLoading(t, e, "politician-1")

	state, _ := e.GetLoadingState("politician-1")
	if !state.IsLoading || state.Status != engine.StatusLoading || state.Attempt != 1 {
		t.Errorf("in-flight state = %+v", state)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if e.IsLoading("politician-1") {
		t.Error("settled key must not be loading")
	}
}

func TestEngine_Progress(t *testing.T) {
	t.Parallel()

	clock := loadingengine.NewManualClock(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))
	e := engine.New(engine.WithClock(clock), engine.WithProgressEstimate(time.Second))

	reported := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := e.Load(t.Context(), "report", func(ctx context.Context) (any, error) {
			engine.ReportProgress(ctx, 40)
			reported <- struct{}{}
			<-release
			return "ok", nil
		})
		done <- err
	}()
	<-reported

	progress := func() float64 {
		state, _ := e.GetLoadingState("report")
		return state.Progress
	}
	if got := progress(); got != 40 {
		t.Errorf("reported progress = %v, want 40", got)
	}

	clock.Advance(3 * time.Second)
	if got := progress(); got != 74.25 {
		t.Errorf("estimated progress = %v, want 74.25", got)
	}

	clock.Set(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))
	if got := progress(); got != 74.25 {
		t.Errorf("progress must never decrease, got %v", got)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got := progress(); got != 100 {
		t.Errorf("settled progress = %v, want 100", got)
	}
}

func TestEngine_ClearCacheMatching(t *testing.T) {
	t.Parallel()

	e := engine.New()
	var calls atomic.Int32
	producer := countingProducer(&calls, 0, "value")
	for _, key := range []string{"test-key-1", "test-key-2", "other-key"} {
		if _, err := e.Load(t.Context(), key, producer); err != nil {
			t.Fatal(err)
		}
	}

	if err := e.ClearCacheMatching("test-.*"); err != nil {
		t.Fatal(err)
	}
	if df := cmp.Diff([]string{"other-key"}, e.Keys()); df != "" {
		t.Errorf("keys diff=%s", df)
	}

	for _, key := range []string{"test-key-1", "test-key-2", "other-key"} {
		if _, err := e.Load(t.Context(), key, producer); err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != 5 {
		t.Errorf("only the cleared keys must be reloaded: producer invoked %d times, want 5", calls.Load())
	}

	if err := e.ClearCacheMatching("("); err == nil {
		t.Error("invalid pattern must fail")
	}

	e.ClearCache()
	if keys := e.Keys(); len(keys) != 0 {
		t.Errorf("keys after ClearCache = %v", keys)
	}
	if m := e.Metrics(); m.TotalRequests != 6 || m.CacheHits != 1 {
		t.Errorf("ClearCache must keep metrics, got %+v", m)
	}
}

func TestEngine_ClearCacheDuringLoad(t *testing.T) {
	t.Parallel()

	e := engine.New()
	var calls atomic.Int32
	release := make(chan struct{})
	done := make(chan any, 1)
	go func() {
		v, _ := e.Load(t.Context(), "politician-1", blockingProducer(&calls, release, "stale"))
		done <- v
	}()
	waitLoading(t, e, "politician-1")

	e.ClearCache()
	close(release)
	if v := <-done; v != "stale" {
		t.Errorf("waiter of a cleared load got %v", v)
	}

	v, err := e.Load(t.Context(), "politician-1", countingProducer(&calls, 0, "fresh"))
	if err != nil {
		t.Fatal(err)
	}
	if v != "fresh" {
		t.Errorf("cleared load must not be cached, got %v", v)
	}
}

func TestEngine_CacheTTL(t *testing.T) {
	t.Parallel()

	clock := loadingengine.NewManualClock(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))
	e := engine.New(engine.WithClock(clock))

	var calls atomic.Int32
	producer := countingProducer(&calls, 0, "Alice")
	load := func() {
		t.Helper()
		if _, err := e.Load(t.Context(), "politician-1", producer, engine.WithCacheTTL(time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	load()
	clock.Advance(59 * time.Second)
	load()
	if calls.Load() != 1 {
		t.Errorf("producer invoked %d times before expiry, want 1", calls.Load())
	}

	clock.Advance(time.Second)
	load()
	if calls.Load() != 2 {
		t.Errorf("producer invoked %d times after expiry, want 2", calls.Load())
	}

	clock.Advance(time.Minute)
	n, err := e.PurgeExpired(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("PurgeExpired() = %d, want 1", n)
	}
	if keys := e.Keys(); len(keys) != 0 {
		t.Errorf("keys after purge = %v", keys)
	}
}

func TestEngine_ForgetsVanishedValues(t *testing.T) {
	t.Parallel()

	t.Run("expired", func(t *testing.T) {
		t.Parallel()

		clock := loadingengine.NewManualClock(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))
		e := engine.New(engine.WithClock(clock))

		var calls atomic.Int32
		if _, err := e.Load(t.Context(), "short", countingProducer(&calls, 0, "Alice"), engine.WithCacheTTL(time.Minute)); err != nil {
			t.Fatal(err)
		}
		if _, err := e.Load(t.Context(), "forever", countingProducer(&calls, 0, "Bob")); err != nil {
			t.Fatal(err)
		}

		clock.Advance(time.Minute)
		if state, ok := e.GetLoadingState("short"); ok || state.Status != engine.StatusIdle {
			t.Errorf("expired key state = %+v, %v", state, ok)
		}
		if df := cmp.Diff([]string{"forever"}, e.Keys()); df != "" {
			t.Errorf("keys diff=%s", df)
		}
	})

	t.Run("evicted", func(t *testing.T) {
		t.Parallel()

		storage, err := lrustorage.NewLRUStorage[string, any](1)
		if err != nil {
			t.Fatal(err)
		}
		e := engine.New(engine.WithStorage(storage))

		var calls atomic.Int32
		for _, key := range []string{"politician-1", "politician-2"} {
			if _, err := e.Load(t.Context(), key, countingProducer(&calls, 0, key)); err != nil {
				t.Fatal(err)
			}
		}

		if _, ok := e.GetLoadingState("politician-1"); ok {
			t.Error("evicted key must be forgotten")
		}
		if df := cmp.Diff([]string{"politician-2"}, e.Keys()); df != "" {
			t.Errorf("keys diff=%s", df)
		}
	})
}

func TestEngine_Subscribe(t *testing.T) {
	t.Parallel()

	e := engine.New()

	var (
		mu     sync.Mutex
		events []engine.Event
	)
	settled := make(chan struct{}, 1)
	e.Subscribe(engine.ListenerFunc(func(engine.Event) {
		panic("listener failure")
	}))
	unsubscribe := e.Subscribe(engine.ListenerFunc(func(ev engine.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
		if ev.Kind != engine.EventRetry {
			settled <- struct{}{}
		}
	}))

	var calls atomic.Int32
	if _, err := e.Load(t.Context(), "politician-1", countingProducer(&calls, 1, "Alice"),
		engine.WithRetries(2), engine.WithRetryDelay(0)); err != nil {
		t.Fatal(err)
	}
	<-settled

	mu.Lock()
	got := events
	mu.Unlock()
	want := []engine.Event{
		{Kind: engine.EventRetry, Key: "politician-1", Err: errSource, Attempt: 2},
		{Kind: engine.EventLoadSuccess, Key: "politician-1", Data: "Alice", Attempt: 2},
	}
	opts := cmp.Options{
		cmp.Comparer(func(x, y error) bool { return errors.Is(x, y) || errors.Is(y, x) }),
		cmp.FilterPath(func(p cmp.Path) bool { return p.Last().String() == ".Duration" }, cmp.Ignore()),
	}
	if df := cmp.Diff(want, got, opts); df != "" {
		t.Errorf("events diff=%s", df)
	}

	unsubscribe()
	if _, err := e.Load(t.Context(), "politician-2", countingProducer(&calls, 0, "Bob")); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Load(t.Context(), "politician-2", countingProducer(&calls, 0, "Bob")); err != nil {
		t.Fatal(err)
	}
	select {
	case <-settled:
		t.Error("unsubscribed listener must not be called")
	default:
	}
}

func TestEngine_Reset(t *testing.T) {
	t.Parallel()

	e := engine.New()
	var calls atomic.Int32
	called := atomic.NewBool(false)
	e.Subscribe(engine.ListenerFunc(func(engine.Event) { called.Store(true) }))
	e.Reset()

	if _, err := e.Load(t.Context(), "politician-1", countingProducer(&calls, 0, "Alice")); err != nil {
		t.Fatal(err)
	}
	e.Reset()

	if keys := e.Keys(); len(keys) != 0 {
		t.Errorf("keys after Reset = %v", keys)
	}
	if df := cmp.Diff(engine.Metrics{}, e.Metrics()); df != "" {
		t.Errorf("metrics after Reset diff=%s", df)
	}
	if called.Load() {
		t.Error("listeners must be dropped by Reset")
	}

	if _, err := e.Load(t.Context(), "politician-1", countingProducer(&calls, 0, "Alice")); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("producer invoked %d times, want 2", calls.Load())
	}
}

func TestEngine_ResetMetrics(t *testing.T) {
	t.Parallel()

	e := engine.New()
	var calls atomic.Int32
	for range 3 {
		if _, err := e.Load(t.Context(), "politician-1", countingProducer(&calls, 0, "Alice")); err != nil {
			t.Fatal(err)
		}
	}
	if got := e.Metrics().HitRatio(); got != 2.0/3.0 {
		t.Errorf("hit ratio = %v", got)
	}

	e.ResetMetrics()
	if df := cmp.Diff(engine.Metrics{}, e.Metrics()); df != "" {
		t.Errorf("metrics diff=%s", df)
	}
	if df := cmp.Diff([]string{"politician-1"}, e.Keys()); df != "" {
		t.Errorf("ResetMetrics must keep keys: diff=%s", df)
	}
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Hit()     { r.add("hit") }
func (r *recorder) Dedup()   { r.add("dedup") }
func (r *recorder) Miss()    { r.add("miss") }
func (r *recorder) Retry()   { r.add("retry") }
func (r *recorder) Timeout() { r.add("timeout") }
func (r *recorder) Settle(succeeded bool, _ time.Duration) {
	if succeeded {
		r.add("success")
	} else {
		r.add("failure")
	}
}

func TestEngine_MetricsRecorder(t *testing.T) {
	t.Parallel()

	r := &recorder{}
	e := engine.New(engine.WithMetricsRecorder(r))

	var calls atomic.Int32
	producer := countingProducer(&calls, 1, "Alice")
	if _, err := e.Load(t.Context(), "politician-1", producer, engine.WithRetries(2), engine.WithRetryDelay(0)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Load(t.Context(), "politician-1", producer); err != nil {
		t.Fatal(err)
	}

	// Settle is reported after the waiters are released, so it may follow the second request.
	r.mu.Lock()
	defer r.mu.Unlock()
	sorted := cmpopts.SortSlices(func(a, b string) bool { return a < b })
	if df := cmp.Diff([]string{"miss", "retry", "success", "hit"}, r.events, sorted); df != "" {
		t.Errorf("recorded events diff=%s", df)
	}
}
