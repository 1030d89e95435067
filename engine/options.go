package engine

import (
	"context"
	"log/slog"
	"time"

	loadingengine "github.com/karupanerura/loading-engine"
	"github.com/karupanerura/loading-engine/expiration"
)

// DefaultProgressEstimate is the load duration at which the progress heuristic reports about half way.
const DefaultProgressEstimate = time.Second

// Option is the interface for the options of the Engine.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) {
	f(c)
}

type config struct {
	storage  loadingengine.CacheStorage[string, any]
	policy   expiration.ExpirationPolicy
	clock    loadingengine.Clock
	cloner   loadingengine.ValueCloner[any]
	context  func() context.Context
	logger   *slog.Logger
	recorder loadingengine.MetricsRecorder
	estimate time.Duration
	defaults []LoadOption
}

func defaultConfig() config {
	return config{
		policy:   expiration.GeneralExpirationPolicy{},
		clock:    loadingengine.SystemClock,
		cloner:   loadingengine.NopValueCloner[any]{},
		context:  context.Background,
		logger:   slog.New(slog.DiscardHandler),
		recorder: loadingengine.NoopMetricsRecorder{},
		estimate: DefaultProgressEstimate,
	}
}

// WithStorage sets the storage keeping successful results.
// The default is an in-memory storage using the engine clock, cloner and expiration policy.
func WithStorage(s loadingengine.CacheStorage[string, any]) Option {
	return optionFunc(func(c *config) {
		c.storage = s
	})
}

// WithExpirationPolicy sets the expiration policy of the default storage.
// It is ignored when WithStorage is given.
func WithExpirationPolicy(p expiration.ExpirationPolicy) Option {
	return optionFunc(func(c *config) {
		c.policy = p
	})
}

// WithClock sets the clock used for cache timestamps, TTLs and progress.
func WithClock(clock loadingengine.Clock) Option {
	return optionFunc(func(c *config) {
		c.clock = clock
	})
}

// WithValueCloner sets the cloner giving each waiter of a shared load, and each cache reader, its own copy.
// The default shares values as is.
func WithValueCloner(cloner loadingengine.ValueCloner[any]) Option {
	return optionFunc(func(c *config) {
		c.cloner = cloner
	})
}

// WithBackgroundContextProvider sets the provider of the context producers run with.
// Loads outlive the callers that started them, so the caller's context is not used.
// The default context provider is context.Background.
func WithBackgroundContextProvider(provider func() context.Context) Option {
	return optionFunc(func(c *config) {
		c.context = provider
	})
}

// WithLogger sets the logger for retries, storage failures and listener panics.
// The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(c *config) {
		c.logger = logger
	})
}

// WithMetricsRecorder forwards load events to an observability backend.
func WithMetricsRecorder(r loadingengine.MetricsRecorder) Option {
	return optionFunc(func(c *config) {
		c.recorder = r
	})
}

// WithProgressEstimate sets the expected load duration the progress heuristic is scaled to.
func WithProgressEstimate(d time.Duration) Option {
	return optionFunc(func(c *config) {
		if d > 0 {
			c.estimate = d
		}
	})
}

// WithDefaults sets load options applied to every load before its own options.
func WithDefaults(opts ...LoadOption) Option {
	return optionFunc(func(c *config) {
		c.defaults = append(c.defaults, opts...)
	})
}
