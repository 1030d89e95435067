package loadingengine

import (
	"context"
	"time"
)

// KeyConstraint is an interface for key constraints.
type KeyConstraint interface {
	comparable
}

// ValueConstraint is an interface for value constraints.
type ValueConstraint interface {
	any
}

// Entry is a key-value pair.
type Entry[K KeyConstraint, V ValueConstraint] struct {
	// Key is the key of the entry.
	Key K

	// Value is the value associated with the key.
	Value V
}

// CacheEntry is a settled load result kept by a CacheStorage.
type CacheEntry[K KeyConstraint, V ValueConstraint] struct {
	Entry[K, V]

	// CachedAt is the time the value was produced.
	CachedAt time.Time

	// ExpiresAt is the expiration time of the entry.
	// The zero value means the entry never expires and lives until it is deleted or evicted.
	ExpiresAt time.Time
}

// NeverExpires reports whether the entry has no expiration time.
func (e *CacheEntry[K, V]) NeverExpires() bool {
	return e.ExpiresAt.IsZero()
}

// CacheStorage is an interface for a cache storage backend.
// Implementations must be thread-safe.
type CacheStorage[K KeyConstraint, V ValueConstraint] interface {
	// Set stores a value with the given key and expiration time.
	// If the key already exists, it should overwrite the existing value.
	// It must clone the input entry before storing it.
	Set(context.Context, *CacheEntry[K, V]) error

	// Get retrieves a value by its key.
	// If the key is not found or expired, it should return nil as the CacheEntry.
	// It must clone the returned entry before returning it.
	Get(context.Context, K) (*CacheEntry[K, V], error)

	// Delete removes the value for the key. Deleting a missing key is not an error.
	Delete(context.Context, K) error

	// DeleteFunc removes every entry whose key satisfies the predicate and returns how many were removed.
	DeleteFunc(context.Context, func(K) bool) (int, error)

	// Purge removes expired entries and returns how many were removed.
	Purge(context.Context) (int, error)
}

// Purger is implemented by anything that can drop its expired entries on demand.
type Purger interface {
	PurgeExpired(context.Context) (int, error)
}

// MetricsRecorder receives loader events for export to an observability backend.
// Implementations must be safe for concurrent use and should return quickly.
type MetricsRecorder interface {
	// Hit is called when a request is served without invoking the producer.
	Hit()

	// Dedup is called when a request attaches to an in-flight load. Dedup is always preceded by Hit.
	Dedup()

	// Miss is called when a request starts a fresh load.
	Miss()

	// Retry is called before the producer is re-invoked.
	Retry()

	// Timeout is called when an attempt is abandoned because its timeout elapsed.
	Timeout()

	// Settle is called once per load with its outcome and total duration, retries included.
	Settle(succeeded bool, d time.Duration)
}

// NoopMetricsRecorder is a MetricsRecorder that does nothing.
type NoopMetricsRecorder struct{}

var _ MetricsRecorder = NoopMetricsRecorder{}

func (NoopMetricsRecorder) Hit()                       {}
func (NoopMetricsRecorder) Dedup()                     {}
func (NoopMetricsRecorder) Miss()                      {}
func (NoopMetricsRecorder) Retry()                     {}
func (NoopMetricsRecorder) Timeout()                   {}
func (NoopMetricsRecorder) Settle(bool, time.Duration) {}
