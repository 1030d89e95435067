package memstorage

import (
	loadingengine "github.com/karupanerura/loading-engine"
	"github.com/karupanerura/loading-engine/expiration"
	"github.com/karupanerura/loading-engine/internal/keyhash"
)

// DefaultBucketsSize is the default number of buckets in the cache.
var DefaultBucketsSize = 64

// Option is the interface for the options of the in-memory cache storage.
type Option[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint] interface {
	apply(*options[K, V])
}

type optionFunc[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint] func(*options[K, V])

func (f optionFunc[K, V]) apply(o *options[K, V]) {
	f(o)
}

// WithKeyHash sets the key hash function to the storage.
func WithKeyHash[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint](f func(K) int) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.hashKey = func(key any) int {
			return f(key.(K))
		}
	})
}

// WithBucketsSize sets the number of buckets in the cache.
// The number of buckets must be a natural number.
func WithBucketsSize[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint](bucketsSize int) Option[K, V] {
	if bucketsSize <= 0 {
		panic("bucketSize must be natural number")
	}
	return optionFunc[K, V](func(o *options[K, V]) {
		o.bucketsSize = bucketsSize
	})
}

// WithClock sets the clock to the storage.
func WithClock[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint](clock loadingengine.Clock) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.clock = clock
	})
}

// WithCloner sets the value cloner to the storage.
// Without it, loadingengine.DefaultValueCloner is used, which panics for value types it cannot clone.
func WithCloner[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint](cloner loadingengine.ValueCloner[V]) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.cloner = cloner
	})
}

// WithExpirationPolicy sets the policy deciding whether an entry with an expiration time is stale.
// The default is expiration.GeneralExpirationPolicy.
func WithExpirationPolicy[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint](policy expiration.ExpirationPolicy) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.policy = policy
	})
}

type options[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint] struct {
	hashKey     func(any) int
	bucketsSize int
	clock       loadingengine.Clock
	cloner      loadingengine.ValueCloner[V]
	policy      expiration.ExpirationPolicy
}

func defaultOptions[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint]() options[K, V] {
	return options[K, V]{
		hashKey:     keyhash.GetOrCreateKeyHash[K](),
		bucketsSize: DefaultBucketsSize,
		clock:       loadingengine.SystemClock,
		policy:      expiration.GeneralExpirationPolicy{},
	}
}
