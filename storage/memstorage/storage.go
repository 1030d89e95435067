package memstorage

import (
	"context"
	"sync"

	loadingengine "github.com/karupanerura/loading-engine"
	"github.com/karupanerura/loading-engine/expiration"
)

type bucket[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint] struct {
	m  map[K]*loadingengine.CacheEntry[K, V]
	mu sync.RWMutex
}

// Storage is an in-memory cache storage.
type Storage[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint] struct {
	buckets []*bucket[K, V]
	options options[K, V]
}

var _ loadingengine.CacheStorage[uint8, struct{}] = (*Storage[uint8, struct{}])(nil)

// NewInMemoryStorage creates a new in-memory cache storage.
// The storage is distributed across buckets chosen by hashing the keys.
func NewInMemoryStorage[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint](opts ...Option[K, V]) *Storage[K, V] {
	options := defaultOptions[K, V]()
	for _, opt := range opts {
		opt.apply(&options)
	}
	if options.cloner == nil {
		options.cloner = loadingengine.DefaultValueCloner[V]()
	}

	buckets := make([]*bucket[K, V], options.bucketsSize)
	for i := range buckets {
		buckets[i] = &bucket[K, V]{m: map[K]*loadingengine.CacheEntry[K, V]{}}
	}
	return &Storage[K, V]{
		buckets: buckets,
		options: options,
	}
}

// resolveBucket returns the bucket that corresponds to the given key.
func (s *Storage[K, V]) resolveBucket(key K) *bucket[K, V] {
	if len(s.buckets) == 1 {
		return s.buckets[0]
	}
	index := s.options.hashKey(key) % len(s.buckets)
	if index < 0 {
		index *= -1
	}
	return s.buckets[index]
}

func (s *Storage[K, V]) expired(e *loadingengine.CacheEntry[K, V]) bool {
	return expiration.Expired(s.options.policy, s.options.clock.Now(), e.ExpiresAt)
}

func (s *Storage[K, V]) Get(_ context.Context, key K) (*loadingengine.CacheEntry[K, V], error) {
	bucket := s.resolveBucket(key)
	bucket.mu.RLock()
	defer bucket.mu.RUnlock()

	if v, ok := bucket.m[key]; ok && !s.expired(v) {
		return cloneCacheEntry(s.options.cloner, v), nil
	}
	return nil, nil
}

func (s *Storage[K, V]) Set(_ context.Context, entry *loadingengine.CacheEntry[K, V]) error {
	bucket := s.resolveBucket(entry.Key)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	bucket.m[entry.Key] = cloneCacheEntry(s.options.cloner, entry)
	return nil
}

func (s *Storage[K, V]) Delete(_ context.Context, key K) error {
	bucket := s.resolveBucket(key)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	delete(bucket.m, key)
	return nil
}

// DeleteFunc removes the entries whose key satisfies pred, one bucket at a time.
// The predicate is called with the bucket lock held and must not call back into the storage.
func (s *Storage[K, V]) DeleteFunc(_ context.Context, pred func(K) bool) (int, error) {
	return s.deleteWhere(func(k K, _ *loadingengine.CacheEntry[K, V]) bool {
		return pred(k)
	}), nil
}

// Purge removes every expired entry.
func (s *Storage[K, V]) Purge(_ context.Context) (int, error) {
	return s.deleteWhere(func(_ K, e *loadingengine.CacheEntry[K, V]) bool {
		return s.expired(e)
	}), nil
}

func (s *Storage[K, V]) deleteWhere(pred func(K, *loadingengine.CacheEntry[K, V]) bool) int {
	var n int
	for _, bucket := range s.buckets {
		bucket.mu.Lock()
		for k, e := range bucket.m {
			if pred(k, e) {
				delete(bucket.m, k)
				n++
			}
		}
		bucket.mu.Unlock()
	}
	return n
}

// Len returns the number of stored entries, expired ones included.
func (s *Storage[K, V]) Len() int {
	var n int
	for _, bucket := range s.buckets {
		bucket.mu.RLock()
		n += len(bucket.m)
		bucket.mu.RUnlock()
	}
	return n
}

func cloneCacheEntry[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint](cloner loadingengine.ValueCloner[V], v *loadingengine.CacheEntry[K, V]) *loadingengine.CacheEntry[K, V] {
	return &loadingengine.CacheEntry[K, V]{
		Entry: loadingengine.Entry[K, V]{
			Key:   v.Key,
			Value: cloner.CloneValue(v.Value),
		},
		CachedAt:  v.CachedAt,
		ExpiresAt: v.ExpiresAt,
	}
}
