// Package lrustorage provides a size-bounded loadingengine.CacheStorage backed by
// github.com/hashicorp/golang-lru/v2. When the capacity is reached the least recently
// used entry is evicted, which makes the engine reload that key on its next request.
package lrustorage

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	loadingengine "github.com/karupanerura/loading-engine"
	"github.com/karupanerura/loading-engine/expiration"
)

// Option is the interface for the options of the LRU cache storage.
type Option[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint] interface {
	apply(*Storage[K, V])
}

type optionFunc[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint] func(*Storage[K, V])

func (f optionFunc[K, V]) apply(s *Storage[K, V]) {
	f(s)
}

// WithClock sets the clock to the storage.
func WithClock[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint](clock loadingengine.Clock) Option[K, V] {
	return optionFunc[K, V](func(s *Storage[K, V]) {
		s.clock = clock
	})
}

// WithCloner sets the value cloner to the storage.
func WithCloner[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint](cloner loadingengine.ValueCloner[V]) Option[K, V] {
	return optionFunc[K, V](func(s *Storage[K, V]) {
		s.cloner = cloner
	})
}

// WithExpirationPolicy sets the policy deciding whether an entry with an expiration time is stale.
func WithExpirationPolicy[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint](policy expiration.ExpirationPolicy) Option[K, V] {
	return optionFunc[K, V](func(s *Storage[K, V]) {
		s.policy = policy
	})
}

// WithOnEvict registers a callback invoked when an entry leaves the cache,
// whether it was evicted for capacity or removed by Delete, DeleteFunc or Purge.
func WithOnEvict[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint](f func(K)) Option[K, V] {
	return optionFunc[K, V](func(s *Storage[K, V]) {
		s.onEvict = f
	})
}

// Storage is an LRU cache storage.
type Storage[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint] struct {
	cache   *lru.Cache[K, *loadingengine.CacheEntry[K, V]]
	clock   loadingengine.Clock
	cloner  loadingengine.ValueCloner[V]
	policy  expiration.ExpirationPolicy
	onEvict func(K)
}

var _ loadingengine.CacheStorage[uint8, struct{}] = (*Storage[uint8, struct{}])(nil)

// NewLRUStorage creates a storage holding at most size entries.
func NewLRUStorage[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint](size int, opts ...Option[K, V]) (*Storage[K, V], error) {
	s := &Storage[K, V]{
		clock:  loadingengine.SystemClock,
		policy: expiration.GeneralExpirationPolicy{},
	}
	for _, o := range opts {
		o.apply(s)
	}
	if s.cloner == nil {
		s.cloner = loadingengine.DefaultValueCloner[V]()
	}

	cache, err := lru.NewWithEvict(size, func(key K, _ *loadingengine.CacheEntry[K, V]) {
		if s.onEvict != nil {
			s.onEvict(key)
		}
	})
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

func (s *Storage[K, V]) expired(e *loadingengine.CacheEntry[K, V]) bool {
	return expiration.Expired(s.policy, s.clock.Now(), e.ExpiresAt)
}

func (s *Storage[K, V]) Get(_ context.Context, key K) (*loadingengine.CacheEntry[K, V], error) {
	e, ok := s.cache.Get(key)
	if !ok || s.expired(e) {
		return nil, nil
	}
	return s.clone(e), nil
}

func (s *Storage[K, V]) Set(_ context.Context, entry *loadingengine.CacheEntry[K, V]) error {
	s.cache.Add(entry.Key, s.clone(entry))
	return nil
}

func (s *Storage[K, V]) Delete(_ context.Context, key K) error {
	s.cache.Remove(key)
	return nil
}

func (s *Storage[K, V]) DeleteFunc(_ context.Context, pred func(K) bool) (int, error) {
	var n int
	for _, key := range s.cache.Keys() {
		if pred(key) && s.cache.Remove(key) {
			n++
		}
	}
	return n, nil
}

func (s *Storage[K, V]) Purge(_ context.Context) (int, error) {
	var n int
	for _, key := range s.cache.Keys() {
		if e, ok := s.cache.Peek(key); ok && s.expired(e) && s.cache.Remove(key) {
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries, expired ones included.
func (s *Storage[K, V]) Len() int {
	return s.cache.Len()
}

func (s *Storage[K, V]) clone(e *loadingengine.CacheEntry[K, V]) *loadingengine.CacheEntry[K, V] {
	return &loadingengine.CacheEntry[K, V]{
		Entry:     loadingengine.Entry[K, V]{Key: e.Key, Value: s.cloner.CloneValue(e.Value)},
		CachedAt:  e.CachedAt,
		ExpiresAt: e.ExpiresAt,
	}
}
