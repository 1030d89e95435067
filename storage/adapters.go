package storage

import (
	"context"

	loadingengine "github.com/karupanerura/loading-engine"
)

var _ loadingengine.CacheStorage[uint8, struct{}] = (*SilentErrorStorage[uint8, struct{}])(nil)

// SilentErrorStorage is a decorator for a loadingengine.CacheStorage that silently handles
// errors during operations. Instead of propagating the error, it calls the provided OnError function.
// A failed read behaves like a miss and a failed write leaves the storage unchanged.
type SilentErrorStorage[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint] struct {
	// Storage is the underlying storage that this decorator wraps.
	Storage loadingengine.CacheStorage[K, V]

	// OnError is a function that is called when an error occurs during an operation.
	OnError func(error)
}

func (s *SilentErrorStorage[K, V]) report(err error) {
	if s.OnError != nil {
		s.OnError(err)
	}
}

// Get retrieves the value associated with the given key from the underlying storage.
// On error it returns a nil entry and a nil error.
func (s *SilentErrorStorage[K, V]) Get(ctx context.Context, key K) (*loadingengine.CacheEntry[K, V], error) {
	value, err := s.Storage.Get(ctx, key)
	if err != nil {
		s.report(err)
		return nil, nil
	}
	return value, nil
}

// Set stores the entry in the underlying storage. It always returns nil.
func (s *SilentErrorStorage[K, V]) Set(ctx context.Context, entry *loadingengine.CacheEntry[K, V]) error {
	if err := s.Storage.Set(ctx, entry); err != nil {
		s.report(err)
	}
	return nil
}

// Delete removes the key from the underlying storage. It always returns nil.
func (s *SilentErrorStorage[K, V]) Delete(ctx context.Context, key K) error {
	if err := s.Storage.Delete(ctx, key); err != nil {
		s.report(err)
	}
	return nil
}

// DeleteFunc removes matching keys from the underlying storage.
// On error it returns the count reported by the storage and a nil error.
func (s *SilentErrorStorage[K, V]) DeleteFunc(ctx context.Context, pred func(K) bool) (int, error) {
	n, err := s.Storage.DeleteFunc(ctx, pred)
	if err != nil {
		s.report(err)
	}
	return n, nil
}

// Purge removes expired entries from the underlying storage.
// On error it returns the count reported by the storage and a nil error.
func (s *SilentErrorStorage[K, V]) Purge(ctx context.Context) (int, error) {
	n, err := s.Storage.Purge(ctx)
	if err != nil {
		s.report(err)
	}
	return n, nil
}

var _ loadingengine.CacheStorage[uint8, struct{}] = (*FunctionsStorage[uint8, struct{}])(nil)

// FunctionsStorage is a loadingengine.CacheStorage implementation that uses functions to perform the storage operations.
// A nil function makes the corresponding operation a no-op reporting nothing found or removed.
type FunctionsStorage[K loadingengine.KeyConstraint, V loadingengine.ValueConstraint] struct {
	SetFunc         func(context.Context, *loadingengine.CacheEntry[K, V]) error
	GetFunc         func(context.Context, K) (*loadingengine.CacheEntry[K, V], error)
	DeleteKeyFunc   func(context.Context, K) error
	DeleteWhereFunc func(context.Context, func(K) bool) (int, error)
	PurgeFunc       func(context.Context) (int, error)
}

// Set calls the SetFunc function to store the given entry.
func (s *FunctionsStorage[K, V]) Set(ctx context.Context, entry *loadingengine.CacheEntry[K, V]) error {
	if s.SetFunc == nil {
		return nil
	}
	return s.SetFunc(ctx, entry)
}

// Get calls the GetFunc function to retrieve the entry associated with the given key.
func (s *FunctionsStorage[K, V]) Get(ctx context.Context, key K) (*loadingengine.CacheEntry[K, V], error) {
	if s.GetFunc == nil {
		return nil, nil
	}
	return s.GetFunc(ctx, key)
}

// Delete calls the DeleteKeyFunc function.
func (s *FunctionsStorage[K, V]) Delete(ctx context.Context, key K) error {
	if s.DeleteKeyFunc == nil {
		return nil
	}
	return s.DeleteKeyFunc(ctx, key)
}

// DeleteFunc calls the DeleteWhereFunc function.
func (s *FunctionsStorage[K, V]) DeleteFunc(ctx context.Context, pred func(K) bool) (int, error) {
	if s.DeleteWhereFunc == nil {
		return 0, nil
	}
	return s.DeleteWhereFunc(ctx, pred)
}

// Purge calls the PurgeFunc function.
func (s *FunctionsStorage[K, V]) Purge(ctx context.Context) (int, error) {
	if s.PurgeFunc == nil {
		return 0, nil
	}
	return s.PurgeFunc(ctx)
}
