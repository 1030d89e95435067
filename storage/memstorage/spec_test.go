package memstorage_test

import (
	"strconv"
	"testing"

	loadingengine "github.com/karupanerura/loading-engine"
	"github.com/karupanerura/loading-engine/storage/memstorage"
	"github.com/karupanerura/loading-engine/storage/storagetest"
)

func BenchmarkSet(b *testing.B) {
	keys := make([]string, 1024)
	for i := range keys {
		keys[i] = "key-" + strconv.Itoa(i%256)
	}
	b.Run("SingleBucket", func(b *testing.B) {
		storagetest.BenchmarkSet(b, memstorage.NewInMemoryStorage(memstorage.WithBucketsSize[string, int](1)), keys)
	})
	b.Run("MultipleBucket", func(b *testing.B) {
		storagetest.BenchmarkSet(b, memstorage.NewInMemoryStorage[string, int](), keys)
	})
}

func intProvider(bucketsSize int) storagetest.Provider[int] {
	return func(clock loadingengine.Clock) (loadingengine.CacheStorage[string, int], func()) {
		return memstorage.NewInMemoryStorage(
			memstorage.WithBucketsSize[string, int](bucketsSize),
			memstorage.WithClock[string, int](clock),
		), func() {}
	}
}

func TestStorage(t *testing.T) {
	t.Parallel()
	for _, size := range []int{1, 2, 7, 64} {
		t.Run(strconv.Itoa(size), func(t *testing.T) {
			t.Parallel()

			storagetest.TestConsistency(t, intProvider(size))
			storagetest.TestExpiration(t, intProvider(size))
			storagetest.TestDelete(t, intProvider(size))
		})
	}
}

func TestKeyHash(t *testing.T) {
	t.Parallel()

	storagetest.TestConsistency(t, func(clock loadingengine.Clock) (loadingengine.CacheStorage[string, int], func()) {
		return memstorage.NewInMemoryStorage(
			memstorage.WithBucketsSize[string, int](4),
			memstorage.WithKeyHash[string, int](func(key string) int {
				return len(key)
			}),
		), func() {}
	})
}

func TestCloneStruct(t *testing.T) {
	t.Parallel()
	for _, size := range []int{1, 8} {
		t.Run(strconv.Itoa(size), func(t *testing.T) {
			t.Parallel()

			storagetest.TestCloneStruct(t, func(clock loadingengine.Clock) (loadingengine.CacheStorage[string, *storagetest.TestClonerStruct], func()) {
				return memstorage.NewInMemoryStorage(memstorage.WithBucketsSize[string, *storagetest.TestClonerStruct](size)), func() {}
			})
		})
	}
}

func TestLen(t *testing.T) {
	t.Parallel()

	s := memstorage.NewInMemoryStorage[string, int]()
	for i := range 10 {
		if err := s.Set(t.Context(), &loadingengine.CacheEntry[string, int]{
			Entry: loadingengine.Entry[string, int]{Key: strconv.Itoa(i), Value: i},
		}); err != nil {
			t.Fatal(err)
		}
	}
	if got := s.Len(); got != 10 {
		t.Errorf("Len() = %d, want 10", got)
	}
}
