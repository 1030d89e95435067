// storagetest package provides generic test cases for cache storage implementations.
package storagetest

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	loadingengine "github.com/karupanerura/loading-engine"
	"golang.org/x/sync/errgroup"
)

// Provider builds a fresh storage reading time from the given clock, and a function releasing it.
type Provider[V loadingengine.ValueConstraint] func(loadingengine.Clock) (loadingengine.CacheStorage[string, V], func())

// BenchmarkSet benchmarks the Set method of the cache storage.
func BenchmarkSet[V loadingengine.ValueConstraint](b *testing.B, storage loadingengine.CacheStorage[string, V], keys []string) {
	var zero V
	ctx := b.Context()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		storage.Set(ctx, &loadingengine.CacheEntry[string, V]{
			Entry: loadingengine.Entry[string, V]{Key: keys[i%len(keys)], Value: zero},
		})
	}
}

type TestClonerStruct struct {
	value int8
}

func (s *TestClonerStruct) Clone() *TestClonerStruct {
	return &TestClonerStruct{value: s.value}
}

// TestCloneStruct tests the cloning behavior of the cache storage.
func TestCloneStruct(t *testing.T, provider Provider[*TestClonerStruct]) {
	t.Run("CloneStruct", func(t *testing.T) {
		t.Parallel()

		storage, release := provider(loadingengine.SystemClock)
		defer release()

		original := &loadingengine.CacheEntry[string, *TestClonerStruct]{
			Entry: loadingengine.Entry[string, *TestClonerStruct]{
				Key:   "politician-1",
				Value: &TestClonerStruct{value: 1},
			},
		}
		if err := storage.Set(t.Context(), original); err != nil {
			t.Fatal(err)
		}

		got, err := storage.Get(t.Context(), "politician-1")
		if err != nil {
			t.Fatal(err)
		}
		if original == got || original.Value == got.Value {
			t.Error("struct must be cloned, but got same that")
		}
		if df := cmp.Diff(original, got, cmp.AllowUnexported(TestClonerStruct{})); df != "" {
			t.Errorf("struct diff=%s", df)
		}

		before := got
		got, err = storage.Get(t.Context(), "politician-1")
		if err != nil {
			t.Fatal(err)
		}
		if before == got || before.Value == got.Value {
			t.Error("struct must be cloned, but got same that")
		}
	})
}

// TestConsistency checks concurrent writers and readers observe whole entries.
func TestConsistency(t *testing.T, provider Provider[int]) {
	t.Run("Consistency", func(t *testing.T) {
		t.Parallel()

		storage, release := provider(loadingengine.SystemClock)
		defer release()

		patterns := make([]loadingengine.Entry[string, int], 64)
		for i := range patterns {
			patterns[i] = loadingengine.Entry[string, int]{Key: "key-" + strconv.Itoa(i), Value: i * 10}
		}
		rand.Shuffle(len(patterns), func(i, j int) {
			patterns[i], patterns[j] = patterns[j], patterns[i]
		})

		var eg errgroup.Group
		for _, pattern := range patterns {
			eg.Go(func() error {
				entry, err := storage.Get(t.Context(), pattern.Key)
				if err != nil {
					return err
				} else if entry != nil {
					return fmt.Errorf("unexpected exists value for key %s", pattern.Key)
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			t.Fatal(err)
		}

		eg = errgroup.Group{}
		for _, pattern := range patterns {
			eg.Go(func() error {
				return storage.Set(t.Context(), &loadingengine.CacheEntry[string, int]{Entry: pattern})
			})
		}
		if err := eg.Wait(); err != nil {
			t.Fatal(err)
		}

		eg = errgroup.Group{}
		got := make([]loadingengine.Entry[string, int], len(patterns))
		for i, pattern := range patterns {
			eg.Go(func() error {
				entry, err := storage.Get(t.Context(), pattern.Key)
				if err != nil {
					return err
				} else if entry == nil {
					return fmt.Errorf("missing value for key %s", pattern.Key)
				}
				got[i] = entry.Entry
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			t.Fatal(err)
		}
		if df := cmp.Diff(patterns, got); df != "" {
			t.Errorf("entries diff=%s", df)
		}
	})
}

// TestExpiration checks that entries are hidden once expired and kept forever without an expiration time.
func TestExpiration(t *testing.T, provider Provider[int]) {
	t.Run("Expiration", func(t *testing.T) {
		t.Parallel()

		base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
		clock := loadingengine.NewManualClock(base)
		storage, release := provider(clock)
		defer release()

		expiresAt := base.Add(time.Hour)
		want := &loadingengine.CacheEntry[string, int]{
			Entry:     loadingengine.Entry[string, int]{Key: "ttl", Value: 1},
			CachedAt:  base,
			ExpiresAt: expiresAt,
		}
		forever := &loadingengine.CacheEntry[string, int]{
			Entry:    loadingengine.Entry[string, int]{Key: "forever", Value: 2},
			CachedAt: base,
		}
		for _, e := range []*loadingengine.CacheEntry[string, int]{want, forever} {
			if err := storage.Set(t.Context(), e); err != nil {
				t.Fatal(err)
			}
		}

		clock.Set(base.Add(time.Hour - time.Second))
		got, err := storage.Get(t.Context(), "ttl")
		if err != nil {
			t.Fatal(err)
		}
		if df := cmp.Diff(want, got); df != "" {
			t.Errorf("entry diff=%s", df)
		}

		clock.Set(base.Add(time.Hour))
		if got, err := storage.Get(t.Context(), "ttl"); err != nil {
			t.Fatal(err)
		} else if got != nil {
			t.Error("should be expired at exactly expiration time")
		}

		clock.Set(base.Add(24 * time.Hour))
		if got, err := storage.Get(t.Context(), "forever"); err != nil {
			t.Fatal(err)
		} else if df := cmp.Diff(forever, got); df != "" {
			t.Errorf("entry without expiration time diff=%s", df)
		}

		n, err := storage.Purge(t.Context())
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("Purge() removed %d entries, want 1", n)
		}
		if got, err := storage.Get(t.Context(), "forever"); err != nil || got == nil {
			t.Errorf("entry without expiration time must survive purge: %v, %v", got, err)
		}
	})
}

// TestDelete checks single-key and predicate deletion.
func TestDelete(t *testing.T, provider Provider[int]) {
	t.Run("Delete", func(t *testing.T) {
		t.Parallel()

		storage, release := provider(loadingengine.SystemClock)
		defer release()

		keys := []string{"test-key-1", "test-key-2", "other-key", "politician-1"}
		for i, key := range keys {
			if err := storage.Set(t.Context(), &loadingengine.CacheEntry[string, int]{
				Entry: loadingengine.Entry[string, int]{Key: key, Value: i},
			}); err != nil {
				t.Fatal(err)
			}
		}

		if err := storage.Delete(t.Context(), "politician-1"); err != nil {
			t.Fatal(err)
		}
		if err := storage.Delete(t.Context(), "missing"); err != nil {
			t.Fatalf("deleting a missing key must not fail: %v", err)
		}

		n, err := storage.DeleteFunc(t.Context(), func(k string) bool {
			return strings.HasPrefix(k, "test-")
		})
		if err != nil {
			t.Fatal(err)
		}
		if n != 2 {
			t.Errorf("DeleteFunc() removed %d entries, want 2", n)
		}

		var remaining []string
		for _, key := range keys {
			entry, err := storage.Get(t.Context(), key)
			if err != nil {
				t.Fatal(err)
			}
			if entry != nil {
				remaining = append(remaining, key)
			}
		}
		sort.Strings(remaining)
		if df := cmp.Diff([]string{"other-key"}, remaining); df != "" {
			t.Errorf("remaining keys diff=%s", df)
		}
	})
}
