package memstorage_test

import (
	"context"
	"fmt"
	"time"

	loadingengine "github.com/karupanerura/loading-engine"
	"github.com/karupanerura/loading-engine/storage/memstorage"
)

func ExampleNewInMemoryStorage() {
	ctx := context.Background()
	clock := loadingengine.NewManualClock(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))
	storage := memstorage.NewInMemoryStorage(memstorage.WithClock[string, string](clock))

	_ = storage.Set(ctx, &loadingengine.CacheEntry[string, string]{
		Entry:     loadingengine.Entry[string, string]{Key: "politician-1", Value: "Alice"},
		CachedAt:  clock.Now(),
		ExpiresAt: clock.Now().Add(5 * time.Minute),
	})

	if entry, _ := storage.Get(ctx, "politician-1"); entry != nil {
		fmt.Println("cached:", entry.Value)
	}

	clock.Advance(5 * time.Minute)
	if entry, _ := storage.Get(ctx, "politician-1"); entry == nil {
		fmt.Println("expired")
	}

	// Output:
	// cached: Alice
	// expired
}
