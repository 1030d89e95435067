// Package keyhash spreads cache keys over storage buckets.
package keyhash

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"sync"

	"github.com/goccy/go-reflect"

	loadingengine "github.com/karupanerura/loading-engine"
)

// maxInt masks hash sums into the non-negative int range of the platform.
const maxInt = uint64(^uint(0) >> 1)

var (
	registryMu sync.RWMutex
	registry   = map[string]func(any) int{}
)

// GetOrCreateKeyHash returns a hash function for the key type K.
// The returned function yields non-negative values and is shared by every caller asking for the same type.
func GetOrCreateKeyHash[K loadingengine.KeyConstraint]() func(any) int {
	var zero K
	name := reflect.TypeOf(zero).String()

	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if ok {
		return f
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if f, ok := registry[name]; ok {
		return f
	}
	f = createKeyHash(zero)
	registry[name] = f
	return f
}

func createKeyHash(t any) func(any) int {
	switch t.(type) {
	case string:
		return func(v any) int {
			return sum([]byte(v.(string)))
		}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return func(v any) int {
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], bits(v))
			return sum(b[:])
		}
	case uintptr:
		panic("uintptr cannot be hash key")
	default:
		panic(fmt.Sprintf("unknown type: %T", t))
	}
}

// bits widens a numeric key to 64 bits so equal keys of one type always hash alike.
func bits(v any) uint64 {
	switch n := v.(type) {
	case int:
		return uint64(n)
	case int8:
		return uint64(n)
	case int16:
		return uint64(n)
	case int32:
		return uint64(n)
	case int64:
		return uint64(n)
	case uint:
		return uint64(n)
	case uint8:
		return uint64(n)
	case uint16:
		return uint64(n)
	case uint32:
		return uint64(n)
	case uint64:
		return n
	case float32:
		return uint64(math.Float32bits(n))
	case float64:
		return math.Float64bits(n)
	default:
		panic(fmt.Sprintf("unknown type: %T", v))
	}
}

// sum computes the FNV-1a hash of b.
func sum(b []byte) int {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return int(h.Sum64() & maxInt)
}
