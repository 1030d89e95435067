package engine

// LoadStatus is the state of a key in the engine.
type LoadStatus int

const (
	// StatusIdle means no load for the key is known to the engine.
	StatusIdle LoadStatus = iota
	StatusLoading
	StatusSucceeded
	StatusFailed
)

func (s LoadStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status as its name.
func (s LoadStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// LoadingState is a consistent snapshot of a key.
type LoadingState struct {
	Status    LoadStatus `json:"status"`
	IsLoading bool       `json:"isLoading"`

	// Progress grows from 0 toward 100 while loading and is 100 once settled.
	Progress float64 `json:"progress"`

	// Attempt is the 1-based number of the current or last producer invocation.
	Attempt int `json:"attempt"`
}

// Metrics counts requests since the engine was created or its metrics were reset.
// CacheHits+CacheMisses always equals TotalRequests.
type Metrics struct {
	TotalRequests uint64 `json:"totalRequests"`

	// CacheHits counts requests that did not invoke the producer, Deduplicated ones included.
	CacheHits uint64 `json:"cacheHits"`

	// CacheMisses counts requests that started a fresh load.
	CacheMisses uint64 `json:"cacheMisses"`

	// Deduplicated counts requests that attached to a load already in flight.
	Deduplicated uint64 `json:"deduplicated"`

	Retries  uint64 `json:"retries"`
	Failures uint64 `json:"failures"`
	Timeouts uint64 `json:"timeouts"`
}

// HitRatio returns CacheHits/TotalRequests, or 0 before the first request.
func (m Metrics) HitRatio() float64 {
	if m.TotalRequests == 0 {
		return 0
	}
	return float64(m.CacheHits) / float64(m.TotalRequests)
}
