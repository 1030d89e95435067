package expiration

import (
	"math/rand/v2"
	"time"
)

// ExpirationPolicy is the interface for the expiration time checker.
type ExpirationPolicy interface {
	// IsExpired returns true if a value that expires at expiresAt is stale at now.
	IsExpired(now, expiresAt time.Time) bool
}

// Expired applies the policy to an entry expiration time.
// The zero expiresAt means the entry has no TTL, so it is never expired.
func Expired(p ExpirationPolicy, now, expiresAt time.Time) bool {
	if expiresAt.IsZero() {
		return false
	}
	return p.IsExpired(now, expiresAt)
}

// GeneralExpirationPolicy expires a value once its expiration time is reached.
type GeneralExpirationPolicy struct{}

var _ ExpirationPolicy = GeneralExpirationPolicy{}

// IsExpired returns true when now >= expiresAt.
func (GeneralExpirationPolicy) IsExpired(now, expiresAt time.Time) bool {
	return !expiresAt.After(now)
}

// NeverExpirationPolicy keeps values until they are cleared explicitly, ignoring any TTL.
type NeverExpirationPolicy struct{}

var _ ExpirationPolicy = NeverExpirationPolicy{}

// IsExpired always returns false.
func (NeverExpirationPolicy) IsExpired(now, expiresAt time.Time) bool {
	return false
}

// EarlyExpirationPolicy may expire a value up to Duration before its expiration time.
// Spreading refreshes of hot keys over a window keeps their reloads from lining up.
type EarlyExpirationPolicy struct {
	// Duration is how much earlier the value can expire.
	Duration time.Duration

	// Percentage is the chance in [0, 1] that a check uses the early deadline.
	Percentage float64

	// Random is the random number generator to decide early expiration.
	// If nil, the default system random generator is used.
	Random *rand.Rand
}

var _ ExpirationPolicy = (*EarlyExpirationPolicy)(nil)

// IsExpired checks expiresAt against now, or against now+Duration with probability Percentage.
func (p *EarlyExpirationPolicy) IsExpired(now, expiresAt time.Time) bool {
	if p.randFloat64() >= p.Percentage {
		return !expiresAt.After(now)
	}
	return !expiresAt.After(now.Add(p.Duration))
}

func (p *EarlyExpirationPolicy) randFloat64() float64 {
	if p.Random == nil {
		return rand.Float64()
	}
	return p.Random.Float64()
}
