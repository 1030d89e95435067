package engine

import (
	"time"

	"github.com/karupanerura/loading-engine/backoff"
)

// DefaultRetryDelay is the wait between attempts when no backoff is configured.
const DefaultRetryDelay = 100 * time.Millisecond

// LoadOption configures a single load.
type LoadOption interface {
	applyLoad(*loadOptions)
}

type loadOptionFunc func(*loadOptions)

func (f loadOptionFunc) applyLoad(o *loadOptions) {
	f(o)
}

type loadOptions struct {
	retries int
	backoff backoff.Policy
	timeout time.Duration
	ttl     time.Duration
}

func defaultLoadOptions() loadOptions {
	return loadOptions{
		retries: 1,
		backoff: backoff.Constant(DefaultRetryDelay),
	}
}

func (o loadOptions) with(opts []LoadOption) loadOptions {
	for _, opt := range opts {
		opt.applyLoad(&o)
	}
	return o
}

// attempts returns how many times the producer may be invoked.
func (o loadOptions) attempts() int {
	return max(o.retries, 1)
}

// WithRetries sets the total number of producer invocations for one load.
// Values below 2 disable retrying; the default is 1.
func WithRetries(n int) LoadOption {
	return loadOptionFunc(func(o *loadOptions) {
		o.retries = n
	})
}

// WithRetryDelay waits the constant duration d between attempts.
func WithRetryDelay(d time.Duration) LoadOption {
	return loadOptionFunc(func(o *loadOptions) {
		o.backoff = backoff.Constant(d)
	})
}

// WithBackoff sets the policy computing the wait between attempts.
func WithBackoff(p backoff.Policy) LoadOption {
	return loadOptionFunc(func(o *loadOptions) {
		o.backoff = p
	})
}

// WithTimeout bounds each attempt. A producer that has not settled within d is abandoned,
// and the attempt fails with a *TimeoutError. Zero disables the timeout.
func WithTimeout(d time.Duration) LoadOption {
	return loadOptionFunc(func(o *loadOptions) {
		o.timeout = d
	})
}

// WithCacheTTL sets how long a successful result is served from the cache.
// Zero or a negative duration keeps the result until it is cleared or evicted.
func WithCacheTTL(d time.Duration) LoadOption {
	return loadOptionFunc(func(o *loadOptions) {
		o.ttl = d
	})
}
