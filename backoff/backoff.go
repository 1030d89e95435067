// Package backoff provides the delay shapes the engine waits between producer attempts.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Policy returns how long to wait after the given failed attempt (1-based) before the next one.
type Policy interface {
	Delay(attempt int) time.Duration
}

// PolicyFunc is a function type that implements the Policy interface.
type PolicyFunc func(attempt int) time.Duration

// Delay calls the function.
func (f PolicyFunc) Delay(attempt int) time.Duration {
	return f(attempt)
}

// Constant waits the same duration after every attempt.
type Constant time.Duration

var _ Policy = Constant(0)

// Delay returns the constant duration.
func (c Constant) Delay(int) time.Duration {
	return time.Duration(c)
}

// Linear waits Step times the attempt number, capped at Max when Max is positive.
type Linear struct {
	Step time.Duration
	Max  time.Duration
}

var _ Policy = Linear{}

// Delay returns Step*attempt, saturating instead of overflowing.
func (l Linear) Delay(attempt int) time.Duration {
	n := time.Duration(max(attempt, 1))
	if l.Step > 0 && n > math.MaxInt64/l.Step {
		return capped(math.MaxInt64, l.Max)
	}
	return capped(n*l.Step, l.Max)
}

// Exponential waits Base*Factor^(attempt-1), capped at Max when Max is positive.
// Jitter in [0, 1] randomly shortens each delay by up to that fraction.
type Exponential struct {
	Base   time.Duration
	Factor float64
	Max    time.Duration
	Jitter float64

	// Random is the random number generator for the jitter.
	// If nil, the default system random generator is used.
	Random *rand.Rand
}

var _ Policy = (*Exponential)(nil)

// Delay returns the exponential delay for the attempt.
func (e *Exponential) Delay(attempt int) time.Duration {
	factor := e.Factor
	if factor < 1 {
		factor = 2
	}
	d := float64(e.Base) * math.Pow(factor, float64(max(attempt, 1)-1))

	// float64(math.MaxInt64) rounds up to 2^63, which does not fit a Duration
	var delay time.Duration
	if d >= math.MaxInt64 {
		delay = math.MaxInt64
	} else {
		delay = time.Duration(d)
	}
	delay = capped(delay, e.Max)
	if e.Jitter > 0 {
		delay -= time.Duration(float64(delay) * min(e.Jitter, 1) * e.randFloat64())
	}
	return delay
}

func (e *Exponential) randFloat64() float64 {
	if e.Random == nil {
		return rand.Float64()
	}
	return e.Random.Float64()
}

func capped(d, limit time.Duration) time.Duration {
	if limit > 0 && d > limit {
		return limit
	}
	return d
}
