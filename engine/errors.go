package engine

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyKey is returned when Load is called with an empty key.
	ErrEmptyKey = errors.New("engine: empty load key")

	// ErrNilProducer is returned when Load is called without a producer.
	ErrNilProducer = errors.New("engine: nil producer")

	// ErrTimeout is wrapped by every *TimeoutError.
	ErrTimeout = errors.New("engine: load attempt timed out")

	// ErrProducerGoexit is the failure of an attempt whose producer called runtime.Goexit.
	ErrProducerGoexit = errors.New("engine: producer called runtime.Goexit")
)

// TimeoutError is the failure of an attempt abandoned because its producer did not settle in time.
type TimeoutError struct {
	Key     string
	Attempt int
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("engine: load %q attempt %d timed out after %v", e.Key, e.Attempt, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// TypeMismatchError is returned by Load when the value stored for a key is not of the requested type.
// It happens when two callers use one key for different value types.
type TypeMismatchError struct {
	Key  string
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("engine: value for %q is %s, not %s", e.Key, e.Got, e.Want)
}
