package engine

import (
	"time"

	"github.com/sourcegraph/conc/panics"
)

// EventKind identifies what happened to a load.
type EventKind int

const (
	// EventLoadSuccess is emitted once a load settles with a value.
	EventLoadSuccess EventKind = iota + 1

	// EventLoadError is emitted once a load settles with its final error.
	EventLoadError

	// EventRetry is emitted before the producer is invoked again after a failed attempt.
	EventRetry
)

func (k EventKind) String() string {
	switch k {
	case EventLoadSuccess:
		return "loadSuccess"
	case EventLoadError:
		return "loadError"
	case EventRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// Event describes a step of a load.
type Event struct {
	Kind EventKind
	Key  string

	// Data is the loaded value of an EventLoadSuccess.
	Data any

	// Err is the final error of an EventLoadError, or the failed attempt's error of an EventRetry.
	Err error

	// Attempt is the number of producer invocations made so far.
	Attempt int

	// Duration is the time elapsed since the load started.
	Duration time.Duration
}

// Listener observes load events.
// Listeners are called synchronously, in subscription order, on the goroutine running the load,
// after the key state is updated and every waiter is released.
type Listener interface {
	OnLoadEvent(Event)
}

// ListenerFunc is a function type that implements the Listener interface.
type ListenerFunc func(Event)

// OnLoadEvent calls the function.
func (f ListenerFunc) OnLoadEvent(ev Event) {
	f(ev)
}

type subscription struct {
	id       uint64
	listener Listener
}

// Subscribe registers a listener and returns a function removing it.
func (e *Engine) Subscribe(l Listener) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextSubscriptionID++
	id := e.nextSubscriptionID
	e.subscriptions = append(e.subscriptions, subscription{id: id, listener: l})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.subscriptions {
			if s.id == id {
				e.subscriptions = append(e.subscriptions[:i:i], e.subscriptions[i+1:]...)
				return
			}
		}
	}
}

// listenersLocked returns a snapshot of the subscribed listeners. e.mu must be held.
func (e *Engine) listenersLocked() []Listener {
	if len(e.subscriptions) == 0 {
		return nil
	}
	listeners := make([]Listener, len(e.subscriptions))
	for i, s := range e.subscriptions {
		listeners[i] = s.listener
	}
	return listeners
}

func (e *Engine) dispatch(listeners []Listener, ev Event) {
	for _, l := range listeners {
		var pc panics.Catcher
		pc.Try(func() {
			l.OnLoadEvent(ev)
		})
		if r := pc.Recovered(); r != nil {
			e.logger.Warn("load listener panicked", "key", ev.Key, "event", ev.Kind.String(), "panic", r.Value)
		}
	}
}
