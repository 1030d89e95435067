package engine

import "sync"

var (
	defaultMu     sync.Mutex
	defaultEngine *Engine
)

// Default returns the process-wide engine, constructing it on first use.
// Every call returns the same engine until Destroy is called.
func Default() *Engine {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultEngine == nil {
		defaultEngine = New()
	}
	return defaultEngine
}

// Destroy resets the process-wide engine and drops it, so the next Default constructs a new one.
// Loads in flight are not cancelled; their results are ignored.
func Destroy() {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultEngine != nil {
		defaultEngine.Reset()
		defaultEngine = nil
	}
}
