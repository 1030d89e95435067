// Package engine provides the keyed loader every data service is built on.
//
// An Engine runs caller-supplied producers and remembers their results per key:
//
//   - at most one producer runs per key at any instant; concurrent callers for the
//     same key share its outcome (single flight),
//   - successful results are cached, optionally with a TTL, and failures are not,
//   - a failing producer is retried with a configurable backoff and per-attempt timeout,
//   - the loading state and progress of every key can be inspected while it loads,
//   - listeners are notified when a key finishes loading.
//
// Engines are constructed with New and passed to the services that use them.
// Default returns a lazily constructed process-wide engine for callers that cannot
// have one injected, and Destroy drops it so the next Default starts from scratch.
package engine
