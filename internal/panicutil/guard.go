// Package panicutil runs caller-supplied functions so that every way they can end,
// including panics and runtime.Goexit, is reported back to the engine.
package panicutil

import (
	"github.com/sourcegraph/conc/panics"
)

// Guard runs a function between two deferred frames (the "double defer sandwich")
// to tell a normal return, a panic and runtime.Goexit apart.
type Guard struct {
	// OnGoexit is called when the function calls runtime.Goexit.
	// The calling goroutine keeps unwinding afterwards, so OnGoexit is its last chance to report.
	OnGoexit func()
}

// Run calls f and returns its error.
// A panic is recovered and returned as *panics.ErrRecovered carrying the panic value and stack.
func (g Guard) Run(f func() error) (err error) {
	var (
		returned  bool
		recovered bool
		value     panics.Recovered
	)
	defer func() {
		switch {
		case returned:
		case recovered:
			err = value.AsError()
		default:
			if g.OnGoexit != nil {
				g.OnGoexit()
			}
		}
	}()
	func() {
		defer func() {
			value = panics.NewRecovered(2, recover())
		}()
		err = f()
		returned = true
	}()
	// reached only when f panicked: Goexit skips this line
	recovered = !returned
	return
}

// Run calls f under a Guard without a Goexit hook.
func Run(f func() error) error {
	return Guard{}.Run(f)
}
