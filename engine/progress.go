package engine

import (
	"context"
	"time"

	"go.uber.org/atomic"

	loadingengine "github.com/karupanerura/loading-engine"
)

const (
	// maxLoadingProgress is the highest progress reported before a load settles.
	maxLoadingProgress = 99
	settledProgress    = 100
)

// progressTracker estimates how far a load is.
// Values handed out never decrease, across retries too.
type progressTracker struct {
	clock    loadingengine.Clock
	started  time.Time
	estimate time.Duration

	reported *atomic.Float64
	last     *atomic.Float64
	settled  *atomic.Bool
}

func newProgressTracker(clock loadingengine.Clock, estimate time.Duration) *progressTracker {
	return &progressTracker{
		clock:    clock,
		started:  clock.Now(),
		estimate: estimate,
		reported: atomic.NewFloat64(0),
		last:     atomic.NewFloat64(0),
		settled:  atomic.NewBool(false),
	}
}

// report records progress announced by the producer.
func (p *progressTracker) report(pct float64) {
	storeMax(p.reported, min(max(pct, 0), maxLoadingProgress))
}

// heuristic approaches maxLoadingProgress as the elapsed time grows past the estimate.
func (p *progressTracker) heuristic() float64 {
	elapsed := p.clock.Now().Sub(p.started)
	if elapsed <= 0 {
		return 0
	}
	return maxLoadingProgress * float64(elapsed) / float64(elapsed+p.estimate)
}

func (p *progressTracker) value() float64 {
	if p.settled.Load() {
		return settledProgress
	}
	return storeMax(p.last, max(p.heuristic(), p.reported.Load()))
}

func (p *progressTracker) settle() {
	p.settled.Store(true)
}

func storeMax(f *atomic.Float64, v float64) float64 {
	for {
		cur := f.Load()
		if v <= cur {
			return cur
		}
		if f.CompareAndSwap(cur, v) {
			return v
		}
	}
}

type progressKey struct{}

func withProgress(ctx context.Context, p *progressTracker) context.Context {
	return context.WithValue(ctx, progressKey{}, p)
}

// ReportProgress lets a producer announce how far it is, in percent.
// Values are clamped below 100 and never lower the progress already reported for the load.
// It does nothing when ctx does not come from the engine.
func ReportProgress(ctx context.Context, pct float64) {
	if p, ok := ctx.Value(progressKey{}).(*progressTracker); ok {
		p.report(pct)
	}
}
