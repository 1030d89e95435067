// Package prom exports loader events as Prometheus metrics.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	loadingengine "github.com/karupanerura/loading-engine"
)

// Adapter implements loadingengine.MetricsRecorder and exports Prometheus counters, gauges and histograms.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits      prometheus.Counter
	dedups    prometheus.Counter
	misses    prometheus.Counter
	retries   prometheus.Counter
	timeouts  prometheus.Counter
	evictions prometheus.Counter
	inflight  prometheus.Gauge
	loads     *prometheus.HistogramVec
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		})
	}
	a := &Adapter{
		hits:      counter("hits_total", "Requests served without invoking the producer"),
		dedups:    counter("deduplicated_total", "Requests attached to a load already in flight"),
		misses:    counter("misses_total", "Requests starting a fresh load"),
		retries:   counter("retries_total", "Producer re-invocations after a failed attempt"),
		timeouts:  counter("timeouts_total", "Attempts abandoned after their timeout"),
		evictions: counter("evictions_total", "Cached values evicted by the storage"),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "loads_in_flight",
			Help:        "Loads started and not yet settled",
			ConstLabels: constLabels,
		}),
		loads: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "load_duration_seconds",
				Help:        "Duration of settled loads, retries included, by result",
				ConstLabels: constLabels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(a.hits, a.dedups, a.misses, a.retries, a.timeouts, a.evictions, a.inflight, a.loads)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Dedup increments the deduplication counter.
func (a *Adapter) Dedup() { a.dedups.Inc() }

// Miss increments the miss counter and the in-flight gauge.
func (a *Adapter) Miss() {
	a.misses.Inc()
	a.inflight.Inc()
}

// Retry increments the retry counter.
func (a *Adapter) Retry() { a.retries.Inc() }

// Timeout increments the timeout counter.
func (a *Adapter) Timeout() { a.timeouts.Inc() }

// Settle observes the load duration and decrements the in-flight gauge.
func (a *Adapter) Settle(succeeded bool, d time.Duration) {
	a.inflight.Dec()
	a.loads.WithLabelValues(result(succeeded)).Observe(d.Seconds())
}

// Evicted increments the eviction counter. It fits the eviction callbacks of the storages,
// such as lrustorage.WithOnEvict.
func (a *Adapter) Evicted() { a.evictions.Inc() }

func result(succeeded bool) string {
	if succeeded {
		return "success"
	}
	return "error"
}

// Compile-time check: ensure Adapter implements loadingengine.MetricsRecorder.
var _ loadingengine.MetricsRecorder = (*Adapter)(nil)
