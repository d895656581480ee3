package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vanderheijden86/qdash/pkg/model"
)

// Tick outcomes reported to Collectors.TickOutcome.
const (
	OutcomeApplied = "applied"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
	OutcomeStale   = "stale"
)

// Collectors holds the Prometheus metrics for one qdash process. Every method
// is a no-op on a nil receiver so callers never need to guard.
type Collectors struct {
	Registry *prometheus.Registry

	ticks         *prometheus.CounterVec
	fetchErrors   *prometheus.CounterVec
	submissions   *prometheus.CounterVec
	jobs          *prometheus.GaugeVec
	lastSuccess   prometheus.Gauge
	fetchDuration prometheus.Histogram
}

// NewCollectors registers all qdash metrics on a fresh registry, together with
// the standard Go and process collectors.
func NewCollectors() *Collectors {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	f := promauto.With(reg)
	return &Collectors{
		Registry: reg,
		ticks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qdash",
			Name:      "ticks_total",
			Help:      "Poll-aggregate-render cycles by outcome.",
		}, []string{"outcome"}),
		fetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qdash",
			Name:      "fetch_errors_total",
			Help:      "Snapshot fetch failures by kind.",
		}, []string{"kind"}),
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qdash",
			Name:      "submissions_total",
			Help:      "Job submissions by kind and result.",
		}, []string{"kind", "result"}),
		jobs: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "qdash",
			Name:      "jobs",
			Help:      "Jobs per status in the last applied snapshot.",
		}, []string{"status"}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "qdash",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successfully applied snapshot.",
		}),
		fetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "qdash",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of snapshot fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// TickOutcome counts one tick with the given outcome.
func (c *Collectors) TickOutcome(outcome string) {
	if c == nil {
		return
	}
	c.ticks.WithLabelValues(outcome).Inc()
}

// FetchError counts one failed fetch.
func (c *Collectors) FetchError(kind string) {
	if c == nil {
		return
	}
	c.fetchErrors.WithLabelValues(kind).Inc()
}

// FetchDuration observes one fetch latency.
func (c *Collectors) FetchDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.fetchDuration.Observe(d.Seconds())
}

// Submission counts one submission attempt. result is "ok" or "error".
func (c *Collectors) Submission(kind model.JobKind, result string) {
	if c == nil {
		return
	}
	c.submissions.WithLabelValues(string(kind), result).Inc()
}

// SnapshotApplied replaces the per-status gauges with the given distribution.
// Statuses that disappeared from the queue drop out of the exposition.
func (c *Collectors) SnapshotApplied(dist model.StatusDistribution, at time.Time) {
	if c == nil {
		return
	}
	c.jobs.Reset()
	for _, e := range dist.Entries() {
		c.jobs.WithLabelValues(string(e.Status)).Set(float64(e.Count))
	}
	c.lastSuccess.Set(float64(at.Unix()))
}
