// Package metrics exposes Prometheus counters for the job lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the coordinator's Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	jobsCreated   prometheus.Counter
	jobsDeduped   prometheus.Counter
	jobsClaimed   prometheus.Counter
	jobsCompleted prometheus.Counter
	jobsFailed    prometheus.Counter
	jobsSwept     prometheus.Counter
	jobsExpired   prometheus.Counter

	probeLatency prometheus.Histogram
}

// NewCollector creates and registers the coordinator's metrics on a private
// registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_jobs_created_total",
			Help: "Total number of new jobs created by submissions",
		}),
		jobsDeduped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_jobs_deduplicated_total",
			Help: "Total number of submissions resolved to an existing job",
		}),
		jobsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_jobs_claimed_total",
			Help: "Total number of successful job claims",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_jobs_completed_total",
			Help: "Total number of jobs completed successfully",
		}),
		jobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_jobs_failed_total",
			Help: "Total number of jobs reported failed by runners",
		}),
		jobsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_jobs_swept_total",
			Help: "Total number of jobs failed by the stale-heartbeat sweeper",
		}),
		jobsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coordinator_jobs_expired_total",
			Help: "Total number of cached results invalidated by the freshness probe",
		}),
		probeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "coordinator_freshness_probe_seconds",
			Help:    "Freshness probe latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	c.registry.MustRegister(
		c.jobsCreated,
		c.jobsDeduped,
		c.jobsClaimed,
		c.jobsCompleted,
		c.jobsFailed,
		c.jobsSwept,
		c.jobsExpired,
		c.probeLatency,
	)

	return c
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordCreated records a new job creation
func (c *Collector) RecordCreated() {
	c.jobsCreated.Inc()
}

// RecordDeduplicated records a submission resolved to an existing job
func (c *Collector) RecordDeduplicated() {
	c.jobsDeduped.Inc()
}

// RecordClaimed records a successful claim
func (c *Collector) RecordClaimed() {
	c.jobsClaimed.Inc()
}

// RecordCompleted records a successful completion
func (c *Collector) RecordCompleted() {
	c.jobsCompleted.Inc()
}

// RecordFailed records a runner-reported failure
func (c *Collector) RecordFailed() {
	c.jobsFailed.Inc()
}

// RecordSwept records jobs failed by the stale sweeper
func (c *Collector) RecordSwept(count int64) {
	c.jobsSwept.Add(float64(count))
}

// RecordExpired records a cached result invalidated by the freshness probe
func (c *Collector) RecordExpired() {
	c.jobsExpired.Inc()
}

// ObserveProbe records the latency of one freshness probe pass
func (c *Collector) ObserveProbe(seconds float64) {
	c.probeLatency.Observe(seconds)
}
