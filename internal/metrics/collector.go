// Package metrics exposes prometheus counters for the tracking and reward
// pipeline. A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application.
type Collector struct {
	registry *prometheus.Registry

	RewardsGranted    prometheus.Counter
	ScoringFailures   prometheus.Counter
	ScorerInFlight    prometheus.Gauge
	UsersTracked      prometheus.Counter
	TrackingFailures  prometheus.Counter
	RewardComputation prometheus.Histogram
}

// NewCollector creates a collector with its own registry under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		RewardsGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_granted_total",
			Help:      "Total number of rewards appended to user ledgers",
		}),
		ScoringFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scoring_failures_total",
			Help:      "Scorer calls that failed and degraded to zero points",
		}),
		ScorerInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scorer_in_flight",
			Help:      "Scorer calls currently holding an admission permit",
		}),
		UsersTracked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_tracked_total",
			Help:      "Users whose current position was recorded",
		}),
		TrackingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracking_failures_total",
			Help:      "Users whose position update was skipped this cycle",
		}),
		RewardComputation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reward_computation_seconds",
			Help:      "Time spent computing rewards for one user",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	c.registry.MustRegister(
		c.RewardsGranted,
		c.ScoringFailures,
		c.ScorerInFlight,
		c.UsersTracked,
		c.TrackingFailures,
		c.RewardComputation,
	)
	return c
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RewardGranted() {
	if c == nil {
		return
	}
	c.RewardsGranted.Inc()
}

func (c *Collector) ScoringFailed() {
	if c == nil {
		return
	}
	c.ScoringFailures.Inc()
}

// ScorerEntered marks a permit acquired; the returned func marks it released.
func (c *Collector) ScorerEntered() func() {
	if c == nil {
		return func() {}
	}
	c.ScorerInFlight.Inc()
	return c.ScorerInFlight.Dec
}

func (c *Collector) UserTracked() {
	if c == nil {
		return
	}
	c.UsersTracked.Inc()
}

func (c *Collector) TrackingFailed() {
	if c == nil {
		return
	}
	c.TrackingFailures.Inc()
}

// ObserveComputation records how long a reward computation took.
func (c *Collector) ObserveComputation(d time.Duration) {
	if c == nil {
		return
	}
	c.RewardComputation.Observe(d.Seconds())
}
