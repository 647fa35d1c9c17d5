package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "apcprofiler"

// Cycle outcomes
const (
	OutcomeSkippedNoFeeds  = "skipped_no_feeds"
	OutcomeSkippedUpToDate = "skipped_up_to_date"
	OutcomeNothingToSend   = "nothing_to_send"
	OutcomePublished       = "published"
	OutcomeFailed          = "failed"
)

// Feed message statuses
const (
	FeedStatusValid   = "valid"
	FeedStatusMissing = "missing"
	FeedStatusInvalid = "invalid"
)

// Vehicle exclusion reasons
const (
	ReasonNoPassengerCounter = "no_passenger_counter"
	ReasonMissingCapacity    = "missing_capacity"
	ReasonMissingProfile     = "missing_profile"
)

// Metrics contains the profiler metrics
type Metrics struct {
	CyclesTotal        *prometheus.CounterVec
	FeedMessagesTotal  *prometheus.CounterVec
	VehiclesExcluded   *prometheus.CounterVec
	VehiclesMapped     prometheus.Gauge
	ModelsNeeded       prometheus.Gauge
	ModelsMissing      prometheus.Gauge
	ProfilesComputed   prometheus.Counter
	ProfilesAbsent     prometheus.Counter
	OracleDuration     prometheus.Histogram
	SnapshotsPublished *prometheus.CounterVec
	HealthCheckStatus  prometheus.Gauge
	NATSConnected      prometheus.Gauge
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cycle",
				Name:      "total",
				Help:      "Profiling cycles by outcome",
			},
			[]string{"outcome"},
		),

		FeedMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "feed",
				Name:      "messages_total",
				Help:      "Latest catalogue messages per feed by validation status",
			},
			[]string{"feed", "status"},
		),

		VehiclesExcluded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "vehicles",
				Name:      "excluded_total",
				Help:      "Vehicles left out of the snapshot by feed and reason",
			},
			[]string{"feed", "reason"},
		),

		VehiclesMapped: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "vehicles",
				Name:      "mapped",
				Help:      "Vehicles mapped to a capacity model in the last cycle",
			},
		),

		ModelsNeeded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "models",
				Name:      "needed",
				Help:      "Distinct capacity models referenced by the catalogues",
			},
		),

		ModelsMissing: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "models",
				Name:      "missing",
				Help:      "Capacity models without a cached profile",
			},
		),

		ProfilesComputed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "profiles",
				Name:      "computed_total",
				Help:      "Profiles produced by the oracle",
			},
		),

		ProfilesAbsent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "profiles",
				Name:      "absent_total",
				Help:      "Requested profiles the oracle did not produce",
			},
		),

		OracleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "oracle",
				Name:      "duration_seconds",
				Help:      "Duration of one batched oracle call",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
			},
		),

		SnapshotsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "snapshots",
				Name:      "published_total",
				Help:      "Profile collections published",
			},
			[]string{"subject"},
		),

		HealthCheckStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.CyclesTotal,
		c.FeedMessagesTotal,
		c.VehiclesExcluded,
		c.VehiclesMapped,
		c.ModelsNeeded,
		c.ModelsMissing,
		c.ProfilesComputed,
		c.ProfilesAbsent,
		c.OracleDuration,
		c.SnapshotsPublished,
		c.HealthCheckStatus,
		c.NATSConnected,
	}
}

// Record methods accept a nil receiver so callers without metrics need no guards.

// RecordCycle counts a finished cycle
func (c *Metrics) RecordCycle(outcome string) {
	if c == nil {
		return
	}
	c.CyclesTotal.WithLabelValues(outcome).Inc()
}

// RecordFeedMessage counts the latest message of a feed by status
func (c *Metrics) RecordFeedMessage(feed, status string) {
	if c == nil {
		return
	}
	c.FeedMessagesTotal.WithLabelValues(feed, status).Inc()
}

// RecordVehiclesExcluded counts vehicles dropped from the snapshot
func (c *Metrics) RecordVehiclesExcluded(feed, reason string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.VehiclesExcluded.WithLabelValues(feed, reason).Add(float64(n))
}

// RecordReconciliation updates the model gauges
func (c *Metrics) RecordReconciliation(vehicles, needed, missing int) {
	if c == nil {
		return
	}
	c.VehiclesMapped.Set(float64(vehicles))
	c.ModelsNeeded.Set(float64(needed))
	c.ModelsMissing.Set(float64(missing))
}

// RecordOracleRun records one oracle call and its yield
func (c *Metrics) RecordOracleRun(duration time.Duration, computed, absent int) {
	if c == nil {
		return
	}
	c.OracleDuration.Observe(duration.Seconds())
	c.ProfilesComputed.Add(float64(computed))
	c.ProfilesAbsent.Add(float64(absent))
}

// RecordSnapshotPublished counts a published snapshot
func (c *Metrics) RecordSnapshotPublished(subject string) {
	if c == nil {
		return
	}
	c.SnapshotsPublished.WithLabelValues(subject).Inc()
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(healthy bool) {
	if c == nil {
		return
	}
	c.HealthCheckStatus.Set(boolToFloat(healthy))
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	if c == nil {
		return
	}
	c.NATSConnected.Set(boolToFloat(connected))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
