package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels a clean run.
	OutcomeSuccess = "success"
	// OutcomePartial labels an aggregation that rejected at least one record.
	OutcomePartial = "partial"
	// OutcomeError labels a failed refresh (data source or decode issues).
	OutcomeError = "error"
)

var (
	aggregationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "anomaly_timeline",
			Name:      "aggregations_total",
			Help:      "Total number of timeline aggregations, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	aggregationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "anomaly_timeline",
			Name:      "aggregation_seconds",
			Help:      "Timeline aggregation latency in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	recordsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "anomaly_timeline",
			Name:      "records_rejected_total",
			Help:      "Anomaly records excluded from the timeline, partitioned by reason.",
		},
		[]string{"reason"},
	)

	refreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "anomaly_timeline",
			Name:      "refresh_total",
			Help:      "Snapshot refreshes against the anomaly-graph source, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	viewsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "anomaly_timeline",
			Name:      "views_active",
			Help:      "Currently open alerts views.",
		},
	)

	selectionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "anomaly_timeline",
			Name:      "selection_transitions_total",
			Help:      "Selection state transitions requested by views.",
		},
		[]string{"transition"},
	)
)

// Register attaches timeline collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		aggregationsTotal,
		aggregationDurationSeconds,
		recordsRejectedTotal,
		refreshTotal,
		viewsActive,
		selectionTransitionsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAggregation records an aggregation duration and whether any records were rejected.
func ObserveAggregation(duration time.Duration, rejected int) {
	label := OutcomeSuccess
	if rejected > 0 {
		label = OutcomePartial
	}
	aggregationsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	aggregationDurationSeconds.Observe(duration.Seconds())
}

// RecordRejected counts one excluded record.
func RecordRejected(reason string) {
	recordsRejectedTotal.WithLabelValues(reason).Inc()
}

// ObserveRefresh counts a snapshot refresh outcome.
func ObserveRefresh(outcome string) {
	if outcome != OutcomeError {
		outcome = OutcomeSuccess
	}
	refreshTotal.WithLabelValues(outcome).Inc()
}

// ViewOpened increments the active views gauge.
func ViewOpened() { viewsActive.Inc() }

// ViewClosed decrements the active views gauge.
func ViewClosed() { viewsActive.Dec() }

// SelectionTransition counts a requested transition such as "select_date".
func SelectionTransition(name string) {
	selectionTransitionsTotal.WithLabelValues(name).Inc()
}
