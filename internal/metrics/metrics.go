package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "animeschedule"

// Metrics holds counters and histograms updated directly by the service
// layer and the AniList client. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Predictions     *prometheus.CounterVec
	PredictionErrs  prometheus.Counter
	AniListRequests *prometheus.CounterVec
	AniListDuration *prometheus.HistogramVec
	CacheLookups    *prometheus.CounterVec
	SyncRuns        *prometheus.CounterVec
	SyncDuration    prometheus.Histogram
}

// New creates and registers metrics with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "predict",
			Name:      "predictions_total",
			Help:      "Completion predictions computed, by confidence.",
		}, []string{"confidence"}),
		PredictionErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "predict",
			Name:      "malformed_dates_total",
			Help:      "Predictions rejected because of an unparsable end date.",
		}),
		AniListRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "anilist",
			Name:      "requests_total",
			Help:      "AniList GraphQL requests, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		AniListDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "anilist",
			Name:      "request_duration_seconds",
			Help:      "Duration of AniList requests including rate-limit wait.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"operation"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Response cache lookups, by result (hit or miss).",
		}, []string{"result"}),
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Season sync runs, by outcome.",
		}, []string{"outcome"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Duration of season sync runs.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),
	}

	reg.MustRegister(
		m.Predictions,
		m.PredictionErrs,
		m.AniListRequests,
		m.AniListDuration,
		m.CacheLookups,
		m.SyncRuns,
		m.SyncDuration,
	)

	return m
}

// ObservePrediction counts a prediction with the given confidence.
func (m *Metrics) ObservePrediction(confidence string) {
	if m == nil {
		return
	}
	m.Predictions.WithLabelValues(confidence).Inc()
}

// ObserveMalformedDate counts a rejected prediction.
func (m *Metrics) ObserveMalformedDate() {
	if m == nil {
		return
	}
	m.PredictionErrs.Inc()
}

// ObserveRequest records one AniList request.
func (m *Metrics) ObserveRequest(operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.AniListRequests.WithLabelValues(operation, outcome).Inc()
	m.AniListDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveCache records a cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveSync records a finished season sync.
func (m *Metrics) ObserveSync(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.SyncRuns.WithLabelValues(outcome).Inc()
	m.SyncDuration.Observe(elapsed.Seconds())
}
