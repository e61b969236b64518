package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetches       *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	rateLimitWait *prometheus.HistogramVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	pillarScore   *prometheus.GaugeVec
	composite     prometheus.Gauge
	predictedMove prometheus.Gauge
	categories    *prometheus.CounterVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pillarcast_adapter_fetches_total",
				Help: "Adapter calls by result (ok, error, timeout)",
			},
			[]string{"adapter", "result"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pillarcast_response_cache_lookups_total",
				Help: "Response cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		rateLimitWait: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pillarcast_rate_limit_wait_seconds",
				Help:    "Time spent waiting for a provider call slot",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60},
			},
			[]string{"provider"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pillarcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pillarcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		pillarScore: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pillarcast_pillar_score",
				Help: "Latest pillar score (0-100)",
			},
			[]string{"pillar"},
		),
		composite: f.NewGauge(prometheus.GaugeOpts{
			Name: "pillarcast_composite_score",
			Help: "Latest composite score (0-100)",
		}),
		predictedMove: f.NewGauge(prometheus.GaugeOpts{
			Name: "pillarcast_predicted_move_percent",
			Help: "Latest predicted percentage move",
		}),
		categories: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pillarcast_predictions_total",
				Help: "Persisted predictions by category",
			},
			[]string{"category"},
		),
	}
}

func (r *Recorder) RecordFetch(adapter, result string) {
	r.fetches.WithLabelValues(adapter, result).Inc()
}

func (r *Recorder) RecordCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheLookups.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordRateLimitWait(provider string, seconds float64) {
	r.rateLimitWait.WithLabelValues(provider).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordPillarScore(pillar string, value float64) {
	r.pillarScore.WithLabelValues(pillar).Set(value)
}

func (r *Recorder) RecordPrediction(composite, move float64, category string) {
	r.composite.Set(composite)
	r.predictedMove.Set(move)
	r.categories.WithLabelValues(category).Inc()
}
