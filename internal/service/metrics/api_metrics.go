package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pillarcast",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of prediction read endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pillarcast",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by prediction read endpoint",
		},
		[]string{"endpoint"},
	)

	StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pillarcast",
			Subsystem: "api",
			Name:      "stream_clients",
			Help:      "Connected websocket prediction stream clients",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, StreamClients)
	})
}
