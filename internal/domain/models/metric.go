package models

import "time"

// MetricSample is one raw observation produced by an ingestion adapter.
type MetricSample struct {
	MetricName string    `json:"metric_name"`
	RawValue   float64   `json:"raw_value"`
	Timestamp  time.Time `json:"timestamp"`
}

// NormalizationBounds holds the fitted [Min, Max] range for a metric.
// Min <= Max always holds; Min == Max normalizes to the neutral score.
type NormalizationBounds struct {
	MetricName string  `json:"metric_name"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Static     bool    `json:"static,omitempty"`
}

// NormalizedMetric is a metric mapped onto the 0..100 scale.
type NormalizedMetric struct {
	MetricName string  `json:"metric_name"`
	Score      float64 `json:"score"`
}

// NeutralScore is substituted whenever a value cannot be derived.
const NeutralScore = 50.0

// Candle is an OHLCV bar used to derive technical indicators.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}
