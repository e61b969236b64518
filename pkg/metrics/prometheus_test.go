package metrics

import (
	"testing"

	"PillarCast/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

var (
	_ repository.Metrics = (*Recorder)(nil)
	_ repository.Metrics = Nop{}
)

func TestRecorderCounts(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordFetch("binance", "ok")
	r.RecordFetch("binance", "ok")
	r.RecordFetch("coingecko", "timeout")
	r.RecordCacheLookup(true)
	r.RecordCacheLookup(false)
	r.RecordCacheLookup(false)
	r.RecordPrediction(61.5, 2.4, "Bullish")
	r.RecordPillarScore("technical", 72.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.fetches.WithLabelValues("binance", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetches.WithLabelValues("coingecko", "timeout")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 61.5, testutil.ToFloat64(r.composite))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.categories.WithLabelValues("Bullish")))
	assert.Equal(t, 72.5, testutil.ToFloat64(r.pillarScore.WithLabelValues("technical")))
}
