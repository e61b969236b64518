package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "sqlite", c.Backend.Type)
	assert.Equal(t, "BTCUSDT", c.Asset.Symbol)
	assert.Equal(t, 15*time.Minute, c.Cycle.Interval)
	assert.Equal(t, 30*time.Second, c.Cycle.Timeout)
	assert.Equal(t, 0.40, c.Prediction.FixedWeights.Technical)
	assert.Equal(t, -2.0, c.Prediction.BearishThreshold)
	assert.Equal(t, 5*time.Minute, c.Providers.CoinGecko.CacheTTL)
	assert.Equal(t, "https://api.binance.com", c.Providers.Binance.BaseURL)
	assert.Equal(t, "pillarcast.weights", c.Kafka.WeightsTopic)
}

func TestParseOverrides(t *testing.T) {
	c, err := Parse([]byte(`
environment: production
backend:
  type: clickhouse
providers:
  coingecko:
    api_key: k
    quota_per_minute: 10
normalization:
  static_bounds:
    fear_greed: [0, 100]
scoring:
  pillars:
    social:
      sub_pillars:
        - name: sentiment
          weight: 1
          metrics: {fear_greed: 1}
`))
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, "clickhouse", c.Backend.Type)
	assert.Equal(t, 10, c.Providers.CoinGecko.QuotaPerMinute)
	assert.Equal(t, []float64{0, 100}, c.Normalization.StaticBounds["fear_greed"])
	require.Contains(t, c.Scoring.Pillars, "social")
	assert.Equal(t, 1.0, c.Scoring.Pillars["social"].SubPillars[0].Metrics["fear_greed"])
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"backend":       "environment: x\nbackend: {type: postgres}\n",
		"timeout":       "environment: x\ncycle: {interval: 10s, timeout: 1m}\n",
		"thresholds":    "environment: x\nprediction: {bullish_threshold: -1, bearish_threshold: 1}\n",
		"required key":  "environment: x\nproviders: {coingecko: {required: true}}\n",
		"static bounds": "environment: x\nnormalization: {static_bounds: {rsi: [100, 0]}}\n",
		"kafka brokers": "environment: x\nkafka: {enabled: true}\n",
		"telegram":      "environment: x\ntelegram: {enabled: true}\n",
		"zero quota":    "environment: x\nproviders: {binance: {quota_per_minute: -1}}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := Parse([]byte(doc))
			require.NoError(t, err)
			assert.Error(t, c.Validate())
		})
	}
}

func TestDisabledProviderSkipsValidation(t *testing.T) {
	c, err := Parse([]byte("environment: x\nproviders: {coingecko: {required: true, disabled: true}}\n"))
	require.NoError(t, err)
	assert.NoError(t, c.Validate())
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("SYMBOL", "ETHUSDT")
	t.Setenv("PORT", "9999")

	c, err := Parse([]byte("environment: x\n"))
	require.NoError(t, err)
	c.applyEnv()

	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "ETHUSDT", c.Asset.Symbol)
	assert.Equal(t, 9999, c.Server.Port)
}
