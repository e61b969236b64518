package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshot = `{
  "id": "bitcoin",
  "sentiment_votes_up_percentage": 78.5,
  "watchlist_portfolio_users": 1500000,
  "community_data": {"reddit_subscribers": 5000000, "reddit_accounts_active_48h": null},
  "market_data": {
    "market_cap": {"usd": 1000000000000, "eur": 1},
    "total_volume": {"usd": 25000000000},
    "price_change_percentage_7d": -3.2,
    "price_change_percentage_30d": 11.0
  }
}`

func TestFetchFlattensSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-cg-demo-api-key"))
		assert.Equal(t, "true", r.URL.Query().Get("community_data"))
		_, _ = w.Write([]byte(snapshot))
	}))
	defer srv.Close()

	a := New(srv.URL, "secret", "bitcoin", time.Second)
	out, err := a.Fetch(context.Background(), a.Metrics())
	require.NoError(t, err)

	assert.Equal(t, 78.5, out["sentiment_up_pct"])
	assert.Equal(t, -3.2, out["price_change_7d"])
	assert.InDelta(t, 0.025, out["volume_to_mcap"], 1e-12)
	assert.NotContains(t, out, "reddit_active_accounts", "null fields are absent")
	assert.Len(t, out, 8)
}

func TestFetchOnlyRequested(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(snapshot))
	}))
	defer srv.Close()

	out, err := New(srv.URL, "", "bitcoin", time.Second).Fetch(context.Background(), []string{"market_cap"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"market_cap": 1e12}, out)
}

func TestFetchRateLimitedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", "bitcoin", time.Second).Fetch(context.Background(), metricNames)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
