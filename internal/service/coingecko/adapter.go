package coingecko

import (
	"context"
	"fmt"
	"math"
	"time"

	domsvc "PillarCast/internal/domain/service"
	xhttp "PillarCast/pkg/http"
)

const Name = "coingecko"

var metricNames = []string{
	"sentiment_up_pct",
	"reddit_subscribers",
	"reddit_active_accounts",
	"watchlist_users",
	"market_cap",
	"total_volume",
	"volume_to_mcap",
	"price_change_7d",
	"price_change_30d",
}

// Adapter reads social and fundamental metrics from the CoinGecko coin snapshot.
type Adapter struct {
	baseURL string
	apiKey  string
	coinID  string
	client  *xhttp.Client
}

var _ domsvc.IngestionAdapter = (*Adapter)(nil)

func New(baseURL, apiKey, coinID string, timeout time.Duration) *Adapter {
	return &Adapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		coinID:  coinID,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Metrics() []string {
	out := make([]string, len(metricNames))
	copy(out, metricNames)
	return out
}

type usdValue struct {
	USD *float64 `json:"usd"`
}

type coinSnapshot struct {
	SentimentUp    *float64 `json:"sentiment_votes_up_percentage"`
	WatchlistUsers *float64 `json:"watchlist_portfolio_users"`
	CommunityData  struct {
		RedditSubscribers    *float64 `json:"reddit_subscribers"`
		RedditActiveAccounts *float64 `json:"reddit_accounts_active_48h"`
	} `json:"community_data"`
	MarketData struct {
		MarketCap      usdValue `json:"market_cap"`
		TotalVolume    usdValue `json:"total_volume"`
		PriceChange7d  *float64 `json:"price_change_percentage_7d"`
		PriceChange30d *float64 `json:"price_change_percentage_30d"`
	} `json:"market_data"`
}

func (a *Adapter) Fetch(ctx context.Context, metrics []string) (map[string]float64, error) {
	headers := map[string]string{"Accept": "application/json"}
	if a.apiKey != "" {
		headers["x-cg-demo-api-key"] = a.apiKey
	}
	var snap coinSnapshot
	err := a.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     fmt.Sprintf("%s/coins/%s", a.baseURL, a.coinID),
		Headers: headers,
		QueryParams: map[string][]string{
			"localization":   {"false"},
			"tickers":        {"false"},
			"market_data":    {"true"},
			"community_data": {"true"},
			"developer_data": {"false"},
			"sparkline":      {"false"},
		},
	}, &snap)
	if err != nil {
		return nil, fmt.Errorf("coingecko coin %s: %w", a.coinID, err)
	}

	all := snap.values()
	out := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		if v, ok := all[m]; ok {
			out[m] = v
		}
	}
	return out, nil
}

// values flattens the snapshot, skipping fields the API returned as null.
func (s *coinSnapshot) values() map[string]float64 {
	out := make(map[string]float64, len(metricNames))
	put := func(name string, v *float64) {
		if v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) {
			out[name] = *v
		}
	}
	put("sentiment_up_pct", s.SentimentUp)
	put("watchlist_users", s.WatchlistUsers)
	put("reddit_subscribers", s.CommunityData.RedditSubscribers)
	put("reddit_active_accounts", s.CommunityData.RedditActiveAccounts)
	put("market_cap", s.MarketData.MarketCap.USD)
	put("total_volume", s.MarketData.TotalVolume.USD)
	put("price_change_7d", s.MarketData.PriceChange7d)
	put("price_change_30d", s.MarketData.PriceChange30d)
	if mc, vol := s.MarketData.MarketCap.USD, s.MarketData.TotalVolume.USD; mc != nil && vol != nil && *mc > 0 {
		ratio := *vol / *mc
		put("volume_to_mcap", &ratio)
	}
	return out
}
