package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"PillarCast/internal/domain/models"
	domsvc "PillarCast/internal/domain/service"
	"PillarCast/internal/services/features"
	xhttp "PillarCast/pkg/http"
)

const (
	Name = "binance"

	defaultInterval = "1d"
	defaultLimit    = 120
)

var metricNames = []string{"rsi", "macd", "macd_hist", "bb_position", "sma_ratio", "volume_ratio"}

// Adapter derives technical metrics from Binance klines.
type Adapter struct {
	baseURL  string
	apiKey   string
	symbol   string
	interval string
	limit    int
	client   *xhttp.Client
}

var _ domsvc.IngestionAdapter = (*Adapter)(nil)

// Option configures the Adapter.
type Option func(*Adapter)

// WithInterval sets the kline interval (e.g. 4h, 1d).
func WithInterval(interval string) Option {
	return func(a *Adapter) { a.interval = interval }
}

// WithLimit sets how many klines are requested.
func WithLimit(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.limit = n
		}
	}
}

// WithClient replaces the HTTP client.
func WithClient(c *xhttp.Client) Option {
	return func(a *Adapter) { a.client = c }
}

func New(baseURL, apiKey, symbol string, timeout time.Duration, opts ...Option) *Adapter {
	a := &Adapter{
		baseURL:  baseURL,
		apiKey:   apiKey,
		symbol:   symbol,
		interval: defaultInterval,
		limit:    defaultLimit,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Metrics() []string {
	out := make([]string, len(metricNames))
	copy(out, metricNames)
	return out
}

// Fetch requests klines and computes the requested indicators. Indicators
// that the returned history cannot support are absent from the result.
func (a *Adapter) Fetch(ctx context.Context, metrics []string) (map[string]float64, error) {
	candles, err := a.klines(ctx)
	if err != nil {
		return nil, err
	}
	all := features.Technical(candles)
	out := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		if v, ok := all[m]; ok {
			out[m] = v
		}
	}
	return out, nil
}

func (a *Adapter) klines(ctx context.Context) ([]models.Candle, error) {
	headers := map[string]string{}
	if a.apiKey != "" {
		headers["X-MBX-APIKEY"] = a.apiKey
	}
	var raw [][]json.RawMessage
	err := a.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     a.baseURL + "/api/v3/klines",
		Headers: headers,
		QueryParams: map[string][]string{
			"symbol":   {a.symbol},
			"interval": {a.interval},
			"limit":    {strconv.Itoa(a.limit)},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("binance klines: %w", err)
	}
	candles := make([]models.Candle, 0, len(raw))
	for i, row := range raw {
		c, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("binance kline %d: %w", i, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// parseKline decodes [openTime, open, high, low, close, volume, ...].
func parseKline(row []json.RawMessage) (models.Candle, error) {
	if len(row) < 6 {
		return models.Candle{}, fmt.Errorf("short row: %d fields", len(row))
	}
	var openMs int64
	if err := json.Unmarshal(row[0], &openMs); err != nil {
		return models.Candle{}, fmt.Errorf("open time: %w", err)
	}
	vals := make([]float64, 5)
	for i := range vals {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = f
	}
	return models.Candle{
		OpenTime: time.UnixMilli(openMs).UTC(),
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, nil
}
