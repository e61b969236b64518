package feargreed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	domsvc "PillarCast/internal/domain/service"
	xhttp "PillarCast/pkg/http"
)

const (
	Name   = "feargreed"
	Metric = "fear_greed"
)

// Adapter reads the alternative.me Crypto Fear & Greed index (0..100).
type Adapter struct {
	baseURL string
	client  *xhttp.Client
}

var _ domsvc.IngestionAdapter = (*Adapter)(nil)

func New(baseURL string, timeout time.Duration) *Adapter {
	return &Adapter{baseURL: baseURL, client: xhttp.NewClient(xhttp.WithTimeout(timeout))}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Metrics() []string { return []string{Metric} }

type indexResponse struct {
	Data []struct {
		Value     string `json:"value"`
		Timestamp string `json:"timestamp"`
	} `json:"data"`
}

func (a *Adapter) Fetch(ctx context.Context, metrics []string) (map[string]float64, error) {
	wanted := false
	for _, m := range metrics {
		if m == Metric {
			wanted = true
		}
	}
	if !wanted {
		return map[string]float64{}, nil
	}

	var resp indexResponse
	err := a.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         a.baseURL + "/fng/",
		QueryParams: map[string][]string{"limit": {"1"}},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fear greed index: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("fear greed index: empty data")
	}
	v, err := strconv.ParseFloat(resp.Data[0].Value, 64)
	if err != nil {
		return nil, fmt.Errorf("fear greed value %q: %w", resp.Data[0].Value, err)
	}
	return map[string]float64{Metric: v}, nil
}
