package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	xhttp "PillarCast/pkg/http"
)

// HTTPServiceBase holds the client and base URL shared by model-service clients.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPServiceBase builds a retrying JSON client for the model service.
func NewHTTPServiceBase(baseURL string, timeout time.Duration, retries int) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPServiceBase{
		baseURL: baseURL,
		client: xhttp.NewClient(
			xhttp.WithTimeout(timeout),
			xhttp.WithRetry(retries, 50*time.Millisecond, 500*time.Millisecond),
		),
	}
}

// PostJSON posts payload to path under baseURL and decodes the JSON reply into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b == nil || b.client == nil || b.baseURL == "" {
		return errors.New("analytics http client not initialized")
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}
