package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/balanceboard/internal/adapters/http/api"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// sample fetches /api/sample. It returns ok=false when the service has no
// reading yet.
func (c *HTTPClient) sample(ctx context.Context) (api.SampleResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/sample", http.NoBody)
	if err != nil {
		return api.SampleResponse{}, false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return api.SampleResponse{}, false, fmt.Errorf("request sample: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return api.SampleResponse{}, false, fmt.Errorf("read sample: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusServiceUnavailable:
		return api.SampleResponse{}, false, nil
	default:
		return api.SampleResponse{}, false, fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, body)
	}

	var out api.SampleResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return api.SampleResponse{}, false, fmt.Errorf("decode sample: %w", err)
	}
	return out, true, nil
}
