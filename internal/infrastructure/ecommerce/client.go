package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/omnisync/backend/internal/domain/shared"
)

// maxResponseSize limits the response body size to prevent memory exhaustion
const maxResponseSize = 10 * 1024 * 1024

// ErrRequestRejected is returned when a marketplace refuses a request with a
// 4xx status other than 429. Repeating the call will not help.
var ErrRequestRejected = shared.NewDomainError("ADAPTER_REQUEST_REJECTED", "Marketplace rejected the request")

// apiClient issues JSON requests to one marketplace
type apiClient struct {
	name       string
	httpClient *http.Client
}

func newAPIClient(name string, cfg ClientConfig) *apiClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &apiClient{
		name:       name,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// do sends the request and returns the response body. Transport failures,
// timeouts, 429 and 5xx responses are reported as shared.ErrAdapterUnavailable.
func (c *apiClient) do(ctx context.Context, method, url string, headers map[string]string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to marshal request: %w", c.name, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, shared.ErrAdapterUnavailable.WithMessage("%s: %v", c.name, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, shared.ErrAdapterUnavailable.WithMessage("%s: failed to read response: %v", c.name, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, shared.ErrAdapterUnavailable.WithMessage("%s: HTTP %d", c.name, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, ErrRequestRejected.WithMessage("%s: HTTP %d", c.name, resp.StatusCode)
	}
	return payload, nil
}
