package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gappy/internal/models/cache_models"
	"gappy/internal/models/request_models"
	"gappy/internal/models/response_models"
)

// UpstreamStatusError reports a non-2xx answer from the upstream service.
type UpstreamStatusError struct {
	StatusCode int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.StatusCode)
}

type StateSyncClient interface {
	PushState(ctx context.Context, creds cache_models.AccountCredentials, req request_models.StateSyncRequest) (response_models.StateSyncResponse, error)
}

// HTTPStateSyncClient calls POST /api/account/state-sync on the upstream service.
type HTTPStateSyncClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPStateSyncClient(baseURL string, timeout time.Duration) *HTTPStateSyncClient {
	return &HTTPStateSyncClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPStateSyncClient) PushState(ctx context.Context, creds cache_models.AccountCredentials, req request_models.StateSyncRequest) (response_models.StateSyncResponse, error) {
	var out response_models.StateSyncResponse

	body, err := json.Marshal(req)
	if err != nil {
		return out, fmt.Errorf("encode state sync request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/account/state-sync", bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("build state sync request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	setAccountHeaders(httpReq, creds)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return out, fmt.Errorf("state sync request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, resp.Body)
		return out, &UpstreamStatusError{StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode state sync response: %w", err)
	}
	return out, nil
}
