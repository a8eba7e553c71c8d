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
	"gappy/pkg/utils"
)

type RecommendationFetchRequest struct {
	Credentials    cache_models.AccountCredentials
	TravelTypeCode string
	Lat            float64
	Lng            float64
}

type RecommendationFetcher interface {
	FetchRecommendations(ctx context.Context, req RecommendationFetchRequest) (response_models.RecommendResponse, error)
}

// HTTPRecommendationFetcher calls POST /api/recommend on the upstream service.
type HTTPRecommendationFetcher struct {
	baseURL string
	http    *http.Client
}

func NewHTTPRecommendationFetcher(baseURL string, timeout time.Duration) *HTTPRecommendationFetcher {
	return &HTTPRecommendationFetcher{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (f *HTTPRecommendationFetcher) FetchRecommendations(ctx context.Context, req RecommendationFetchRequest) (response_models.RecommendResponse, error) {
	var out response_models.RecommendResponse

	body, err := json.Marshal(request_models.RecommendRequest{
		TravelTypeCode: req.TravelTypeCode,
		Location:       &request_models.LatLng{Lat: req.Lat, Lng: req.Lng},
	})
	if err != nil {
		return out, fmt.Errorf("encode recommend request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/api/recommend", bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("build recommend request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	setAccountHeaders(httpReq, req.Credentials)

	resp, err := f.http.Do(httpReq)
	if err != nil {
		return out, fmt.Errorf("recommend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		io.Copy(io.Discard, resp.Body)
		return out, fmt.Errorf("recommend request: %w", &UpstreamStatusError{StatusCode: resp.StatusCode})
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode recommend response: %w", err)
	}
	return out, nil
}

func setAccountHeaders(req *http.Request, creds cache_models.AccountCredentials) {
	if creds.AccountID != "" {
		req.Header.Set(utils.AccountIDHeader, creds.AccountID)
	}
	if creds.AccountToken != "" {
		req.Header.Set(utils.AccountTokenHeader, creds.AccountToken)
	}
	if creds.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	}
}
