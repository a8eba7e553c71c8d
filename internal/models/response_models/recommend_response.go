package response_models

import "gappy/internal/models/cache_models"

const (
	RecommendStatusOK    = "ok"
	RecommendStatusEmpty = "empty"
)

type RecommendResponse struct {
	Status string               `json:"status"`
	Items  []cache_models.Place `json:"items"`
}

type StateSyncResponse struct {
	Synced []string `json:"synced"`
}
