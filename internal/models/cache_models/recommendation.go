package cache_models

import "time"

type RecommendationStatus string

const (
	RecommendationIdle    RecommendationStatus = "idle"
	RecommendationLoading RecommendationStatus = "loading"
	RecommendationReady   RecommendationStatus = "ready"
	RecommendationEmpty   RecommendationStatus = "empty"
	RecommendationError   RecommendationStatus = "error"
)

type RecommendationState struct {
	Status    RecommendationStatus `json:"status"`
	Places    []Place              `json:"places"`
	UpdatedAt *time.Time           `json:"updatedAt,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// RecommendationKey identifies one orchestrator entry.
type RecommendationKey struct {
	AccountID      string
	TravelTypeCode string
}

func (k RecommendationKey) String() string {
	return k.AccountID + ":" + k.TravelTypeCode
}
