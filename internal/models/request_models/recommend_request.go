package request_models

import "gappy/internal/models/cache_models"

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RecommendRequest is the body of POST /api/recommend.
type RecommendRequest struct {
	TravelTypeCode string  `json:"travelTypeCode" binding:"required"`
	Location       *LatLng `json:"location"`
	Limit          int     `json:"limit,omitempty"`
}

// EdgeRecommendationRequest asks the edge cache for recommendations of a travel type.
type EdgeRecommendationRequest struct {
	TravelType cache_models.StoredTravelType `json:"travelType"`
	Force      bool                          `json:"force,omitempty"`
}
