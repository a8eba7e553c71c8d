package request_models

import (
	"encoding/json"
	"fmt"

	"gappy/internal/models/cache_models"
	"gappy/pkg/utils"
)

// StateSyncRequest is the body of POST /api/account/state-sync.
type StateSyncRequest struct {
	Resources StateSyncResources `json:"resources"`
}

// StateSyncResources has one typed slot per known resource; any other key is rejected.
type StateSyncResources struct {
	Recommendation *RecommendationResource `json:"recommendation,omitempty"`
}

func (r *StateSyncResources) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for name, body := range raw {
		switch cache_models.SyncResource(name) {
		case cache_models.SyncResourceRecommendation:
			var rec RecommendationResource
			if err := json.Unmarshal(body, &rec); err != nil {
				return err
			}
			r.Recommendation = &rec
		default:
			return fmt.Errorf("%w: %s", utils.ErrUnsupportedResource, name)
		}
	}
	return nil
}

type RecommendationResource struct {
	TravelType cache_models.StoredTravelType `json:"travelType"`
	Places     []cache_models.Place          `json:"places"`
	Answers    cache_models.QuizAnswers      `json:"answers"`
	Timestamp  int64                         `json:"timestamp"`
}
