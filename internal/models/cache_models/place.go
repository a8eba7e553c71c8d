package cache_models

type Place struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Category   string   `json:"category,omitempty"`
	Latitude   float64  `json:"lat"`
	Longitude  float64  `json:"lng"`
	Address    string   `json:"address,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	DistanceKm float64  `json:"distanceKm,omitempty"`
	Score      float64  `json:"score,omitempty"`
}
