package request_models

type CreatePlaceRequest struct {
	Name        string   `json:"name" binding:"required"`
	Latitude    float64  `json:"lat" binding:"latitude"`
	Longitude   float64  `json:"lng" binding:"longitude"`
	Category    string   `json:"category" binding:"required"`
	Address     string   `json:"address"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
}
