package db_models

import "github.com/lib/pq"

// Place is a recommendable spot (shop, cafe, experience) around the service area.
type Place struct {
	BaseModel
	Name      string  `gorm:"not null"`
	Latitude  float64 `gorm:"index:idx_places_lat_lng"`
	Longitude float64 `gorm:"index:idx_places_lat_lng"`
	Category  string  `gorm:"index"`
	Address   string
	Status    string         `gorm:"default:'active'"`
	Tags      pq.StringArray `gorm:"type:text[]"`
}
