package db_models

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

type PlaceEmbedding struct {
	PlaceID   string          `gorm:"primaryKey;column:place_id"`
	Embedding pgvector.Vector `gorm:"type:vector"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
}

// PlaceSimilarity is the scan target of similarity queries.
type PlaceSimilarity struct {
	PlaceID    string
	Similarity float64
}
