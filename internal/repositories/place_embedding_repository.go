package repositories

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gappy/internal/models/db_models"
)

type PlaceEmbeddingRepository interface {
	UpsertEmbedding(ctx context.Context, embedding db_models.PlaceEmbedding) error
	SimilarityForPlaces(ctx context.Context, vector pgvector.Vector, placeIDs []string) ([]db_models.PlaceSimilarity, error)
}

type placeEmbeddingRepository struct {
	db *gorm.DB
}

func NewPlaceEmbeddingRepository(db *gorm.DB) PlaceEmbeddingRepository {
	return &placeEmbeddingRepository{db: db}
}

func (r *placeEmbeddingRepository) UpsertEmbedding(ctx context.Context, embedding db_models.PlaceEmbedding) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "place_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"embedding"}),
		}).
		Create(&embedding).Error
}

// SimilarityForPlaces scores the given places by cosine similarity; places without an embedding are omitted.
func (r *placeEmbeddingRepository) SimilarityForPlaces(ctx context.Context, vector pgvector.Vector, placeIDs []string) ([]db_models.PlaceSimilarity, error) {
	if len(placeIDs) == 0 {
		return nil, nil
	}

	var results []db_models.PlaceSimilarity
	query := `
        SELECT place_id, (1 - (embedding <=> ?)) AS similarity
        FROM place_embeddings
        WHERE place_id IN ?
        ORDER BY embedding <=> ?
    `
	err := r.db.WithContext(ctx).Raw(query, vector, placeIDs, vector).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
