package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"gappy/internal/models/cache_models"
	"gappy/internal/models/db_models"
	"gappy/internal/models/request_models"
	"gappy/internal/repositories"
	"gappy/pkg/utils"
)

type PlaceIndexServiceInterface interface {
	IndexPlace(ctx context.Context, req request_models.CreatePlaceRequest) (cache_models.Place, error)
}

// PlaceIndexService adds places to the recommendation catalogue and embeds them when a provider is configured.
type PlaceIndexService struct {
	placeRepo     repositories.PlaceRepository
	embeddingRepo repositories.PlaceEmbeddingRepository
	embedder      utils.EmbeddingClientInterface
	logger        *zap.Logger
}

func NewPlaceIndexService(
	placeRepo repositories.PlaceRepository,
	embeddingRepo repositories.PlaceEmbeddingRepository,
	embedder utils.EmbeddingClientInterface,
	logger *zap.Logger,
) PlaceIndexServiceInterface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlaceIndexService{
		placeRepo:     placeRepo,
		embeddingRepo: embeddingRepo,
		embedder:      embedder,
		logger:        logger,
	}
}

// IndexPlace stores the place first. An embedding failure leaves it indexed without a vector.
func (s *PlaceIndexService) IndexPlace(ctx context.Context, req request_models.CreatePlaceRequest) (cache_models.Place, error) {
	name := strings.TrimSpace(req.Name)
	category := strings.ToLower(strings.TrimSpace(req.Category))
	if name == "" || category == "" {
		return cache_models.Place{}, fmt.Errorf("%w: name and category are required", utils.ErrInvalidInput)
	}

	place := &db_models.Place{
		Name:      name,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Category:  category,
		Address:   req.Address,
		Status:    "active",
		Tags:      pq.StringArray(req.Tags),
	}
	id, err := s.placeRepo.CreatePlace(ctx, place)
	if err != nil {
		return cache_models.Place{}, fmt.Errorf("%w: create place: %v", utils.ErrDatabaseError, err)
	}
	place.ID = id

	if s.embedder != nil {
		s.embed(ctx, place, req.Description)
	}
	return toCachePlace(*place), nil
}

func (s *PlaceIndexService) embed(ctx context.Context, place *db_models.Place, description string) {
	parts := []string{place.Name, place.Category}
	if description != "" {
		parts = append(parts, description)
	}
	if len(place.Tags) > 0 {
		parts = append(parts, strings.Join(place.Tags, ", "))
	}

	vector, err := s.embedder.GetEmbedding(ctx, strings.Join(parts, ". "))
	if err != nil {
		s.logger.Warn("place embedding failed", zap.String("place_id", place.ID.String()), zap.Error(err))
		return
	}
	if err := s.embeddingRepo.UpsertEmbedding(ctx, db_models.PlaceEmbedding{PlaceID: place.ID.String(), Embedding: vector}); err != nil {
		s.logger.Warn("store place embedding", zap.String("place_id", place.ID.String()), zap.Error(err))
	}
}
