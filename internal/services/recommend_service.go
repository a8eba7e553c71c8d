package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"gappy/internal/models/cache_models"
	"gappy/internal/models/db_models"
	"gappy/internal/models/request_models"
	"gappy/internal/models/response_models"
	"gappy/internal/repositories"
	"gappy/pkg/utils"
)

const (
	maxRecommendLimit      = 100
	maxRecommendCandidates = 500
)

type RecommendServiceInterface interface {
	Recommend(ctx context.Context, req request_models.RecommendRequest) (response_models.RecommendResponse, error)
}

type RecommendService struct {
	placeRepo     repositories.PlaceRepository
	embeddingRepo repositories.PlaceEmbeddingRepository
	embedder      utils.EmbeddingClientInterface
	radiusKm      float64
	defaultLimit  int
	logger        *zap.Logger
}

// NewRecommendService builds the ranking service. embedder may be nil, which disables re-ranking.
func NewRecommendService(
	placeRepo repositories.PlaceRepository,
	embeddingRepo repositories.PlaceEmbeddingRepository,
	embedder utils.EmbeddingClientInterface,
	radiusKm float64,
	defaultLimit int,
	logger *zap.Logger,
) RecommendServiceInterface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecommendService{
		placeRepo:     placeRepo,
		embeddingRepo: embeddingRepo,
		embedder:      embedder,
		radiusKm:      radiusKm,
		defaultLimit:  defaultLimit,
		logger:        logger,
	}
}

func (s *RecommendService) Recommend(ctx context.Context, req request_models.RecommendRequest) (response_models.RecommendResponse, error) {
	profile, ok := LookupTravelType(req.TravelTypeCode)
	if !ok {
		return response_models.RecommendResponse{}, utils.ErrUnknownTravelType
	}
	if req.Location == nil {
		return response_models.RecommendResponse{}, utils.ErrMissingLocation
	}

	limit := req.Limit
	if limit <= 0 || limit > maxRecommendLimit {
		limit = s.defaultLimit
	}
	candidateLimit := limit * 10
	if candidateLimit > maxRecommendCandidates {
		candidateLimit = maxRecommendCandidates
	}

	lat, lng := req.Location.Lat, req.Location.Lng
	places, err := s.placeRepo.ListNearest(ctx, lat, lng, s.radiusKm, candidateLimit)
	if err != nil {
		return response_models.RecommendResponse{}, fmt.Errorf("%w: list places: %v", utils.ErrDatabaseError, err)
	}

	scored := make([]cache_models.Place, 0, len(places))
	for _, p := range places {
		distance := utils.HaversineKm(lat, lng, p.Latitude, p.Longitude)
		if distance > s.radiusKm {
			continue
		}
		item := toCachePlace(p)
		item.DistanceKm = distance
		item.Score = 0.6*categoryAffinity(profile, p.Category) + 0.4*(1-distance/s.radiusKm)
		scored = append(scored, item)
	}

	if len(scored) > 0 && s.embedder != nil {
		s.rerankBySimilarity(ctx, profile, scored)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].DistanceKm < scored[j].DistanceKm
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	if len(scored) == 0 {
		return response_models.RecommendResponse{Status: response_models.RecommendStatusEmpty, Items: []cache_models.Place{}}, nil
	}
	return response_models.RecommendResponse{Status: response_models.RecommendStatusOK, Items: scored}, nil
}

// rerankBySimilarity blends embedding similarity into the score; failures keep the base ranking.
func (s *RecommendService) rerankBySimilarity(ctx context.Context, profile TravelTypeProfile, places []cache_models.Place) {
	vector, err := s.embedder.GetEmbedding(ctx, profile.Name+". "+profile.Description)
	if err != nil {
		s.logger.Warn("travel type embedding failed", zap.String("travel_type", profile.Code), zap.Error(err))
		return
	}

	ids := make([]string, 0, len(places))
	for _, p := range places {
		ids = append(ids, p.ID)
	}
	similarities, err := s.embeddingRepo.SimilarityForPlaces(ctx, vector, ids)
	if err != nil {
		s.logger.Warn("place similarity query failed", zap.Error(err))
		return
	}

	byID := make(map[string]float64, len(similarities))
	for _, sim := range similarities {
		byID[sim.PlaceID] = sim.Similarity
	}
	// places without an embedding count as dissimilar
	for i := range places {
		places[i].Score = 0.7*places[i].Score + 0.3*byID[places[i].ID]
	}
}

func categoryAffinity(profile TravelTypeProfile, category string) float64 {
	weights := []float64{1.0, 0.7, 0.4}
	for i, c := range profile.Categories {
		if c == category && i < len(weights) {
			return weights[i]
		}
	}
	return 0.1
}

func toCachePlace(p db_models.Place) cache_models.Place {
	return cache_models.Place{
		ID:        p.ID.String(),
		Name:      p.Name,
		Category:  p.Category,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Address:   p.Address,
		Tags:      []string(p.Tags),
	}
}
