package recommend_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gappy/internal/config"
	"gappy/internal/repositories"
	"gappy/internal/services"
	"gappy/pkg/utils"
)

var Module = fx.Provide(
	providePlaceRepo,
	provideAccountStateRepo,
	provideRecommendService,
	provideStateSyncService,
	providePlaceIndexService,
)

func providePlaceRepo(db *gorm.DB) repositories.PlaceRepository {
	return repositories.NewPlaceRepository(db)
}

func provideAccountStateRepo(db *gorm.DB) repositories.AccountStateRepository {
	return repositories.NewAccountStateRepository(db)
}

func provideRecommendService(
	cfg *config.Config,
	placeRepo repositories.PlaceRepository,
	embeddingRepo repositories.PlaceEmbeddingRepository,
	embedder utils.EmbeddingClientInterface,
	logger *zap.Logger,
) services.RecommendServiceInterface {
	return services.NewRecommendService(placeRepo, embeddingRepo, embedder, cfg.RecommendRadiusKm, cfg.RecommendLimit, logger)
}

func provideStateSyncService(stateRepo repositories.AccountStateRepository, logger *zap.Logger) services.StateSyncServiceInterface {
	return services.NewStateSyncService(stateRepo, logger)
}

func providePlaceIndexService(
	placeRepo repositories.PlaceRepository,
	embeddingRepo repositories.PlaceEmbeddingRepository,
	embedder utils.EmbeddingClientInterface,
	logger *zap.Logger,
) services.PlaceIndexServiceInterface {
	return services.NewPlaceIndexService(placeRepo, embeddingRepo, embedder, logger)
}
