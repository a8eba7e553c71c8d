package embedding_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gappy/internal/config"
	"gappy/internal/repositories"
	"gappy/pkg/utils"
)

var Module = fx.Provide(
	provideEmbeddingRepo, provideEmbeddingClient)

func provideEmbeddingRepo(db *gorm.DB) repositories.PlaceEmbeddingRepository {
	return repositories.NewPlaceEmbeddingRepository(db)
}

// provideEmbeddingClient yields a nil client when no provider is configured.
func provideEmbeddingClient(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (utils.EmbeddingClientInterface, error) {
	client, err := utils.NewEmbeddingClient(context.Background(), cfg.EmbeddingProvider, cfg.EmbeddingAPIKey(), cfg.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	if client == nil {
		logger.Info("embedding re-rank disabled")
		return nil, nil
	}

	logger.Info("embedding re-rank enabled", zap.String("provider", cfg.EmbeddingProvider))
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}
