package edge_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"gappy/internal/config"
	"gappy/internal/services"
	mem "gappy/pkg/memcache"
)

var Module = fx.Options(
	fx.Provide(
		services.NewQuizEvents,
		provideQuizStore,
		provideFetcher,
		provideOrchestrator,
		provideStateSyncClient,
		provideStateSyncQueue,
		services.NewEdgeService,
	),
	fx.Invoke(registerCacheSweeper),
)

func provideQuizStore(cfg *config.Config, storage *mem.NamespacedStorage, events *services.QuizEvents, logger *zap.Logger) services.QuizStore {
	return services.NewQuizResultStore(storage, events, cfg.QuizResultTTL, logger)
}

func provideFetcher(cfg *config.Config) services.RecommendationFetcher {
	return services.NewHTTPRecommendationFetcher(cfg.UpstreamURL(), cfg.UpstreamTimeout)
}

func provideOrchestrator(cfg *config.Config, fetcher services.RecommendationFetcher, quizStore services.QuizStore, logger *zap.Logger) *services.RecommendationOrchestrator {
	return services.NewRecommendationOrchestrator(fetcher, quizStore, cfg.RecommendationCacheTTL, logger)
}

func provideStateSyncClient(cfg *config.Config) services.StateSyncClient {
	return services.NewHTTPStateSyncClient(cfg.UpstreamURL(), cfg.UpstreamTimeout)
}

func provideStateSyncQueue(lc fx.Lifecycle, client services.StateSyncClient, quizStore services.QuizStore, storage *mem.NamespacedStorage, logger *zap.Logger) *services.StateSyncQueue {
	queue := services.NewStateSyncQueue(client, quizStore, storage, logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				queue.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				logger.Warn("background state sync still running at shutdown")
				return ctx.Err()
			}
		},
	})
	return queue
}

func registerCacheSweeper(lc fx.Lifecycle, cfg *config.Config, orchestrator *services.RecommendationOrchestrator, queue *services.StateSyncQueue, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				services.RunSweepers(ctx, cfg.CacheSweepInterval, logger.Named("sweeper"), orchestrator, queue)
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			<-done
			return nil
		},
	})
}
