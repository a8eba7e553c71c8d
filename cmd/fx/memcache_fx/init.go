package memcache_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gappy/internal/config"
	"gappy/internal/repositories"
	mem "gappy/pkg/memcache"
)

var Module = fx.Provide(provideStore, provideNamespacedStorage)

func provideStore(cfg *config.Config, db *gorm.DB, logger *zap.Logger) mem.Store {
	if cfg.StorageBackend == config.StorageBackendPostgres {
		logger.Info("edge cache storage: postgres")
		return repositories.NewKVRepository(db)
	}
	logger.Info("edge cache storage: memory")
	return mem.NewMemoryStore()
}

func provideNamespacedStorage(store mem.Store, logger *zap.Logger) *mem.NamespacedStorage {
	return mem.NewNamespacedStorage(store, logger)
}
