package infra

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"gappy/internal/models/db_models"
)

func InitPostgresql(dsn string, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	logger.Info("connected to postgres")
	return db, nil
}

// Migrate creates the pgvector extension and the service tables.
func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("enable pgvector: %w", err)
	}
	return db.AutoMigrate(
		&db_models.Account{},
		&db_models.AccountState{},
		&db_models.Place{},
		&db_models.PlaceEmbedding{},
		&db_models.KVEntry{},
	)
}

func ClosePostgresql(db *gorm.DB, logger *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("get database handle", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		logger.Error("close postgres connection", zap.Error(err))
	} else {
		logger.Info("postgres connection closed")
	}
}
