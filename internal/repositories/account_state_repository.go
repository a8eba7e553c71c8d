package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gappy/internal/models/db_models"
)

type AccountStateRepository interface {
	// UpsertIfNewer stores state unless a row with a newer client timestamp exists.
	// It reports whether the row was written.
	UpsertIfNewer(ctx context.Context, state *db_models.AccountState) (bool, error)
}

type accountStateRepository struct {
	db *gorm.DB
}

func NewAccountStateRepository(db *gorm.DB) AccountStateRepository {
	return &accountStateRepository{db: db}
}

func (r *accountStateRepository) UpsertIfNewer(ctx context.Context, state *db_models.AccountState) (bool, error) {
	written := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing db_models.AccountState
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&existing, "account_id = ? AND resource = ?", state.AccountID, state.Resource).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			written = true
			return tx.Create(state).Error
		case err != nil:
			return err
		}

		if existing.ClientTimestamp > state.ClientTimestamp {
			return nil
		}
		written = true
		return tx.Model(&existing).Updates(map[string]interface{}{
			"payload":          state.Payload,
			"client_timestamp": state.ClientTimestamp,
		}).Error
	})
	return written, err
}
