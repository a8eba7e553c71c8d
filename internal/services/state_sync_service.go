package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gappy/internal/models/cache_models"
	"gappy/internal/models/db_models"
	"gappy/internal/models/request_models"
	"gappy/internal/models/response_models"
	"gappy/internal/repositories"
	"gappy/pkg/utils"
)

type StateSyncServiceInterface interface {
	Sync(ctx context.Context, accountID uuid.UUID, req request_models.StateSyncRequest) (response_models.StateSyncResponse, error)
}

type StateSyncService struct {
	stateRepo repositories.AccountStateRepository
	logger    *zap.Logger
}

func NewStateSyncService(stateRepo repositories.AccountStateRepository, logger *zap.Logger) StateSyncServiceInterface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateSyncService{stateRepo: stateRepo, logger: logger}
}

// Sync stores each submitted resource. A payload older than the stored one is a conflict.
func (s *StateSyncService) Sync(ctx context.Context, accountID uuid.UUID, req request_models.StateSyncRequest) (response_models.StateSyncResponse, error) {
	rec := req.Resources.Recommendation
	if rec == nil {
		return response_models.StateSyncResponse{}, fmt.Errorf("%w: no resources to sync", utils.ErrInvalidInput)
	}
	if rec.TravelType.TravelTypeCode == "" || rec.Timestamp <= 0 {
		return response_models.StateSyncResponse{}, fmt.Errorf("%w: recommendation needs a travel type and timestamp", utils.ErrInvalidInput)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return response_models.StateSyncResponse{}, fmt.Errorf("%w: encode payload: %v", utils.ErrInvalidInput, err)
	}

	written, err := s.stateRepo.UpsertIfNewer(ctx, &db_models.AccountState{
		AccountID:       accountID,
		Resource:        string(cache_models.SyncResourceRecommendation),
		Payload:         string(payload),
		ClientTimestamp: rec.Timestamp,
	})
	if err != nil {
		return response_models.StateSyncResponse{}, fmt.Errorf("%w: upsert account state: %v", utils.ErrDatabaseError, err)
	}
	if !written {
		s.logger.Info("rejecting older account state",
			zap.String("account_id", accountID.String()),
			zap.Int64("client_timestamp", rec.Timestamp))
		return response_models.StateSyncResponse{}, utils.ErrStateConflict
	}

	return response_models.StateSyncResponse{Synced: []string{string(cache_models.SyncResourceRecommendation)}}, nil
}
