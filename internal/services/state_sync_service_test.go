package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gappy/internal/models/cache_models"
	"gappy/internal/models/db_models"
	"gappy/internal/models/request_models"
	"gappy/pkg/utils"
)

type stubStateRepo struct {
	rows map[string]db_models.AccountState
}

func newStubStateRepo() *stubStateRepo {
	return &stubStateRepo{rows: make(map[string]db_models.AccountState)}
}

func (r *stubStateRepo) UpsertIfNewer(ctx context.Context, state *db_models.AccountState) (bool, error) {
	key := state.AccountID.String() + "/" + state.Resource
	if existing, ok := r.rows[key]; ok && existing.ClientTimestamp > state.ClientTimestamp {
		return false, nil
	}
	r.rows[key] = *state
	return true, nil
}

// Find is a test-only lookup; it is not part of AccountStateRepository.
func (r *stubStateRepo) Find(ctx context.Context, accountID uuid.UUID, resource string) (*db_models.AccountState, error) {
	row, ok := r.rows[accountID.String()+"/"+resource]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func recommendationSync(timestamp int64) request_models.StateSyncRequest {
	return request_models.StateSyncRequest{Resources: request_models.StateSyncResources{
		Recommendation: &request_models.RecommendationResource{
			TravelType: cache_models.StoredTravelType{TravelTypeCode: "GRLP"},
			Places:     []cache_models.Place{{ID: "p1", Name: "Cafe"}},
			Timestamp:  timestamp,
		},
	}}
}

func TestStateSyncStoresRecommendation(t *testing.T) {
	repo := newStubStateRepo()
	svc := NewStateSyncService(repo, nil)
	accountID := uuid.New()

	resp, err := svc.Sync(context.Background(), accountID, recommendationSync(1000))
	require.NoError(t, err)
	assert.Equal(t, []string{"recommendation"}, resp.Synced)

	row, err := repo.Find(context.Background(), accountID, "recommendation")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, int64(1000), row.ClientTimestamp)

	var stored request_models.RecommendationResource
	require.NoError(t, json.Unmarshal([]byte(row.Payload), &stored))
	assert.Equal(t, "GRLP", stored.TravelType.TravelTypeCode)
}

func TestStateSyncRejectsOlderPayload(t *testing.T) {
	repo := newStubStateRepo()
	svc := NewStateSyncService(repo, nil)
	accountID := uuid.New()

	_, err := svc.Sync(context.Background(), accountID, recommendationSync(2000))
	require.NoError(t, err)

	_, err = svc.Sync(context.Background(), accountID, recommendationSync(1000))
	assert.ErrorIs(t, err, utils.ErrStateConflict)

	// equal timestamps are a retry of the same write
	_, err = svc.Sync(context.Background(), accountID, recommendationSync(2000))
	assert.NoError(t, err)
}

func TestStateSyncValidation(t *testing.T) {
	svc := NewStateSyncService(newStubStateRepo(), nil)

	_, err := svc.Sync(context.Background(), uuid.New(), request_models.StateSyncRequest{})
	assert.ErrorIs(t, err, utils.ErrInvalidInput)

	req := recommendationSync(1000)
	req.Resources.Recommendation.TravelType.TravelTypeCode = ""
	_, err = svc.Sync(context.Background(), uuid.New(), req)
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}
