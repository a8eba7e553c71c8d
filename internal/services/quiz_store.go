package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"gappy/internal/models/cache_models"
	"gappy/pkg/memcache"
)

const (
	quizResultKey        = "quiz/result"
	quizAnswersKey       = "quiz/answers"
	quizPayloadKey       = "quiz/payload"
	quizStatusKey        = "quiz/status"
	quizPendingResultKey = "quiz/pending-result"

	DefaultQuizResultTTL = 30 * 24 * time.Hour
)

// ErrMissingTravelTypeCode means the caller passed a travel type without its code.
var ErrMissingTravelTypeCode = errors.New("travel type code is required")

type PersistQuizOptions struct {
	// Status defaults to pending.
	Status        cache_models.QuizSyncStatus
	LastSyncedAt  *int64
	LastAttemptAt *int64
	Error         string
	Retriable     *bool
	SuppressEvent bool
}

type QuizStore interface {
	PersistQuizResultLocal(ctx context.Context, accountID string, result cache_models.StoredQuizResult, opts PersistQuizOptions) (bool, error)
	ResolveQuizResultState(ctx context.Context, accountID string) cache_models.QuizResultState
	LoadQuizResult(ctx context.Context, accountID string) (*cache_models.StoredQuizResult, bool)
	ClearQuizData(ctx context.Context, accountID string)
}

// QuizResultStore keeps the latest quiz result of each account in namespaced storage.
type QuizResultStore struct {
	storage *memcache.NamespacedStorage
	events  *QuizEvents
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

func NewQuizResultStore(storage *memcache.NamespacedStorage, events *QuizEvents, ttl time.Duration, logger *zap.Logger) *QuizResultStore {
	if ttl <= 0 {
		ttl = DefaultQuizResultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizResultStore{
		storage: storage,
		events:  events,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// PersistQuizResultLocal writes the result with its derived views and status meta.
// It returns false without writing when accountID is empty.
func (s *QuizResultStore) PersistQuizResultLocal(ctx context.Context, accountID string, result cache_models.StoredQuizResult, opts PersistQuizOptions) (bool, error) {
	if accountID == "" {
		return false, nil
	}
	travelType, err := NormalizeTravelType(result.TravelType)
	if err != nil {
		return false, err
	}
	result.TravelType = travelType
	if result.Places == nil {
		result.Places = []cache_models.Place{}
	}

	status := opts.Status
	if status == "" {
		status = cache_models.QuizSyncPending
	}
	meta := cache_models.QuizStatusMeta{
		Status:        status,
		LastSyncedAt:  opts.LastSyncedAt,
		LastAttemptAt: opts.LastAttemptAt,
		Error:         opts.Error,
		Retriable:     opts.Retriable,
	}

	placeIDs := make([]string, 0, len(result.Places))
	for _, p := range result.Places {
		placeIDs = append(placeIDs, p.ID)
	}

	s.storage.SetJSON(ctx, accountID, quizResultKey, result)
	s.storage.SetJSON(ctx, accountID, quizAnswersKey, result.Answers)
	s.storage.SetJSON(ctx, accountID, quizPayloadKey, cache_models.QuizPayload{
		TravelTypeCode: travelType.TravelTypeCode,
		TravelTypeName: travelType.TravelTypeName,
		PlaceIDs:       placeIDs,
		Timestamp:      result.Timestamp,
	})
	s.storage.SetJSON(ctx, accountID, quizStatusKey, meta)

	s.logger.Debug("quiz result persisted",
		zap.String("account_id", accountID),
		zap.String("travel_type", travelType.TravelTypeCode),
		zap.String("status", string(status)))

	if !opts.SuppressEvent && s.events != nil {
		s.events.Publish(accountID)
	}
	return true, nil
}

// LoadQuizResult returns the stored result if it is present and well formed.
func (s *QuizResultStore) LoadQuizResult(ctx context.Context, accountID string) (*cache_models.StoredQuizResult, bool) {
	var record cache_models.StoredQuizResult
	if !s.storage.GetJSON(ctx, accountID, quizResultKey, &record) {
		return nil, false
	}
	if record.TravelType.TravelTypeCode == "" {
		s.logger.Warn("stored quiz result has no travel type code", zap.String("account_id", accountID))
		return nil, false
	}
	return &record, true
}

// ResolveQuizResultState combines the stored sync status with a freshness check.
// A synced record older than the TTL is reported as stale but left in place.
func (s *QuizResultStore) ResolveQuizResultState(ctx context.Context, accountID string) cache_models.QuizResultState {
	record, ok := s.LoadQuizResult(ctx, accountID)
	if !ok {
		return cache_models.QuizResultState{Status: cache_models.QuizResultMissing}
	}

	var meta cache_models.QuizStatusMeta
	if !s.storage.GetJSON(ctx, accountID, quizStatusKey, &meta) {
		meta = cache_models.QuizStatusMeta{Status: cache_models.QuizSyncPending}
	}

	state := cache_models.QuizResultState{Record: record, Meta: &meta}
	switch meta.Status {
	case cache_models.QuizSyncSynced:
		if meta.LastSyncedAt == nil {
			state.Status = cache_models.QuizResultPending
		} else if s.isStale(record.Timestamp) {
			state.Status = cache_models.QuizResultStale
		} else {
			state.Status = cache_models.QuizResultSynced
		}
	case cache_models.QuizSyncFailed:
		state.Status = cache_models.QuizResultFailed
	default:
		state.Status = cache_models.QuizResultPending
	}
	return state
}

func (s *QuizResultStore) isStale(timestampMs int64) bool {
	age := s.now().Sub(time.UnixMilli(timestampMs))
	return age >= s.ttl
}

func (s *QuizResultStore) ClearQuizData(ctx context.Context, accountID string) {
	if accountID == "" {
		return
	}
	for _, key := range []string{quizResultKey, quizAnswersKey, quizPayloadKey, quizStatusKey, quizPendingResultKey} {
		s.storage.Remove(ctx, accountID, key)
	}
	if s.events != nil {
		s.events.Publish(accountID)
	}
}
