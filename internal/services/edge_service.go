package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gappy/internal/models/cache_models"
	"gappy/internal/models/request_models"
	"gappy/pkg/utils"
)

const (
	EdgeEventQuiz           = "quiz"
	EdgeEventRecommendation = "recommendation"

	edgeEventBuffer = 16
)

// EdgeEvent is one notification delivered to an account's event stream.
type EdgeEvent struct {
	Type           string                            `json:"type"`
	Name           string                            `json:"name,omitempty"`
	TravelTypeCode string                            `json:"travelTypeCode,omitempty"`
	Recommendation *cache_models.RecommendationState `json:"recommendation,omitempty"`
}

type EdgeServiceInterface interface {
	PersistQuiz(ctx context.Context, accountID string, req request_models.PersistQuizRequest) (cache_models.QuizResultState, error)
	ResolveQuiz(ctx context.Context, accountID string) cache_models.QuizResultState
	ClearQuiz(ctx context.Context, accountID string)
	RequestRecommendations(ctx context.Context, creds cache_models.AccountCredentials, req request_models.EdgeRecommendationRequest) (cache_models.RecommendationState, error)
	RecommendationState(ctx context.Context, accountID, travelTypeCode string) (cache_models.RecommendationState, error)
	Sync(ctx context.Context, creds cache_models.AccountCredentials) cache_models.QuizSyncResult
	Events(accountID, travelTypeCode string) (<-chan EdgeEvent, func(), error)
}

type EdgeService struct {
	quizStore    QuizStore
	events       *QuizEvents
	orchestrator *RecommendationOrchestrator
	queue        *StateSyncQueue
	logger       *zap.Logger
}

func NewEdgeService(
	quizStore QuizStore,
	events *QuizEvents,
	orchestrator *RecommendationOrchestrator,
	queue *StateSyncQueue,
	logger *zap.Logger,
) EdgeServiceInterface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EdgeService{
		quizStore:    quizStore,
		events:       events,
		orchestrator: orchestrator,
		queue:        queue,
		logger:       logger,
	}
}

func (s *EdgeService) PersistQuiz(ctx context.Context, accountID string, req request_models.PersistQuizRequest) (cache_models.QuizResultState, error) {
	if CanonicalTravelTypeCode(req.Result.TravelType.TravelTypeCode) == "" {
		return cache_models.QuizResultState{}, fmt.Errorf("%w: %v", utils.ErrInvalidInput, ErrMissingTravelTypeCode)
	}

	opts := PersistQuizOptions{
		Status:        req.Status,
		LastSyncedAt:  req.LastSyncedAt,
		LastAttemptAt: req.LastAttemptAt,
		Error:         req.Error,
		Retriable:     req.Retriable,
		SuppressEvent: req.EmitEvent != nil && !*req.EmitEvent,
	}
	if _, err := s.quizStore.PersistQuizResultLocal(ctx, accountID, req.Result, opts); err != nil {
		return cache_models.QuizResultState{}, fmt.Errorf("%w: %v", utils.ErrInvalidInput, err)
	}

	if req.Status == "" || req.Status == cache_models.QuizSyncPending {
		s.queue.Enqueue(accountID, cache_models.SyncResourceRecommendation)
	}
	return s.quizStore.ResolveQuizResultState(ctx, accountID), nil
}

func (s *EdgeService) ResolveQuiz(ctx context.Context, accountID string) cache_models.QuizResultState {
	return s.quizStore.ResolveQuizResultState(ctx, accountID)
}

// ClearQuiz drops the stored result and every cached recommendation of the account.
func (s *EdgeService) ClearQuiz(ctx context.Context, accountID string) {
	s.quizStore.ClearQuizData(ctx, accountID)
	s.orchestrator.ResetAccount(accountID)
}

// RequestRecommendations falls back to the stored quiz travel type when the request names none.
// Freshly fetched places are written back into the matching quiz result and queued for sync.
func (s *EdgeService) RequestRecommendations(ctx context.Context, creds cache_models.AccountCredentials, req request_models.EdgeRecommendationRequest) (cache_models.RecommendationState, error) {
	travelType := req.TravelType
	if travelType.TravelTypeCode == "" {
		record, ok := s.quizStore.LoadQuizResult(ctx, creds.AccountID)
		if !ok {
			return cache_models.RecommendationState{}, fmt.Errorf("%w: no travel type given and no stored quiz result", utils.ErrInvalidInput)
		}
		travelType = record.TravelType
	}
	code, err := knownTravelTypeCode(travelType.TravelTypeCode)
	if err != nil {
		return cache_models.RecommendationState{}, err
	}
	travelType.TravelTypeCode = code

	st := s.orchestrator.RequestRecommendation(ctx, RecommendationRequest{
		Credentials: creds,
		TravelType:  travelType,
		Force:       req.Force,
	})
	if st.Status == cache_models.RecommendationReady {
		s.adoptPlaces(ctx, creds.AccountID, travelType.TravelTypeCode, st)
	}
	return st, nil
}

func (s *EdgeService) adoptPlaces(ctx context.Context, accountID, travelTypeCode string, st cache_models.RecommendationState) {
	record, ok := s.quizStore.LoadQuizResult(ctx, accountID)
	if !ok || record.TravelType.TravelTypeCode != travelTypeCode || st.UpdatedAt == nil {
		return
	}
	fetchedAt := st.UpdatedAt.UnixMilli()
	if fetchedAt <= record.Timestamp {
		return
	}

	record.Places = st.Places
	record.Timestamp = fetchedAt
	if _, err := s.quizStore.PersistQuizResultLocal(ctx, accountID, *record, PersistQuizOptions{}); err != nil {
		s.logger.Warn("failed to store fetched places", zap.String("account_id", accountID), zap.Error(err))
		return
	}
	s.queue.Enqueue(accountID, cache_models.SyncResourceRecommendation)
}

func (s *EdgeService) RecommendationState(ctx context.Context, accountID, travelTypeCode string) (cache_models.RecommendationState, error) {
	code, err := knownTravelTypeCode(travelTypeCode)
	if err != nil {
		return cache_models.RecommendationState{}, err
	}
	return s.orchestrator.GetState(ctx, cache_models.RecommendationKey{AccountID: accountID, TravelTypeCode: code}), nil
}

// knownTravelTypeCode canonicalizes code and rejects codes without a profile.
func knownTravelTypeCode(code string) (string, error) {
	code = CanonicalTravelTypeCode(code)
	if code == "" {
		return "", fmt.Errorf("%w: %v", utils.ErrInvalidInput, ErrMissingTravelTypeCode)
	}
	if _, ok := LookupTravelType(code); !ok {
		return "", utils.ErrUnknownTravelType
	}
	return code, nil
}

func (s *EdgeService) Sync(ctx context.Context, creds cache_models.AccountCredentials) cache_models.QuizSyncResult {
	return s.queue.RequestSync(ctx, creds)
}

// Events streams quiz updates of accountID and, when travelTypeCode is set, recommendation
// transitions of that key. Slow readers lose events rather than block publishers.
func (s *EdgeService) Events(accountID, travelTypeCode string) (<-chan EdgeEvent, func(), error) {
	if travelTypeCode != "" {
		code, err := knownTravelTypeCode(travelTypeCode)
		if err != nil {
			return nil, nil, err
		}
		travelTypeCode = code
	}

	ch := make(chan EdgeEvent, edgeEventBuffer)
	send := func(ev EdgeEvent) {
		select {
		case ch <- ev:
		default:
			s.logger.Debug("dropping edge event", zap.String("account_id", accountID), zap.String("type", ev.Type))
		}
	}

	unsubscribers := []func(){
		s.events.Subscribe(func(ev QuizEvent) {
			if ev.AccountID == accountID {
				send(EdgeEvent{Type: EdgeEventQuiz, Name: ev.Name})
			}
		}),
	}
	if travelTypeCode != "" {
		key := cache_models.RecommendationKey{AccountID: accountID, TravelTypeCode: travelTypeCode}
		unsubscribers = append(unsubscribers, s.orchestrator.Subscribe(key, func(st cache_models.RecommendationState) {
			send(EdgeEvent{Type: EdgeEventRecommendation, TravelTypeCode: travelTypeCode, Recommendation: &st})
		}))
	}

	return ch, func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
	}, nil
}
