package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gappy/internal/models/cache_models"
	"gappy/internal/models/request_models"
	"gappy/internal/models/response_models"
	"gappy/pkg/memcache"
	"gappy/pkg/utils"
)

type stubSyncClient struct {
	mu       sync.Mutex
	requests []request_models.StateSyncRequest
}

func (c *stubSyncClient) PushState(ctx context.Context, creds cache_models.AccountCredentials, req request_models.StateSyncRequest) (response_models.StateSyncResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	return response_models.StateSyncResponse{Synced: []string{string(cache_models.SyncResourceRecommendation)}}, nil
}

type edgeFixture struct {
	svc     EdgeServiceInterface
	queue   *StateSyncQueue
	fetcher *stubFetcher
	client  *stubSyncClient
	store   *QuizResultStore
}

func newEdgeFixture(t *testing.T) *edgeFixture {
	t.Helper()
	storage := memcache.NewNamespacedStorage(memcache.NewMemoryStore(), nil)
	events := NewQuizEvents(nil)
	store := NewQuizResultStore(storage, events, DefaultQuizResultTTL, nil)
	fetcher := &stubFetcher{resp: okResponse("p1", "p2")}
	client := &stubSyncClient{}
	queue := NewStateSyncQueue(client, store, storage, nil)
	t.Cleanup(queue.Wait)
	orchestrator := NewRecommendationOrchestrator(fetcher, store, DefaultRecommendationTTL, nil)
	return &edgeFixture{
		svc:     NewEdgeService(store, events, orchestrator, queue, nil),
		queue:   queue,
		fetcher: fetcher,
		client:  client,
		store:   store,
	}
}

func edgeCreds() cache_models.AccountCredentials {
	return cache_models.AccountCredentials{AccountID: "acct-1", AccountToken: "token"}
}

func persistShibuyaQuiz(t *testing.T, f *edgeFixture, timestamp int64) {
	t.Helper()
	_, err := f.svc.PersistQuiz(context.Background(), "acct-1", request_models.PersistQuizRequest{
		Result: cache_models.StoredQuizResult{
			TravelType: shibuyaTravelType("GRLP"),
			Timestamp:  timestamp,
		},
	})
	require.NoError(t, err)
}

func TestEdgePersistQueuesSync(t *testing.T) {
	f := newEdgeFixture(t)
	persistShibuyaQuiz(t, f, time.Now().Add(-time.Hour).UnixMilli())

	state := f.svc.ResolveQuiz(context.Background(), "acct-1")
	assert.Equal(t, cache_models.QuizResultPending, state.Status)
	require.NotNil(t, state.Record)
	assert.Equal(t, "Cozy Crew Planner", state.Record.TravelType.TravelTypeName)
	assert.Equal(t, []cache_models.SyncResource{cache_models.SyncResourceRecommendation}, f.queue.Pending("acct-1"))

	result := f.svc.Sync(context.Background(), edgeCreds())
	assert.Equal(t, cache_models.QuizSyncKindSynced, result.Kind)
	assert.Empty(t, f.queue.Pending("acct-1"))
	assert.Equal(t, cache_models.QuizResultSynced, f.svc.ResolveQuiz(context.Background(), "acct-1").Status)
}

func TestEdgePersistRejectsMissingCode(t *testing.T) {
	f := newEdgeFixture(t)
	_, err := f.svc.PersistQuiz(context.Background(), "acct-1", request_models.PersistQuizRequest{})
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
	assert.Equal(t, cache_models.QuizResultMissing, f.svc.ResolveQuiz(context.Background(), "acct-1").Status)
}

func TestEdgeRecommendationsUseStoredTravelType(t *testing.T) {
	f := newEdgeFixture(t)
	recordTs := time.Now().Add(-time.Hour).UnixMilli()
	persistShibuyaQuiz(t, f, recordTs)

	st, err := f.svc.RequestRecommendations(context.Background(), edgeCreds(), request_models.EdgeRecommendationRequest{})
	require.NoError(t, err)
	assert.Equal(t, cache_models.RecommendationReady, st.Status)
	assert.Len(t, st.Places, 2)
	assert.Equal(t, int32(1), f.fetcher.calls.Load())

	record, ok := f.store.LoadQuizResult(context.Background(), "acct-1")
	require.True(t, ok)
	assert.Len(t, record.Places, 2)
	assert.Equal(t, st.UpdatedAt.UnixMilli(), record.Timestamp)

	// a fresh state neither refetches nor rewrites the record
	again, err := f.svc.RequestRecommendations(context.Background(), edgeCreds(), request_models.EdgeRecommendationRequest{})
	require.NoError(t, err)
	assert.Equal(t, cache_models.RecommendationReady, again.Status)
	assert.Equal(t, int32(1), f.fetcher.calls.Load())

	same, ok := f.store.LoadQuizResult(context.Background(), "acct-1")
	require.True(t, ok)
	assert.Equal(t, record.Timestamp, same.Timestamp)
}

func TestEdgeRecommendationsWithoutTravelType(t *testing.T) {
	f := newEdgeFixture(t)
	_, err := f.svc.RequestRecommendations(context.Background(), edgeCreds(), request_models.EdgeRecommendationRequest{})
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
	assert.Equal(t, int32(0), f.fetcher.calls.Load())
}

func TestEdgeClearResetsRecommendations(t *testing.T) {
	f := newEdgeFixture(t)
	persistShibuyaQuiz(t, f, time.Now().Add(-time.Hour).UnixMilli())
	_, err := f.svc.RequestRecommendations(context.Background(), edgeCreds(), request_models.EdgeRecommendationRequest{})
	require.NoError(t, err)

	f.svc.ClearQuiz(context.Background(), "acct-1")

	assert.Equal(t, cache_models.QuizResultMissing, f.svc.ResolveQuiz(context.Background(), "acct-1").Status)
	st, err := f.svc.RecommendationState(context.Background(), "acct-1", "GRLP")
	require.NoError(t, err)
	assert.Equal(t, cache_models.RecommendationIdle, st.Status)
}

func TestEdgeEvents(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newEdgeFixture(t)

	events, unsubscribe, err := f.svc.Events("acct-1", "GRLP")
	require.NoError(t, err)
	other, unsubscribeOther, err := f.svc.Events("acct-2", "")
	require.NoError(t, err)
	defer unsubscribeOther()

	persistShibuyaQuiz(t, f, time.Now().Add(-time.Hour).UnixMilli())
	_, err = f.svc.RequestRecommendations(context.Background(), edgeCreds(), request_models.EdgeRecommendationRequest{})
	require.NoError(t, err)
	unsubscribe()

	var got []EdgeEvent
	for len(events) > 0 {
		got = append(got, <-events)
	}
	require.NotEmpty(t, got)
	assert.Equal(t, EdgeEvent{Type: EdgeEventQuiz, Name: QuizResultUpdatedEvent}, got[0])

	var statuses []cache_models.RecommendationStatus
	for _, ev := range got {
		if ev.Type == EdgeEventRecommendation {
			statuses = append(statuses, ev.Recommendation.Status)
		}
	}
	assert.Contains(t, statuses, cache_models.RecommendationLoading)
	assert.Equal(t, cache_models.RecommendationReady, statuses[len(statuses)-1])
	assert.Empty(t, other)
}

func TestEdgeTravelTypeCodeIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	f := newEdgeFixture(t)
	_, err := f.svc.PersistQuiz(ctx, "acct-1", request_models.PersistQuizRequest{
		Result: cache_models.StoredQuizResult{
			TravelType: shibuyaTravelType("grlp"),
			Timestamp:  time.Now().Add(-time.Hour).UnixMilli(),
		},
	})
	require.NoError(t, err)

	record, ok := f.store.LoadQuizResult(ctx, "acct-1")
	require.True(t, ok)
	assert.Equal(t, "GRLP", record.TravelType.TravelTypeCode)

	events, unsubscribe, err := f.svc.Events("acct-1", "Grlp")
	require.NoError(t, err)
	defer unsubscribe()

	st, err := f.svc.RequestRecommendations(ctx, edgeCreds(), request_models.EdgeRecommendationRequest{TravelType: shibuyaTravelType(" grlp ")})
	require.NoError(t, err)
	assert.Equal(t, cache_models.RecommendationReady, st.Status)
	f.fetcher.mu.Lock()
	assert.Equal(t, "GRLP", f.fetcher.last.TravelTypeCode)
	f.fetcher.mu.Unlock()

	got, err := f.svc.RecommendationState(ctx, "acct-1", "grlp")
	require.NoError(t, err)
	assert.Equal(t, cache_models.RecommendationReady, got.Status)

	var sawReady bool
	for len(events) > 0 {
		ev := <-events
		if ev.Type == EdgeEventRecommendation && ev.Recommendation.Status == cache_models.RecommendationReady {
			sawReady = true
			assert.Equal(t, "GRLP", ev.TravelTypeCode)
		}
	}
	assert.True(t, sawReady)
}

func TestEdgeRejectsUnknownTravelType(t *testing.T) {
	ctx := context.Background()
	f := newEdgeFixture(t)

	_, err := f.svc.RecommendationState(ctx, "acct-1", "ZZZZ")
	assert.ErrorIs(t, err, utils.ErrUnknownTravelType)

	_, _, err = f.svc.Events("acct-1", "ZZZZ")
	assert.ErrorIs(t, err, utils.ErrUnknownTravelType)

	_, err = f.svc.RequestRecommendations(ctx, edgeCreds(), request_models.EdgeRecommendationRequest{TravelType: shibuyaTravelType("ZZZZ")})
	assert.ErrorIs(t, err, utils.ErrUnknownTravelType)
	assert.Zero(t, f.fetcher.calls.Load())
}
