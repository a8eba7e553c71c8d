package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gappy/internal/models/cache_models"
	"gappy/pkg/memcache"
)

func newTestQuizStore(t *testing.T) (*QuizResultStore, *QuizEvents, *memcache.MemoryStore) {
	t.Helper()
	backend := memcache.NewMemoryStore()
	events := NewQuizEvents(nil)
	store := NewQuizResultStore(memcache.NewNamespacedStorage(backend, nil), events, DefaultQuizResultTTL, nil)
	return store, events, backend
}

func TestQuizStoreEndToEnd(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestQuizStore(t)

	ok, err := store.PersistQuizResultLocal(ctx, "acct-1", cache_models.StoredQuizResult{
		TravelType: cache_models.StoredTravelType{TravelTypeCode: "GRLP"},
		Places:     []cache_models.Place{},
		Timestamp:  time.Now().UnixMilli(),
	}, PersistQuizOptions{})
	require.NoError(t, err)
	require.True(t, ok)

	state := store.ResolveQuizResultState(ctx, "acct-1")
	assert.Equal(t, cache_models.QuizResultPending, state.Status)
	require.NotNil(t, state.Record)
	assert.Equal(t, "GRLP", state.Record.TravelType.TravelTypeCode)
	assert.Equal(t, "Cozy Crew Planner", state.Record.TravelType.TravelTypeName)
	assert.NotEmpty(t, state.Record.TravelType.TravelTypeEmoji)
	assert.NotEmpty(t, state.Record.TravelType.TravelTypeDescription)

	store.ClearQuizData(ctx, "acct-1")
	assert.Equal(t, cache_models.QuizResultMissing, store.ResolveQuizResultState(ctx, "acct-1").Status)
}

func TestQuizStoreWritesDerivedViews(t *testing.T) {
	ctx := context.Background()
	store, _, backend := newTestQuizStore(t)

	_, err := store.PersistQuizResultLocal(ctx, "acct-1", cache_models.StoredQuizResult{
		TravelType: cache_models.StoredTravelType{TravelTypeCode: "SATF", TravelTypeName: "Custom"},
		Places:     []cache_models.Place{{ID: "p1"}, {ID: "p2"}},
		Answers:    cache_models.QuizAnswers{"q1": "a"},
		Timestamp:  1000,
	}, PersistQuizOptions{SuppressEvent: true})
	require.NoError(t, err)
	assert.Equal(t, 4, backend.Len())

	storage := memcache.NewNamespacedStorage(backend, nil)
	var payload cache_models.QuizPayload
	require.True(t, storage.GetJSON(ctx, "acct-1", quizPayloadKey, &payload))
	assert.Equal(t, []string{"p1", "p2"}, payload.PlaceIDs)
	assert.Equal(t, "Custom", payload.TravelTypeName, "provided display fields are kept")

	var answers cache_models.QuizAnswers
	require.True(t, storage.GetJSON(ctx, "acct-1", quizAnswersKey, &answers))
	assert.Equal(t, "a", answers["q1"])

	// The pending slot is removed with everything else.
	storage.Set(ctx, "acct-1", quizPendingResultKey, "{}")
	store.ClearQuizData(ctx, "acct-1")
	assert.Zero(t, backend.Len())
}

func TestQuizStoreStaleness(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestQuizStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	syncedAt := now.UnixMilli()

	persist := func(ts time.Time) {
		_, err := store.PersistQuizResultLocal(ctx, "acct-1", cache_models.StoredQuizResult{
			TravelType: cache_models.StoredTravelType{TravelTypeCode: "GRLP"},
			Timestamp:  ts.UnixMilli(),
		}, PersistQuizOptions{Status: cache_models.QuizSyncSynced, LastSyncedAt: &syncedAt})
		require.NoError(t, err)
	}

	persist(now.Add(-31 * 24 * time.Hour))
	state := store.ResolveQuizResultState(ctx, "acct-1")
	assert.Equal(t, cache_models.QuizResultStale, state.Status)
	require.NotNil(t, state.Meta)
	assert.Equal(t, cache_models.QuizSyncSynced, state.Meta.Status, "stored meta is untouched")
	assert.NotNil(t, state.Record, "stale records are not deleted")

	persist(now.Add(-29 * 24 * time.Hour))
	assert.Equal(t, cache_models.QuizResultSynced, store.ResolveQuizResultState(ctx, "acct-1").Status)
}

func TestQuizStoreStatuses(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestQuizStore(t)
	result := cache_models.StoredQuizResult{
		TravelType: cache_models.StoredTravelType{TravelTypeCode: "GRLP"},
		Timestamp:  time.Now().UnixMilli(),
	}

	t.Run("failed", func(t *testing.T) {
		retriable := true
		_, err := store.PersistQuizResultLocal(ctx, "acct-1", result, PersistQuizOptions{
			Status: cache_models.QuizSyncFailed, Error: "boom", Retriable: &retriable,
		})
		require.NoError(t, err)
		state := store.ResolveQuizResultState(ctx, "acct-1")
		assert.Equal(t, cache_models.QuizResultFailed, state.Status)
		assert.Equal(t, "boom", state.Meta.Error)
	})

	t.Run("synced without timestamp is pending", func(t *testing.T) {
		_, err := store.PersistQuizResultLocal(ctx, "acct-1", result, PersistQuizOptions{Status: cache_models.QuizSyncSynced})
		require.NoError(t, err)
		assert.Equal(t, cache_models.QuizResultPending, store.ResolveQuizResultState(ctx, "acct-1").Status)
	})
}

func TestQuizStoreGuards(t *testing.T) {
	ctx := context.Background()
	store, events, backend := newTestQuizStore(t)
	published := 0
	events.Subscribe(func(QuizEvent) { published++ })

	ok, err := store.PersistQuizResultLocal(ctx, "", cache_models.StoredQuizResult{
		TravelType: cache_models.StoredTravelType{TravelTypeCode: "GRLP"},
	}, PersistQuizOptions{})
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.PersistQuizResultLocal(ctx, "acct-1", cache_models.StoredQuizResult{}, PersistQuizOptions{})
	assert.ErrorIs(t, err, ErrMissingTravelTypeCode)
	assert.False(t, ok)
	assert.Zero(t, backend.Len())
	assert.Zero(t, published)

	storage := memcache.NewNamespacedStorage(backend, nil)
	storage.Set(ctx, "acct-1", quizResultKey, "{corrupt")
	assert.Equal(t, cache_models.QuizResultMissing, store.ResolveQuizResultState(ctx, "acct-1").Status)
}

func TestQuizStoreEvents(t *testing.T) {
	ctx := context.Background()
	store, events, _ := newTestQuizStore(t)

	var got []QuizEvent
	unsubscribe := events.Subscribe(func(ev QuizEvent) { got = append(got, ev) })

	result := cache_models.StoredQuizResult{TravelType: cache_models.StoredTravelType{TravelTypeCode: "GRLP"}}
	_, err := store.PersistQuizResultLocal(ctx, "acct-1", result, PersistQuizOptions{})
	require.NoError(t, err)
	_, err = store.PersistQuizResultLocal(ctx, "acct-1", result, PersistQuizOptions{SuppressEvent: true})
	require.NoError(t, err)
	store.ClearQuizData(ctx, "acct-1")

	require.Len(t, got, 2)
	assert.Equal(t, QuizResultUpdatedEvent, got[0].Name)
	assert.Equal(t, "acct-1", got[1].AccountID)

	unsubscribe()
	store.ClearQuizData(ctx, "acct-1")
	assert.Len(t, got, 2)
}
