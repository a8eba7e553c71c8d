package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"gappy/internal/models/cache_models"
	"gappy/internal/models/request_models"
	"gappy/pkg/memcache"
)

const (
	syncStateKey = "sync/state"

	// DefaultCredentialRetention is how long credentials seen by Process are kept for eager flushes.
	DefaultCredentialRetention = 30 * time.Minute
)

type retainedCredentials struct {
	creds  cache_models.AccountCredentials
	seenAt time.Time
}

// StateSyncQueue batches "resource changed" signals per account and pushes them upstream.
//
// The queue only decides when to sync. What to send is derived from storage by comparing each
// resource's stored timestamp with the last timestamp the backend accepted.
type StateSyncQueue struct {
	client    StateSyncClient
	quizStore QuizStore
	storage   *memcache.NamespacedStorage
	now       func() time.Time
	logger    *zap.Logger

	mu      sync.Mutex
	pending map[string]map[cache_models.SyncResource]uint64
	gen     uint64
	creds   map[string]retainedCredentials
	flights singleflight.Group
	eager   sync.WaitGroup
}

func NewStateSyncQueue(client StateSyncClient, quizStore QuizStore, storage *memcache.NamespacedStorage, logger *zap.Logger) *StateSyncQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateSyncQueue{
		client:    client,
		quizStore: quizStore,
		storage:   storage,
		now:       time.Now,
		logger:    logger,
		pending:   make(map[string]map[cache_models.SyncResource]uint64),
		creds:     make(map[string]retainedCredentials),
	}
}

// Enqueue marks resource as needing sync. If credentials for the account were seen by an
// earlier Process call, a flush starts in the background; delivery is best effort.
func (q *StateSyncQueue) Enqueue(accountID string, resource cache_models.SyncResource) {
	if accountID == "" {
		return
	}
	q.add(accountID, resource)

	creds, ok := q.retained(accountID)
	if !ok {
		return
	}
	q.eager.Add(1)
	go func() {
		defer q.eager.Done()
		q.Process(context.Background(), creds)
	}()
}

func (q *StateSyncQueue) retained(accountID string) (cache_models.AccountCredentials, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.creds[accountID]
	if !ok {
		return cache_models.AccountCredentials{}, false
	}
	if q.now().Sub(entry.seenAt) >= DefaultCredentialRetention {
		delete(q.creds, accountID)
		return cache_models.AccountCredentials{}, false
	}
	return entry.creds, true
}

// Sweep forgets credentials not seen within DefaultCredentialRetention and returns how many were dropped.
func (q *StateSyncQueue) Sweep() int {
	cutoff := q.now().Add(-DefaultCredentialRetention)
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := 0
	for accountID, entry := range q.creds {
		if !entry.seenAt.After(cutoff) {
			delete(q.creds, accountID)
			removed++
		}
	}
	return removed
}

func (q *StateSyncQueue) add(accountID string, resource cache_models.SyncResource) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending[accountID] == nil {
		q.pending[accountID] = make(map[cache_models.SyncResource]uint64)
	}
	q.gen++
	q.pending[accountID][resource] = q.gen
}

// RequestSync enqueues the recommendation resource and flushes it right away.
func (q *StateSyncQueue) RequestSync(ctx context.Context, creds cache_models.AccountCredentials) cache_models.QuizSyncResult {
	if creds.AccountID != "" {
		q.add(creds.AccountID, cache_models.SyncResourceRecommendation)
	}
	return q.Process(ctx, creds)
}

// Pending lists the resources still queued for accountID.
func (q *StateSyncQueue) Pending(accountID string) []cache_models.SyncResource {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]cache_models.SyncResource, 0, len(q.pending[accountID]))
	for r := range q.pending[accountID] {
		out = append(out, r)
	}
	return out
}

// Wait blocks until background flushes started by Enqueue have finished.
func (q *StateSyncQueue) Wait() {
	q.eager.Wait()
}

// Process flushes the account's queue. Concurrent calls for one account share a single request.
func (q *StateSyncQueue) Process(ctx context.Context, creds cache_models.AccountCredentials) cache_models.QuizSyncResult {
	if creds.AccountID == "" || creds.AccountToken == "" {
		return cache_models.QuizSyncResult{Kind: cache_models.QuizSyncKindSkipped, Error: "account credentials missing"}
	}

	q.mu.Lock()
	q.creds[creds.AccountID] = retainedCredentials{creds: creds, seenAt: q.now()}
	q.mu.Unlock()

	// Joined callers share this flush, so the caller that started it going away must not cancel it.
	// The upstream client timeout still bounds it.
	v, _, _ := q.flights.Do(creds.AccountID, func() (interface{}, error) {
		return q.process(context.WithoutCancel(ctx), creds), nil
	})
	return v.(cache_models.QuizSyncResult)
}

func (q *StateSyncQueue) process(ctx context.Context, creds cache_models.AccountCredentials) cache_models.QuizSyncResult {
	accountID := creds.AccountID

	q.mu.Lock()
	snapshot := make(map[cache_models.SyncResource]uint64, len(q.pending[accountID]))
	for r, g := range q.pending[accountID] {
		snapshot[r] = g
	}
	q.mu.Unlock()
	if len(snapshot) == 0 {
		return cache_models.QuizSyncResult{Kind: cache_models.QuizSyncKindNothing}
	}

	syncState := q.loadSyncState(ctx, accountID)
	var req request_models.StateSyncRequest
	var record *cache_models.StoredQuizResult
	var upToDate []cache_models.SyncResource
	included := map[cache_models.SyncResource]int64{}
	for resource := range snapshot {
		switch resource {
		case cache_models.SyncResourceRecommendation:
			r, ok := q.quizStore.LoadQuizResult(ctx, accountID)
			if !ok || r.Timestamp <= syncState.Resources[resource].LastSyncedAt {
				upToDate = append(upToDate, resource)
				continue
			}
			record = r
			req.Resources.Recommendation = &request_models.RecommendationResource{
				TravelType: r.TravelType,
				Places:     r.Places,
				Answers:    r.Answers,
				Timestamp:  r.Timestamp,
			}
			included[resource] = r.Timestamp
		default:
			q.logger.Warn("dropping unknown sync resource", zap.String("account_id", accountID), zap.String("resource", string(resource)))
			upToDate = append(upToDate, resource)
		}
	}
	q.settle(accountID, snapshot, upToDate)
	if len(included) == 0 {
		return cache_models.QuizSyncResult{Kind: cache_models.QuizSyncKindNothing}
	}

	attemptAt := q.now().UnixMilli()
	resp, err := q.client.PushState(ctx, creds, req)
	if err != nil {
		var statusErr *UpstreamStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict {
			q.clear(accountID)
			return cache_models.QuizSyncResult{Kind: cache_models.QuizSyncKindConflict, StatusCode: http.StatusConflict}
		}

		q.logger.Error("state sync failed", zap.String("account_id", accountID), zap.Error(err))
		if record != nil {
			retriable := true
			q.markQuiz(ctx, accountID, record.Timestamp, PersistQuizOptions{
				Status:        cache_models.QuizSyncFailed,
				LastAttemptAt: &attemptAt,
				Error:         err.Error(),
				Retriable:     &retriable,
			})
		}
		result := cache_models.QuizSyncResult{Kind: cache_models.QuizSyncKindFailed, Error: err.Error(), Retriable: true}
		if statusErr != nil {
			result.StatusCode = statusErr.StatusCode
		}
		return result
	}

	var synced []cache_models.SyncResource
	for _, name := range resp.Synced {
		resource := cache_models.SyncResource(name)
		ts, ok := included[resource]
		if !ok {
			continue
		}
		syncState.Resources[resource] = cache_models.ResourceSyncState{LastSyncedAt: ts}
		synced = append(synced, resource)
		if resource == cache_models.SyncResourceRecommendation {
			syncedAt := q.now().UnixMilli()
			q.markQuiz(ctx, accountID, ts, PersistQuizOptions{
				Status:        cache_models.QuizSyncSynced,
				LastSyncedAt:  &syncedAt,
				LastAttemptAt: &attemptAt,
			})
		}
	}
	q.storage.SetJSON(ctx, accountID, syncStateKey, syncState)
	q.settle(accountID, snapshot, synced)

	q.logger.Info("account state synced", zap.String("account_id", accountID), zap.Int("resources", len(synced)))
	return cache_models.QuizSyncResult{Kind: cache_models.QuizSyncKindSynced, Synced: synced}
}

// markQuiz updates the quiz status only if the stored record is still the one that was sent.
func (q *StateSyncQueue) markQuiz(ctx context.Context, accountID string, sentTimestamp int64, opts PersistQuizOptions) {
	current, ok := q.quizStore.LoadQuizResult(ctx, accountID)
	if !ok || current.Timestamp != sentTimestamp {
		return
	}
	if _, err := q.quizStore.PersistQuizResultLocal(ctx, accountID, *current, opts); err != nil {
		q.logger.Warn("update quiz sync status", zap.String("account_id", accountID), zap.Error(err))
	}
}

func (q *StateSyncQueue) loadSyncState(ctx context.Context, accountID string) cache_models.SyncState {
	var st cache_models.SyncState
	q.storage.GetJSON(ctx, accountID, syncStateKey, &st)
	if st.Resources == nil {
		st.Resources = make(map[cache_models.SyncResource]cache_models.ResourceSyncState)
	}
	return st
}

// settle removes resources from the queue unless they were enqueued again after the snapshot.
func (q *StateSyncQueue) settle(accountID string, snapshot map[cache_models.SyncResource]uint64, done []cache_models.SyncResource) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, r := range done {
		if g, ok := q.pending[accountID][r]; ok && g == snapshot[r] {
			delete(q.pending[accountID], r)
		}
	}
	if len(q.pending[accountID]) == 0 {
		delete(q.pending, accountID)
	}
}

func (q *StateSyncQueue) clear(accountID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, accountID)
}
