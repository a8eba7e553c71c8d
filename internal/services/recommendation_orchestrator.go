package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"gappy/internal/models/cache_models"
	"gappy/internal/models/response_models"
)

const DefaultRecommendationTTL = 5 * time.Minute

type RecommendationRequest struct {
	Credentials cache_models.AccountCredentials
	TravelType  cache_models.StoredTravelType
	// Force skips the freshness check; concurrent requests are still collapsed.
	Force bool
}

// RecommendationOrchestrator caches recommendation state per (account, travel type).
//
// At most one upstream fetch runs per key; callers arriving while it runs share its result.
// Fetch failures end up in the state's Error field and are never returned.
type RecommendationOrchestrator struct {
	fetcher   RecommendationFetcher
	quizStore QuizStore
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger

	mu           sync.Mutex
	states       map[cache_models.RecommendationKey]cache_models.RecommendationState
	touched      map[cache_models.RecommendationKey]time.Time
	listeners    map[cache_models.RecommendationKey]map[int]func(cache_models.RecommendationState)
	nextListener int
	flights      singleflight.Group
}

func NewRecommendationOrchestrator(fetcher RecommendationFetcher, quizStore QuizStore, ttl time.Duration, logger *zap.Logger) *RecommendationOrchestrator {
	if ttl <= 0 {
		ttl = DefaultRecommendationTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecommendationOrchestrator{
		fetcher:   fetcher,
		quizStore: quizStore,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
		states:    make(map[cache_models.RecommendationKey]cache_models.RecommendationState),
		touched:   make(map[cache_models.RecommendationKey]time.Time),
		listeners: make(map[cache_models.RecommendationKey]map[int]func(cache_models.RecommendationState)),
	}
}

// GetState returns the current state for key, seeding it from the stored quiz result on first access.
// Only a seeded ready state is kept; otherwise the key stays absent and reads as idle.
func (o *RecommendationOrchestrator) GetState(ctx context.Context, key cache_models.RecommendationKey) cache_models.RecommendationState {
	o.mu.Lock()
	st, ok := o.states[key]
	o.mu.Unlock()
	if ok {
		return st
	}
	return o.seed(ctx, key)
}

func (o *RecommendationOrchestrator) seed(ctx context.Context, key cache_models.RecommendationKey) cache_models.RecommendationState {
	idle := cache_models.RecommendationState{Status: cache_models.RecommendationIdle, Places: []cache_models.Place{}}
	if o.quizStore == nil {
		return idle
	}
	record, ok := o.quizStore.LoadQuizResult(ctx, key.AccountID)
	if !ok || record.TravelType.TravelTypeCode != key.TravelTypeCode || len(record.Places) == 0 {
		return idle
	}
	updatedAt := time.UnixMilli(record.Timestamp)
	st := cache_models.RecommendationState{
		Status:    cache_models.RecommendationReady,
		Places:    record.Places,
		UpdatedAt: &updatedAt,
	}

	o.mu.Lock()
	if existing, ok := o.states[key]; ok {
		o.mu.Unlock()
		return existing
	}
	o.states[key] = st
	o.touched[key] = o.now()
	o.mu.Unlock()

	o.logger.Debug("seeded recommendations from quiz result", zap.String("key", key.String()), zap.Int("places", len(st.Places)))
	o.notify(key, st)
	return st
}

// RequestRecommendation brings the state for the request's key up to date and returns it.
func (o *RecommendationOrchestrator) RequestRecommendation(ctx context.Context, req RecommendationRequest) cache_models.RecommendationState {
	key := cache_models.RecommendationKey{
		AccountID:      req.Credentials.AccountID,
		TravelTypeCode: req.TravelType.TravelTypeCode,
	}
	if key.TravelTypeCode == "" {
		return cache_models.RecommendationState{
			Status: cache_models.RecommendationError,
			Places: []cache_models.Place{},
			Error:  ErrMissingTravelTypeCode.Error(),
		}
	}

	current := o.GetState(ctx, key)
	if !req.Force && o.isFresh(current) {
		return current
	}

	// Without real coordinates the backend would fall back to an arbitrary default area.
	if !req.TravelType.HasLocation() {
		return o.setState(key, cache_models.RecommendationState{
			Status: cache_models.RecommendationEmpty,
			Places: []cache_models.Place{},
		})
	}

	v, _, _ := o.flights.Do(key.String(), func() (interface{}, error) {
		return o.load(ctx, key, req), nil
	})
	return v.(cache_models.RecommendationState)
}

func (o *RecommendationOrchestrator) isFresh(st cache_models.RecommendationState) bool {
	return st.Status == cache_models.RecommendationReady &&
		st.UpdatedAt != nil &&
		o.now().Sub(*st.UpdatedAt) < o.ttl
}

func (o *RecommendationOrchestrator) load(ctx context.Context, key cache_models.RecommendationKey, req RecommendationRequest) cache_models.RecommendationState {
	o.mu.Lock()
	previous := o.states[key].Places
	o.mu.Unlock()
	if previous == nil {
		previous = []cache_models.Place{}
	}
	o.setState(key, cache_models.RecommendationState{Status: cache_models.RecommendationLoading, Places: previous})

	// Callers share this fetch, so one caller going away must not cancel it for the rest.
	resp, err := o.fetcher.FetchRecommendations(context.WithoutCancel(ctx), RecommendationFetchRequest{
		Credentials:    req.Credentials,
		TravelTypeCode: key.TravelTypeCode,
		Lat:            *req.TravelType.LocationLat,
		Lng:            *req.TravelType.LocationLng,
	})
	if err != nil {
		o.logger.Warn("recommendation fetch failed", zap.String("key", key.String()), zap.Error(err))
		return o.setState(key, errorState(err.Error()))
	}

	now := o.now()
	switch resp.Status {
	case response_models.RecommendStatusOK:
		if len(resp.Items) == 0 {
			return o.setState(key, cache_models.RecommendationState{Status: cache_models.RecommendationEmpty, Places: []cache_models.Place{}, UpdatedAt: &now})
		}
		return o.setState(key, cache_models.RecommendationState{Status: cache_models.RecommendationReady, Places: resp.Items, UpdatedAt: &now})
	case response_models.RecommendStatusEmpty:
		return o.setState(key, cache_models.RecommendationState{Status: cache_models.RecommendationEmpty, Places: []cache_models.Place{}, UpdatedAt: &now})
	default:
		return o.setState(key, errorState(fmt.Sprintf("unexpected recommendation status %q", resp.Status)))
	}
}

func errorState(msg string) cache_models.RecommendationState {
	return cache_models.RecommendationState{
		Status: cache_models.RecommendationError,
		Places: []cache_models.Place{},
		Error:  msg,
	}
}

func (o *RecommendationOrchestrator) setState(key cache_models.RecommendationKey, st cache_models.RecommendationState) cache_models.RecommendationState {
	o.mu.Lock()
	o.states[key] = st
	o.touched[key] = o.now()
	o.mu.Unlock()
	o.notify(key, st)
	return st
}

// Sweep drops states untouched for longer than the TTL. Keys that are loading or have
// listeners are kept. It returns the number of states removed.
func (o *RecommendationOrchestrator) Sweep() int {
	cutoff := o.now().Add(-o.ttl)
	o.mu.Lock()
	defer o.mu.Unlock()
	removed := 0
	for key, st := range o.states {
		if st.Status == cache_models.RecommendationLoading || len(o.listeners[key]) > 0 {
			continue
		}
		if o.touched[key].After(cutoff) {
			continue
		}
		delete(o.states, key)
		delete(o.touched, key)
		removed++
	}
	return removed
}

// ResetAccount drops every cached state of accountID back to idle.
func (o *RecommendationOrchestrator) ResetAccount(accountID string) {
	o.mu.Lock()
	var keys []cache_models.RecommendationKey
	for k := range o.states {
		if k.AccountID == accountID {
			keys = append(keys, k)
			delete(o.states, k)
			delete(o.touched, k)
		}
	}
	o.mu.Unlock()

	for _, k := range keys {
		o.notify(k, cache_models.RecommendationState{Status: cache_models.RecommendationIdle, Places: []cache_models.Place{}})
	}
}

// Subscribe registers listener for key. Listeners run synchronously on the goroutine causing the transition.
func (o *RecommendationOrchestrator) Subscribe(key cache_models.RecommendationKey, listener func(cache_models.RecommendationState)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextListener
	o.nextListener++
	if o.listeners[key] == nil {
		o.listeners[key] = make(map[int]func(cache_models.RecommendationState))
	}
	o.listeners[key][id] = listener
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.listeners[key], id)
		if len(o.listeners[key]) == 0 {
			delete(o.listeners, key)
		}
	}
}

func (o *RecommendationOrchestrator) notify(key cache_models.RecommendationKey, st cache_models.RecommendationState) {
	o.mu.Lock()
	listeners := make([]func(cache_models.RecommendationState), 0, len(o.listeners[key]))
	for _, l := range o.listeners[key] {
		listeners = append(listeners, l)
	}
	o.mu.Unlock()

	for _, l := range listeners {
		l(st)
	}
}
