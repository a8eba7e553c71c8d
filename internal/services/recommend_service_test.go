package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gappy/internal/models/db_models"
	"gappy/internal/models/request_models"
	"gappy/internal/models/response_models"
	"gappy/pkg/utils"
)

type stubPlaceRepo struct {
	places []db_models.Place
	err    error
	limit  int
}

func (r *stubPlaceRepo) CreatePlace(ctx context.Context, place *db_models.Place) (uuid.UUID, error) {
	if place.ID == uuid.Nil {
		place.ID = uuid.New()
	}
	r.places = append(r.places, *place)
	return place.ID, nil
}

func (r *stubPlaceRepo) ListNearest(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]db_models.Place, error) {
	r.limit = limit
	if r.err != nil {
		return nil, r.err
	}
	minLat, maxLat, minLng, maxLng := utils.BoundingBox(lat, lng, radiusKm)
	var out []db_models.Place
	for _, p := range r.places {
		if p.Latitude >= minLat && p.Latitude <= maxLat && p.Longitude >= minLng && p.Longitude <= maxLng {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return utils.HaversineKm(lat, lng, out[i].Latitude, out[i].Longitude) < utils.HaversineKm(lat, lng, out[j].Latitude, out[j].Longitude)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type stubEmbeddingRepo struct {
	similarities []db_models.PlaceSimilarity
	asked        []string
}

func (r *stubEmbeddingRepo) UpsertEmbedding(ctx context.Context, embedding db_models.PlaceEmbedding) error {
	return nil
}

func (r *stubEmbeddingRepo) SimilarityForPlaces(ctx context.Context, vector pgvector.Vector, placeIDs []string) ([]db_models.PlaceSimilarity, error) {
	r.asked = placeIDs
	return r.similarities, nil
}

type stubEmbedder struct {
	err   error
	texts []string
}

func (e *stubEmbedder) GetEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	e.texts = append(e.texts, text)
	if e.err != nil {
		return pgvector.Vector{}, e.err
	}
	return pgvector.NewVector([]float32{0.1, 0.2, 0.3}), nil
}

func (e *stubEmbedder) Close() error { return nil }

func testPlace(name, category string, lat, lng float64) db_models.Place {
	return db_models.Place{
		BaseModel: db_models.BaseModel{ID: uuid.New()},
		Name:      name,
		Category:  category,
		Latitude:  lat,
		Longitude: lng,
		Status:    "active",
	}
}

func kyotoRequest() request_models.RecommendRequest {
	return request_models.RecommendRequest{
		TravelTypeCode: "GRLP",
		Location:       &request_models.LatLng{Lat: 35.0, Lng: 135.0},
	}
}

func TestRecommendRanksByAffinityAndDistance(t *testing.T) {
	repo := &stubPlaceRepo{places: []db_models.Place{
		testPlace("Museum", "museum", 35.0009, 135.0),
		testPlace("Cafe", "cafe", 35.0045, 135.0),
		testPlace("Far Mall", "shopping", 36.0, 135.0),
	}}
	svc := NewRecommendService(repo, &stubEmbeddingRepo{}, nil, 5, 20, nil)

	resp, err := svc.Recommend(context.Background(), kyotoRequest())
	require.NoError(t, err)
	assert.Equal(t, response_models.RecommendStatusOK, resp.Status)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "Cafe", resp.Items[0].Name)
	assert.Equal(t, "Museum", resp.Items[1].Name)
	assert.InDelta(t, 0.5, resp.Items[0].DistanceKm, 0.01)
	assert.Greater(t, resp.Items[0].Score, resp.Items[1].Score)
	assert.Equal(t, 200, repo.limit)
}

func TestRecommendAppliesLimit(t *testing.T) {
	repo := &stubPlaceRepo{places: []db_models.Place{
		testPlace("A", "cafe", 35.001, 135.0),
		testPlace("B", "food", 35.002, 135.0),
		testPlace("C", "shopping", 35.003, 135.0),
	}}
	svc := NewRecommendService(repo, &stubEmbeddingRepo{}, nil, 5, 20, nil)

	req := kyotoRequest()
	req.Limit = 2
	resp, err := svc.Recommend(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "A", resp.Items[0].Name)
	assert.Equal(t, "B", resp.Items[1].Name)
}

func TestRecommendEmpty(t *testing.T) {
	svc := NewRecommendService(&stubPlaceRepo{}, &stubEmbeddingRepo{}, nil, 5, 20, nil)

	resp, err := svc.Recommend(context.Background(), kyotoRequest())
	require.NoError(t, err)
	assert.Equal(t, response_models.RecommendStatusEmpty, resp.Status)
	assert.NotNil(t, resp.Items)
	assert.Empty(t, resp.Items)
}

func TestRecommendValidation(t *testing.T) {
	svc := NewRecommendService(&stubPlaceRepo{}, &stubEmbeddingRepo{}, nil, 5, 20, nil)

	req := kyotoRequest()
	req.TravelTypeCode = "ZZZZ"
	_, err := svc.Recommend(context.Background(), req)
	assert.ErrorIs(t, err, utils.ErrUnknownTravelType)

	req = kyotoRequest()
	req.Location = nil
	_, err = svc.Recommend(context.Background(), req)
	assert.ErrorIs(t, err, utils.ErrMissingLocation)
}

func TestRecommendRepositoryFailure(t *testing.T) {
	svc := NewRecommendService(&stubPlaceRepo{err: errors.New("connection refused")}, &stubEmbeddingRepo{}, nil, 5, 20, nil)

	_, err := svc.Recommend(context.Background(), kyotoRequest())
	assert.ErrorIs(t, err, utils.ErrDatabaseError)
}

func TestRecommendBlendsEmbeddingSimilarity(t *testing.T) {
	museum := testPlace("Museum", "museum", 35.0009, 135.0)
	cafe := testPlace("Cafe", "cafe", 35.0045, 135.0)
	repo := &stubPlaceRepo{places: []db_models.Place{museum, cafe}}
	embeddings := &stubEmbeddingRepo{similarities: []db_models.PlaceSimilarity{
		{PlaceID: museum.ID.String(), Similarity: 1},
	}}
	embedder := &stubEmbedder{}
	svc := NewRecommendService(repo, embeddings, embedder, 5, 20, nil)

	resp, err := svc.Recommend(context.Background(), kyotoRequest())
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	require.Len(t, embedder.texts, 1)
	assert.Contains(t, embedder.texts[0], "Cozy Crew Planner")
	assert.ElementsMatch(t, []string{museum.ID.String(), cafe.ID.String()}, embeddings.asked)

	// cafe: 0.7 * (0.6 + 0.4 * 0.9); museum: 0.7 * (0.06 + 0.4 * 0.98) + 0.3
	assert.Equal(t, "Cafe", resp.Items[0].Name)
	assert.InDelta(t, 0.672, resp.Items[0].Score, 0.005)
	assert.InDelta(t, 0.616, resp.Items[1].Score, 0.005)
}

func TestRecommendIgnoresEmbeddingFailure(t *testing.T) {
	repo := &stubPlaceRepo{places: []db_models.Place{testPlace("Cafe", "cafe", 35.0045, 135.0)}}
	svc := NewRecommendService(repo, &stubEmbeddingRepo{}, &stubEmbedder{err: errors.New("quota")}, 5, 20, nil)

	resp, err := svc.Recommend(context.Background(), kyotoRequest())
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.InDelta(t, 0.96, resp.Items[0].Score, 0.005)
}

func TestRecommendCandidatesAreNearestFirst(t *testing.T) {
	var places []db_models.Place
	for i := 0; i < 15; i++ {
		places = append(places, testPlace(fmt.Sprintf("Museum %d", i), "museum", 35.02+float64(i)*0.001, 135.0))
	}
	places = append(places, testPlace("Corner Cafe", "cafe", 35.0005, 135.0))
	repo := &stubPlaceRepo{places: places}
	svc := NewRecommendService(repo, &stubEmbeddingRepo{}, nil, 5, 20, nil)

	req := kyotoRequest()
	req.Limit = 1
	resp, err := svc.Recommend(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 10, repo.limit)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Corner Cafe", resp.Items[0].Name)
}
