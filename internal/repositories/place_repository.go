package repositories

import (
	"context"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gappy/internal/models/db_models"
	"gappy/pkg/utils"
)

type PlaceRepository interface {
	CreatePlace(ctx context.Context, place *db_models.Place) (uuid.UUID, error)
	ListNearest(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]db_models.Place, error)
}

type placeRepository struct {
	db *gorm.DB
}

func NewPlaceRepository(db *gorm.DB) PlaceRepository {
	return &placeRepository{db: db}
}

func (r *placeRepository) CreatePlace(ctx context.Context, place *db_models.Place) (uuid.UUID, error) {
	if err := r.db.WithContext(ctx).Create(place).Error; err != nil {
		return uuid.Nil, err
	}
	return place.ID, nil
}

// ListNearest returns up to limit active places inside the box around (lat, lng), nearest first.
// An empty result is not an error.
func (r *placeRepository) ListNearest(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]db_models.Place, error) {
	var places []db_models.Place
	if err := nearestPlacesQuery(r.db.WithContext(ctx), lat, lng, radiusKm, limit).Find(&places).Error; err != nil {
		return nil, err
	}
	return places, nil
}

// nearestPlacesQuery filters by the bounding box and orders by squared equirectangular distance.
func nearestPlacesQuery(db *gorm.DB, lat, lng, radiusKm float64, limit int) *gorm.DB {
	minLat, maxLat, minLng, maxLng := utils.BoundingBox(lat, lng, radiusKm)
	lngScale := math.Cos(lat * math.Pi / 180)
	return db.Model(&db_models.Place{}).
		Where("status = ?", "active").
		Where("latitude BETWEEN ? AND ?", minLat, maxLat).
		Where("longitude BETWEEN ? AND ?", minLng, maxLng).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "power(latitude - ?, 2) + power((longitude - ?) * ?, 2)",
			Vars:               []interface{}{lat, lng, lngScale},
			WithoutParentheses: true,
		}}).
		Limit(limit)
}
