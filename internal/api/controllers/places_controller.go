package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gappy/internal/models/request_models"
	"gappy/internal/services"
	"gappy/pkg/utils"
)

type PlacesController struct {
	placeIndexService services.PlaceIndexServiceInterface
	logger            *zap.Logger
}

func NewPlacesController(placeIndexService services.PlaceIndexServiceInterface, logger *zap.Logger) *PlacesController {
	return &PlacesController{
		placeIndexService: placeIndexService,
		logger:            logger,
	}
}

// CreatePlace godoc
// @Summary Add a place to the recommendation catalogue
// @Tags Places
// @Accept json
// @Produce json
// @Param request body request_models.CreatePlaceRequest true "Place"
// @Success 200 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Router /api/places [post]
func (p *PlacesController) CreatePlace(c *gin.Context) {
	var req request_models.CreatePlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	place, err := p.placeIndexService.IndexPlace(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, p.logger, err)
		return
	}

	utils.RespondSuccess(c, place, "Place indexed successfully")
}
