package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gappy/internal/models/request_models"
	"gappy/internal/services"
	"gappy/pkg/middleware"
	"gappy/pkg/utils"
)

// RecommendController serves the core endpoints the edge cache calls upstream.
// Successful responses are written without the envelope.
type RecommendController struct {
	recommendService services.RecommendServiceInterface
	stateSyncService services.StateSyncServiceInterface
	logger           *zap.Logger
}

func NewRecommendController(
	recommendService services.RecommendServiceInterface,
	stateSyncService services.StateSyncServiceInterface,
	logger *zap.Logger,
) *RecommendController {
	return &RecommendController{
		recommendService: recommendService,
		stateSyncService: stateSyncService,
		logger:           logger,
	}
}

// Recommend godoc
// @Summary Recommend places for a travel type
// @Tags Recommendations
// @Accept json
// @Produce json
// @Param request body request_models.RecommendRequest true "Travel type and location"
// @Success 200 {object} response_models.RecommendResponse
// @Failure 400 {object} utils.APIResponse
// @Router /api/recommend [post]
func (r *RecommendController) Recommend(c *gin.Context) {
	var req request_models.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	resp, err := r.recommendService.Recommend(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, r.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// StateSync godoc
// @Summary Store client account state
// @Description Rejects a payload older than the stored one with 409.
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body request_models.StateSyncRequest true "Resources to sync"
// @Success 200 {object} response_models.StateSyncResponse
// @Failure 409 {object} utils.APIResponse
// @Router /api/account/state-sync [post]
func (r *RecommendController) StateSync(c *gin.Context) {
	accountID, err := uuid.Parse(c.GetString(middleware.AccountIDKey))
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, "Invalid account credentials")
		return
	}

	var req request_models.StateSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, utils.ErrUnsupportedResource) {
			utils.HandleServiceError(c, r.logger, err)
			return
		}
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	resp, err := r.stateSyncService.Sync(c.Request.Context(), accountID, req)
	if err != nil {
		utils.HandleServiceError(c, r.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
