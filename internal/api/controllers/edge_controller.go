package controllers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gappy/internal/models/request_models"
	"gappy/internal/services"
	"gappy/pkg/middleware"
	"gappy/pkg/utils"
)

const eventsKeepAlive = 25 * time.Second

// EdgeController is the frontend facing surface of the per-account cache.
type EdgeController struct {
	edgeService services.EdgeServiceInterface
	logger      *zap.Logger
}

func NewEdgeController(edgeService services.EdgeServiceInterface, logger *zap.Logger) *EdgeController {
	return &EdgeController{
		edgeService: edgeService,
		logger:      logger,
	}
}

// PersistQuiz godoc
// @Summary Store the latest quiz result of the account
// @Tags Edge
// @Accept json
// @Produce json
// @Param request body request_models.PersistQuizRequest true "Quiz result and status"
// @Success 200 {object} utils.APIResponse
// @Router /api/edge/quiz [put]
func (e *EdgeController) PersistQuiz(c *gin.Context) {
	var req request_models.PersistQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	state, err := e.edgeService.PersistQuiz(c.Request.Context(), c.GetString(middleware.AccountIDKey), req)
	if err != nil {
		utils.HandleServiceError(c, e.logger, err)
		return
	}

	utils.RespondSuccess(c, state, "Quiz result stored")
}

func (e *EdgeController) GetQuiz(c *gin.Context) {
	state := e.edgeService.ResolveQuiz(c.Request.Context(), c.GetString(middleware.AccountIDKey))
	utils.RespondSuccess(c, state, "")
}

func (e *EdgeController) ClearQuiz(c *gin.Context) {
	e.edgeService.ClearQuiz(c.Request.Context(), c.GetString(middleware.AccountIDKey))
	utils.RespondSuccess(c, nil, "Quiz data cleared")
}

// RequestRecommendations godoc
// @Summary Load recommendations through the cache
// @Description Fetch failures are reported in the returned state, not as an HTTP error.
// @Tags Edge
// @Accept json
// @Produce json
// @Param request body request_models.EdgeRecommendationRequest false "Travel type and force flag"
// @Success 200 {object} utils.APIResponse
// @Router /api/edge/recommendations [post]
func (e *EdgeController) RequestRecommendations(c *gin.Context) {
	var req request_models.EdgeRecommendationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
			return
		}
	}

	state, err := e.edgeService.RequestRecommendations(c.Request.Context(), accountCredentials(c), req)
	if err != nil {
		utils.HandleServiceError(c, e.logger, err)
		return
	}

	utils.RespondSuccess(c, state, "")
}

func (e *EdgeController) GetRecommendations(c *gin.Context) {
	state, err := e.edgeService.RecommendationState(c.Request.Context(), c.GetString(middleware.AccountIDKey), c.Param("code"))
	if err != nil {
		utils.HandleServiceError(c, e.logger, err)
		return
	}
	utils.RespondSuccess(c, state, "")
}

// Sync godoc
// @Summary Push pending account state upstream
// @Tags Edge
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Router /api/edge/sync [post]
func (e *EdgeController) Sync(c *gin.Context) {
	result := e.edgeService.Sync(c.Request.Context(), accountCredentials(c))
	utils.RespondSuccess(c, result, string(result.Kind))
}

// Events streams quiz and recommendation notifications as server-sent events.
// The optional travelType query parameter selects which recommendation key to follow.
func (e *EdgeController) Events(c *gin.Context) {
	accountID := c.GetString(middleware.AccountIDKey)
	events, unsubscribe, err := e.edgeService.Events(accountID, c.Query("travelType"))
	if err != nil {
		utils.HandleServiceError(c, e.logger, err)
		return
	}
	defer unsubscribe()

	keepAlive := time.NewTicker(eventsKeepAlive)
	defer keepAlive.Stop()

	e.logger.Debug("event stream opened", zap.String("account_id", accountID))
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev := <-events:
			c.SSEvent(ev.Type, ev)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UnixMilli()})
			return true
		}
	})
	e.logger.Debug("event stream closed", zap.String("account_id", accountID))
}
