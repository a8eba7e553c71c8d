package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gappy/internal/models/cache_models"
	"gappy/internal/models/request_models"
	"gappy/internal/services"
	"gappy/pkg/middleware"
	"gappy/pkg/utils"
)

type AccountController struct {
	accountService services.AccountServiceInterface
	logger         *zap.Logger
}

func NewAccountController(accountService services.AccountServiceInterface, logger *zap.Logger) *AccountController {
	return &AccountController{
		accountService: accountService,
		logger:         logger,
	}
}

// Register godoc
// @Summary Register an anonymous account
// @Description Creates a device account and returns its id and token. The token is shown only once.
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body request_models.RegisterAccountRequest false "Account registration payload"
// @Success 200 {object} utils.APIResponse
// @Router /api/account [post]
func (a *AccountController) Register(c *gin.Context) {
	var req request_models.RegisterAccountRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
			return
		}
	}

	resp, err := a.accountService.Register(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, a.logger, err)
		return
	}

	utils.RespondSuccess(c, resp, "Account created successfully")
}

// accountCredentials collects what the credentials middleware stored on the context.
func accountCredentials(c *gin.Context) cache_models.AccountCredentials {
	return cache_models.AccountCredentials{
		AccountID:    c.GetString(middleware.AccountIDKey),
		AccountToken: c.GetString(middleware.AccountTokenKey),
		AccessToken:  c.GetString(middleware.AccessTokenKey),
	}
}
