package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"gappy/cmd/fx/account_fx"
	"gappy/cmd/fx/config_fx"
	"gappy/cmd/fx/controllers_fx"
	"gappy/cmd/fx/db_fx"
	"gappy/cmd/fx/edge_fx"
	"gappy/cmd/fx/embedding_fx"
	"gappy/cmd/fx/logger_fx"
	"gappy/cmd/fx/memcache_fx"
	"gappy/cmd/fx/recommend_fx"
	"gappy/internal/api/controllers"
	"gappy/internal/config"
	"gappy/internal/services"
	"gappy/pkg/middleware"
)

func main() {
	app := fx.New(
		config_fx.Module,
		logger_fx.Module,
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		db_fx.Module,
		memcache_fx.Module,
		account_fx.Module,
		embedding_fx.Module,
		recommend_fx.Module,
		edge_fx.Module,
		controllers_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, cfg *config.Config, engine *gin.Engine, logger *zap.Logger) {
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", server.Addr)
			if err != nil {
				return err
			}
			logger.Info("starting HTTP server", zap.String("addr", server.Addr), zap.String("upstream", cfg.UpstreamURL()))
			go func() {
				if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal("HTTP server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping HTTP server")
			return server.Shutdown(ctx)
		},
	})
}

func ProvideRouter(
	cfg *config.Config,
	logger *zap.Logger,
	accountService services.AccountServiceInterface,
	accountController *controllers.AccountController,
	recommendController *controllers.RecommendController,
	edgeController *controllers.EdgeController,
	placesController *controllers.PlacesController) *gin.Engine {

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.RequestLogger(logger.Named("http")))
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))

	verify := func(ctx context.Context, accountID, accountToken string) error {
		_, err := accountService.VerifyAccount(ctx, accountID, accountToken)
		return err
	}

	RegisterRoutes(r, []byte(cfg.JWTSecret), verify, accountController, recommendController, edgeController, placesController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	jwtSecret []byte,
	verify middleware.AccountVerifier,
	accountController *controllers.AccountController,
	recommendController *controllers.RecommendController,
	edgeController *controllers.EdgeController,
	placesController *controllers.PlacesController) {

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api")
	api.POST("/account", accountController.Register)

	core := api.Group("", middleware.AccountCredentialsMiddleware(jwtSecret), middleware.VerifiedAccountMiddleware(verify))
	core.POST("/recommend", recommendController.Recommend)
	core.POST("/account/state-sync", recommendController.StateSync)

	edgeGroup := api.Group("/edge", middleware.AccountCredentialsMiddleware(jwtSecret), middleware.VerifiedAccountMiddleware(verify))
	edgeGroup.PUT("/quiz", edgeController.PersistQuiz)
	edgeGroup.GET("/quiz", edgeController.GetQuiz)
	edgeGroup.DELETE("/quiz", edgeController.ClearQuiz)
	edgeGroup.POST("/recommendations", edgeController.RequestRecommendations)
	edgeGroup.GET("/recommendations/:code", edgeController.GetRecommendations)
	edgeGroup.GET("/events", edgeController.Events)
	edgeGroup.POST("/sync", edgeController.Sync)

	placesGroup := api.Group("/places", middleware.JWTAuthMiddleware(jwtSecret), middleware.RoleMiddleware("service_role"))
	placesGroup.POST("", placesController.CreatePlace)
}
