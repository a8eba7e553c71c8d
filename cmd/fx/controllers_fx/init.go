package controllers_fx

import (
	"go.uber.org/fx"

	"gappy/internal/api/controllers"
)

var Module = fx.Options(
	fx.Provide(controllers.NewAccountController),
	fx.Provide(controllers.NewRecommendController),
	fx.Provide(controllers.NewEdgeController),
	fx.Provide(controllers.NewPlacesController))
