package router

import (
	"github.com/labstack/echo/v4"

	"courtside/internal/adapter/api/handler"
)

func SetupCourtRouter(g *echo.Group, courtHandler *handler.CourtHandler) {
	courts := g.Group("/courts")
	courts.POST("", courtHandler.CreateCourt)
	courts.GET("/:id", courtHandler.GetCourt)
	courts.POST("/:id/check-in", courtHandler.CheckIn)
	courts.POST("/:id/check-out", courtHandler.CheckOut)
}
