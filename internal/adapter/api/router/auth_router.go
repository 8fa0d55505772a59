package router

import (
	"github.com/labstack/echo/v4"

	"courtside/internal/adapter/api/handler"
)

func SetupAuthRouter(g *echo.Group, authHandler *handler.AuthHandler) {
	g.POST("/auth/logout", authHandler.Logout)
}
