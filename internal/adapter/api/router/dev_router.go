package router

import (
	"github.com/labstack/echo/v4"

	"courtside/internal/adapter/api/handler"
)

// SetupDevRouter is only mounted in development with the memory driver.
func SetupDevRouter(g *echo.Group, devTokenHandler *handler.DevTokenHandler) {
	g.POST("/dev/token", devTokenHandler.GenerateToken)
}
