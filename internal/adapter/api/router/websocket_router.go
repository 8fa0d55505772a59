package router

import (
	"github.com/labstack/echo/v4"

	"courtside/internal/adapter/api/handler"
)

func SetupWebSocketRouter(g *echo.Group, wsHandler *handler.WebSocketHandler) {
	g.GET("/ws", wsHandler.HandleWebSocket)
}
