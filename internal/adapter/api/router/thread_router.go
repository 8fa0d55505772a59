package router

import (
	"github.com/labstack/echo/v4"

	"courtside/internal/adapter/api/handler"
)

// SetupThreadRouter mounts message routes shared by conversations and courts.
// :kind is "direct" or "court".
func SetupThreadRouter(g *echo.Group, messageHandler *handler.MessageHandler) {
	messages := g.Group("/threads/:kind/:id/messages")
	messages.POST("", messageHandler.SendMessage)
	messages.DELETE("/:messageId", messageHandler.DeleteMessage)
	messages.POST("/:messageId/reactions", messageHandler.ToggleReaction)
	messages.GET("/:messageId/reactions", messageHandler.ReactionDetails)
}
