package router

import (
	"github.com/labstack/echo/v4"

	"courtside/internal/adapter/api/handler"
)

func SetupConversationRouter(g *echo.Group, conversationHandler *handler.ConversationHandler) {
	conversations := g.Group("/conversations")
	conversations.GET("", conversationHandler.ListConversations)         // GET /v1/conversations
	conversations.POST("/direct", conversationHandler.StartDirect)       // POST /v1/conversations/direct
	conversations.POST("/group", conversationHandler.CreateGroup)        // POST /v1/conversations/group
	conversations.GET("/:id", conversationHandler.GetConversation)       // GET /v1/conversations/:id
	conversations.PUT("/:id/read", conversationHandler.MarkRead)         // PUT /v1/conversations/:id/read
	conversations.DELETE("/:id", conversationHandler.DeleteConversation) // DELETE /v1/conversations/:id
}
