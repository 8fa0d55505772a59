package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"courtside/internal/adapter/api/handler"
	"courtside/internal/adapter/api/middleware"
	"courtside/internal/infrastructure/ratelimit"
)

// Handlers groups everything the router mounts. Dev is nil outside
// development.
type Handlers struct {
	Conversation *handler.ConversationHandler
	Message      *handler.MessageHandler
	Notification *handler.NotificationHandler
	Court        *handler.CourtHandler
	Gif          *handler.GifHandler
	User         *handler.UserHandler
	Auth         *handler.AuthHandler
	WebSocket    *handler.WebSocketHandler
	Health       *handler.HealthHandler
	DevToken     *handler.DevTokenHandler
	Metrics      http.Handler
}

func Setup(e *echo.Echo, h Handlers, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	SetupHealthRouter(e, h.Health, h.Metrics)

	v1 := e.Group("/v1")
	if h.DevToken != nil {
		SetupDevRouter(v1, h.DevToken)
	}

	// The limiter runs after authentication so it can key on the user.
	authed := v1.Group("", authMiddleware.Authenticate, middleware.RateLimit(limiter))
	SetupConversationRouter(authed, h.Conversation)
	SetupThreadRouter(authed, h.Message)
	SetupNotificationRouter(authed, h.Notification)
	SetupCourtRouter(authed, h.Court)
	SetupUserRouter(authed, h.User, h.Gif)
	SetupAuthRouter(authed, h.Auth)
	SetupWebSocketRouter(authed, h.WebSocket)
}
