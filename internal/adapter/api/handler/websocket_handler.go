package handler

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"courtside/internal/adapter/api/middleware"
	ws "courtside/internal/infrastructure/websocket"
	"courtside/internal/usecase"
	"courtside/pkg/logger"
	"courtside/pkg/response"
)

type WebSocketHandler struct {
	wsManager   *ws.Manager
	sessions    *usecase.SessionRegistry
	userUseCase *usecase.UserUseCase
	upgrader    gorillaws.Upgrader
}

func NewWebSocketHandler(wsManager *ws.Manager, sessions *usecase.SessionRegistry, userUseCase *usecase.UserUseCase, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:   wsManager,
		sessions:    sessions,
		userUseCase: userUseCase,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// HandleWebSocket upgrades an authenticated request and serves its sync
// session until the client leaves or signs out.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	id := middleware.Identity(c)
	if _, err := h.userUseCase.EnsureProfile(c.Request().Context(), id); err != nil {
		return response.Error(c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		logger.Warn("WebSocket upgrade failed for %s: %v", id.UserID, err)
		return nil
	}

	// The request context ends when the handler returns, which is exactly
	// when the session should end.
	sess := h.sessions.Open(c.Request().Context(), id)
	defer h.sessions.Close(sess)

	h.wsManager.Serve(sess, conn)
	return nil
}
