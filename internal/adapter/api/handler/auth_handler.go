package handler

import (
	"github.com/labstack/echo/v4"

	"courtside/internal/usecase"
	"courtside/pkg/logger"
	"courtside/pkg/response"
)

// LocalPrefs drops everything stored locally for a user.
type LocalPrefs interface {
	Forget(userID string) error
}

type AuthHandler struct {
	sessions *usecase.SessionRegistry
	prefs    LocalPrefs
}

func NewAuthHandler(sessions *usecase.SessionRegistry, prefs LocalPrefs) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		prefs:    prefs,
	}
}

// Logout revokes the caller's refresh tokens and ends every live session
// they have open. Local flags, remember-me included, are cleared with it.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid := userID(c)
	if err := h.sessions.SignOut(c.Request().Context(), uid); err != nil {
		return response.Error(c, err)
	}
	if err := h.prefs.Forget(uid); err != nil {
		logger.Warn("Logout Error: failed to clear local flags for %s: %v", uid, err)
	}
	return response.NoContent(c)
}
