package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"courtside/internal/usecase"
	"courtside/pkg/errors"
	"courtside/pkg/response"
)

const (
	ContextUserID   = "uid"
	ContextIdentity = "identity"
)

// TokenVerifier turns a bearer token into the identity it was issued to.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (usecase.Identity, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, err := bearerToken(c)
		if err != nil {
			return response.Error(c, err)
		}

		id, err := m.verifier.VerifyToken(c.Request().Context(), token)
		if err != nil {
			if _, ok := errors.AsAppError(err); !ok {
				err = errors.Unauthorized("Invalid or expired token", err)
			}
			return response.Error(c, err)
		}

		c.Set(ContextUserID, id.UserID)
		c.Set(ContextIdentity, id)
		return next(c)
	}
}

// bearerToken reads the Authorization header. WebSocket upgrades may pass
// the token as a query parameter instead, since browsers cannot set headers
// on them.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if c.IsWebSocket() {
			if token := c.QueryParam("token"); token != "" {
				return token, nil
			}
		}
		return "", errors.Unauthorized("Authorization header is required", nil)
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.Unauthorized("Invalid authorization format", nil)
	}
	return parts[1], nil
}

// Identity returns the identity set by Authenticate.
func Identity(c echo.Context) usecase.Identity {
	id, _ := c.Get(ContextIdentity).(usecase.Identity)
	return id
}
