package handler

import (
	"github.com/labstack/echo/v4"

	"courtside/internal/infrastructure/firebase"
	"courtside/pkg/response"
)

// DevTokenHandler issues unsigned tokens for the development auth stand-in.
type DevTokenHandler struct {
	auth *firebase.DevAuth
}

func NewDevTokenHandler(auth *firebase.DevAuth) *DevTokenHandler {
	return &DevTokenHandler{auth: auth}
}

type devTokenRequest struct {
	UserID      string `json:"user_id" validate:"required,max=128,excludes=:"`
	DisplayName string `json:"display_name" validate:"max=60"`
}

func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	var req devTokenRequest
	if err := bind(c, &req); err != nil {
		return response.Error(c, err)
	}
	h.auth.Restore(req.UserID)
	return response.Created(c, map[string]string{
		"token": firebase.GenerateDevToken(req.UserID, req.DisplayName),
	})
}
