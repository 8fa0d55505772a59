package handler

import (
	"github.com/labstack/echo/v4"

	"courtside/internal/adapter/api/middleware"
	"courtside/internal/usecase"
	"courtside/pkg/errors"
	"courtside/pkg/response"
)

// RememberStore persists the "remember me" flag.
type RememberStore interface {
	RememberMe(userID string) (bool, error)
	SetRememberMe(userID string, remember bool) error
}

type UserHandler struct {
	userUseCase *usecase.UserUseCase
	prefs       RememberStore
}

func NewUserHandler(userUseCase *usecase.UserUseCase, prefs RememberStore) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
		prefs:       prefs,
	}
}

type updateProfileRequest struct {
	DisplayName  string `json:"display_name" validate:"max=60"`
	ProfileImage string `json:"profile_image"`
}

type addFriendRequest struct {
	FriendID string `json:"friend_id" validate:"required"`
}

type rememberRequest struct {
	Remember *bool `json:"remember" validate:"required"`
}

// GetMe returns the caller's profile, creating it on first sign-in.
func (h *UserHandler) GetMe(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := h.userUseCase.EnsureProfile(ctx, middleware.Identity(c)); err != nil {
		return response.Error(c, err)
	}
	user, err := h.userUseCase.GetUserProfile(ctx, userID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, user)
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := bind(c, &req); err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()
	if _, err := h.userUseCase.EnsureProfile(ctx, middleware.Identity(c)); err != nil {
		return response.Error(c, err)
	}
	user, err := h.userUseCase.UpdateProfile(ctx, userID(c), usecase.UpdateProfileInput{
		DisplayName:  req.DisplayName,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, user)
}

func (h *UserHandler) AddFriend(c echo.Context) error {
	var req addFriendRequest
	if err := bind(c, &req); err != nil {
		return response.Error(c, err)
	}
	if err := h.userUseCase.AddFriend(c.Request().Context(), userID(c), req.FriendID); err != nil {
		return response.Error(c, err)
	}
	return response.NoContent(c)
}

func (h *UserHandler) GetRemember(c echo.Context) error {
	remember, err := h.prefs.RememberMe(userID(c))
	if err != nil {
		return response.Error(c, errors.Internal("Failed to read preference", err))
	}
	return response.Success(c, map[string]bool{"remember": remember})
}

func (h *UserHandler) SetRemember(c echo.Context) error {
	var req rememberRequest
	if err := bind(c, &req); err != nil {
		return response.Error(c, err)
	}
	if err := h.prefs.SetRememberMe(userID(c), *req.Remember); err != nil {
		return response.Error(c, errors.Internal("Failed to save preference", err))
	}
	return response.Success(c, map[string]bool{"remember": *req.Remember})
}
