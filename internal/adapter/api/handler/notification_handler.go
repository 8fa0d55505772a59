package handler

import (
	"github.com/labstack/echo/v4"

	"courtside/internal/usecase"
	"courtside/pkg/response"
	"courtside/pkg/utils"
)

type NotificationHandler struct {
	notificationUseCase *usecase.NotificationUseCase
}

func NewNotificationHandler(notificationUseCase *usecase.NotificationUseCase) *NotificationHandler {
	return &NotificationHandler{
		notificationUseCase: notificationUseCase,
	}
}

func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	views, err := h.notificationUseCase.List(c.Request().Context(), userID(c), utils.GetLimit(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, views)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	if err := h.notificationUseCase.MarkRead(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.NoContent(c)
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	n, err := h.notificationUseCase.MarkAllRead(c.Request().Context(), userID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]int{"updated": n})
}
