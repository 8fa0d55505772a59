package handler

import (
	"github.com/labstack/echo/v4"

	"courtside/internal/usecase"
	"courtside/pkg/response"
)

type ConversationHandler struct {
	conversationUseCase *usecase.ConversationUseCase
}

func NewConversationHandler(conversationUseCase *usecase.ConversationUseCase) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
	}
}

type startDirectRequest struct {
	FriendID string `json:"friend_id" validate:"required"`
}

type createGroupRequest struct {
	Name      string   `json:"name" validate:"omitempty,max=80"`
	MemberIDs []string `json:"member_ids" validate:"required,min=2,dive,required"`
}

// ListConversations returns the caller's conversation list, newest first.
func (h *ConversationHandler) ListConversations(c echo.Context) error {
	views, err := h.conversationUseCase.ListConversations(c.Request().Context(), userID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, views)
}

func (h *ConversationHandler) GetConversation(c echo.Context) error {
	conv, err := h.conversationUseCase.Get(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, conv)
}

// StartDirect returns the direct conversation with a friend, creating it on
// first use.
func (h *ConversationHandler) StartDirect(c echo.Context) error {
	var req startDirectRequest
	if err := bind(c, &req); err != nil {
		return response.Error(c, err)
	}

	conv, err := h.conversationUseCase.StartDirect(c.Request().Context(), userID(c), req.FriendID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, conv)
}

func (h *ConversationHandler) CreateGroup(c echo.Context) error {
	var req createGroupRequest
	if err := bind(c, &req); err != nil {
		return response.Error(c, err)
	}

	conv, err := h.conversationUseCase.CreateGroup(c.Request().Context(), userID(c), req.Name, req.MemberIDs)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, conv)
}

// MarkRead never fails for the caller; write errors are only logged.
func (h *ConversationHandler) MarkRead(c echo.Context) error {
	h.conversationUseCase.MarkRead(c.Request().Context(), userID(c), c.Param("id"))
	return response.NoContent(c)
}

func (h *ConversationHandler) DeleteConversation(c echo.Context) error {
	if err := h.conversationUseCase.Delete(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.NoContent(c)
}
