package handler

import (
	"github.com/labstack/echo/v4"

	"courtside/internal/usecase"
	"courtside/pkg/response"
)

type MessageHandler struct {
	messageUseCase  *usecase.MessageUseCase
	reactionUseCase *usecase.ReactionUseCase
}

func NewMessageHandler(messageUseCase *usecase.MessageUseCase, reactionUseCase *usecase.ReactionUseCase) *MessageHandler {
	return &MessageHandler{
		messageUseCase:  messageUseCase,
		reactionUseCase: reactionUseCase,
	}
}

type sendMessageRequest struct {
	Text   string `json:"text" validate:"max=4000"`
	GifURL string `json:"gif_url,omitempty" validate:"omitempty,url"`
}

type reactionRequest struct {
	Emoji string `json:"emoji" validate:"required"`
}

type reactionResponse struct {
	Emoji string `json:"emoji"`
	Added bool   `json:"added"`
}

// SendMessage posts a text or GIF message to a conversation or court.
func (h *MessageHandler) SendMessage(c echo.Context) error {
	thread, err := threadParam(c)
	if err != nil {
		return response.Error(c, err)
	}
	var req sendMessageRequest
	if err := bind(c, &req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.messageUseCase.Send(c.Request().Context(), userID(c), thread, usecase.SendMessageInput{
		Text:   req.Text,
		GifURL: req.GifURL,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, usecase.MessageView{Message: msg, ReactionSummary: usecase.Summarize(msg.Reactions, userID(c))})
}

func (h *MessageHandler) DeleteMessage(c echo.Context) error {
	thread, err := threadParam(c)
	if err != nil {
		return response.Error(c, err)
	}
	if err := h.messageUseCase.Delete(c.Request().Context(), userID(c), thread, c.Param("messageId")); err != nil {
		return response.Error(c, err)
	}
	return response.NoContent(c)
}

// ToggleReaction adds the caller's reaction, or removes it when present.
// Without an emoji body it behaves like a double tap.
func (h *MessageHandler) ToggleReaction(c echo.Context) error {
	thread, err := threadParam(c)
	if err != nil {
		return response.Error(c, err)
	}
	var req reactionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if req.Emoji == "" {
		req.Emoji = usecase.DefaultReaction
	}

	added, err := h.reactionUseCase.Toggle(c.Request().Context(), userID(c), thread, c.Param("messageId"), req.Emoji)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, reactionResponse{Emoji: req.Emoji, Added: added})
}

// ReactionDetails lists who reacted with what, with display names resolved.
func (h *MessageHandler) ReactionDetails(c echo.Context) error {
	thread, err := threadParam(c)
	if err != nil {
		return response.Error(c, err)
	}
	details, err := h.reactionUseCase.Details(c.Request().Context(), userID(c), thread, c.Param("messageId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, details)
}
