package handler

import (
	"github.com/labstack/echo/v4"

	"courtside/internal/usecase"
	"courtside/pkg/response"
)

type CourtHandler struct {
	courtUseCase *usecase.CourtUseCase
}

func NewCourtHandler(courtUseCase *usecase.CourtUseCase) *CourtHandler {
	return &CourtHandler{
		courtUseCase: courtUseCase,
	}
}

type createCourtRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Address string `json:"address" validate:"max=240"`
}

func (h *CourtHandler) CreateCourt(c echo.Context) error {
	var req createCourtRequest
	if err := bind(c, &req); err != nil {
		return response.Error(c, err)
	}
	court, err := h.courtUseCase.Create(c.Request().Context(), userID(c), usecase.CreateCourtInput{
		Name:    req.Name,
		Address: req.Address,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, court)
}

func (h *CourtHandler) GetCourt(c echo.Context) error {
	court, err := h.courtUseCase.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, court)
}

func (h *CourtHandler) CheckIn(c echo.Context) error {
	court, err := h.courtUseCase.CheckIn(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, court)
}

func (h *CourtHandler) CheckOut(c echo.Context) error {
	court, err := h.courtUseCase.CheckOut(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, court)
}
