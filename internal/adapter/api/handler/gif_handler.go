package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"courtside/internal/infrastructure/gif"
	"courtside/pkg/response"
)

// GifSearcher returns GIFs for a query; failures come back as an empty list.
type GifSearcher interface {
	Search(ctx context.Context, query string) []gif.GIF
}

type GifHandler struct {
	searcher GifSearcher
}

func NewGifHandler(searcher GifSearcher) *GifHandler {
	return &GifHandler{
		searcher: searcher,
	}
}

func (h *GifHandler) Search(c echo.Context) error {
	return response.Success(c, h.searcher.Search(c.Request().Context(), c.QueryParam("q")))
}
