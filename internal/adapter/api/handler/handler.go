package handler

import (
	"github.com/labstack/echo/v4"

	"courtside/internal/domain/entity"
	"courtside/pkg/errors"
)

func userID(c echo.Context) string {
	uid, _ := c.Get("uid").(string)
	return uid
}

// threadParam reads the :kind and :id path parameters.
func threadParam(c echo.Context) (entity.ThreadRef, error) {
	thread := entity.ThreadRef{Kind: entity.ThreadKind(c.Param("kind")), ID: c.Param("id")}
	if !thread.Valid() {
		return entity.ThreadRef{}, errors.BadRequest("Invalid thread", nil)
	}
	return thread, nil
}

// bind decodes and validates a request body.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errors.BadRequest("Invalid request body", err)
	}
	return c.Validate(req)
}
