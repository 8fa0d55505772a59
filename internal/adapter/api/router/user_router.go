package router

import (
	"github.com/labstack/echo/v4"

	"courtside/internal/adapter/api/handler"
)

func SetupUserRouter(g *echo.Group, userHandler *handler.UserHandler, gifHandler *handler.GifHandler) {
	me := g.Group("/me")
	me.GET("", userHandler.GetMe)
	me.PUT("", userHandler.UpdateProfile)
	me.POST("/friends", userHandler.AddFriend)
	me.GET("/remember", userHandler.GetRemember)
	me.PUT("/remember", userHandler.SetRemember)

	g.GET("/gifs", gifHandler.Search)
}
