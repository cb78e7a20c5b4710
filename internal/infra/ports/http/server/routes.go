package server

import (
	"github.com/labstack/echo/v4"

	"github.com/nanalive/randomchat/internal/application/config"
	"github.com/nanalive/randomchat/internal/infra/ports/http/handlers"
	"github.com/nanalive/randomchat/internal/infra/ports/http/middleware"
)

func New(
	cfg *config.Config,
	guestHandler *handlers.GuestHandler,
	wsHandler *handlers.WebSocketHandler,
) *echo.Echo {
	e := echo.New()

	e.HideBanner = true

	e.Use(middleware.SlogLogger())
	e.Use(middleware.PrometheusMiddleware())

	api := e.Group("/api")
	{
		api.GET("/guest", guestHandler.Issue)

		v1 := api.Group("/v1")
		v1.Use(middleware.GuestAuthMiddleware(cfg.TokenSecret))
		{
			v1.GET("/ws", wsHandler.Handle)
		}
	}

	e.Static("/", "web")

	return e
}
