package server

import (
	"bookshop/internal/config"
	"bookshop/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// RouteRegistrar はhandlerがルートを登録するための約束。
type RouteRegistrar interface {
	RegisterRoutes(e *echo.Echo, cfg config.Config)
}

// New はechoを組み立ててルートを登録する。
func New(cfg config.Config, log *zap.Logger, handlers ...RouteRegistrar) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))

	for _, h := range handlers {
		h.RegisterRoutes(e, cfg)
	}

	return e
}
