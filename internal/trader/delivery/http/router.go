package http

import (
	"net/http"

	_ "momentum-trader/internal/trader/docs"
	"momentum-trader/internal/trader/service"
	"momentum-trader/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swagger "github.com/swaggo/echo-swagger"
)

// NewServer builds the Echo server with the API, metrics and swagger routes.
func NewServer(dashboard service.DashboardService, monitor service.MonitorService, log *logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug("HTTP request",
				logger.StringField("method", v.Method),
				logger.StringField("uri", v.URI),
				logger.IntField("status", v.Status))
			return nil
		},
	}))

	apiV1 := e.Group("/api/v1")
	NewPortfolioHandler(dashboard, log).RegisterRoutes(apiV1)
	NewPositionHandler(dashboard, monitor, log).RegisterRoutes(apiV1)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", swagger.WrapHandler)
	return e
}
