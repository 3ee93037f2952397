package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// SetupSystemRoutes registers the metrics endpoint and a health check that
// fails while the database is unreachable.
func SetupSystemRoutes(e *echo.Echo, gatherer prometheus.Gatherer, db Pinger) {
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	e.GET("/healthz", func(c echo.Context) error {
		if err := db.PingContext(c.Request().Context()); err != nil {
			return newError(err, http.StatusServiceUnavailable, "database unavailable")
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}
