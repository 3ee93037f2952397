package handler

import (
	"net/http"

	"github.com/haatos/simple-release/internal"
	"github.com/labstack/echo/v4"
)

// SetupConfigRoutes exposes config.json. Updates are written to disk and take
// effect on the next start.
func SetupConfigRoutes(g *echo.Group, path string) {
	h := NewConfigHandler(path)
	g.GET("/config", h.GetConfig)
	g.PUT("/config", h.PutConfig)
}

type ConfigHandler struct {
	path string
}

func NewConfigHandler(path string) *ConfigHandler {
	return &ConfigHandler{path}
}

func (h *ConfigHandler) GetConfig(c echo.Context) error {
	if internal.Config == nil {
		return c.JSON(http.StatusOK, internal.DefaultConfiguration())
	}
	return c.JSON(http.StatusOK, internal.Config)
}

func (h *ConfigHandler) PutConfig(c echo.Context) error {
	config := internal.DefaultConfiguration()
	if internal.Config != nil {
		*config = *internal.Config
	}
	if err := c.Bind(config); err != nil {
		return newError(err, http.StatusBadRequest, "invalid configuration")
	}

	switch {
	case config.QueueSize < 1:
		return newError(nil, http.StatusBadRequest, "queue_size must be at least 1")
	case config.HealthPollInterval <= 0:
		return newError(nil, http.StatusBadRequest, "health_poll_seconds must be positive")
	case config.HealthMaxWait < config.HealthPollInterval:
		return newError(nil, http.StatusBadRequest,
			"health_max_wait_seconds must not be shorter than health_poll_seconds",
		)
	case config.ReleaseRetentionDays < 0:
		return newError(nil, http.StatusBadRequest, "release_retention_days must not be negative")
	}

	if err := internal.UpdateConfiguration(h.path, config); err != nil {
		return newError(err, http.StatusInternalServerError, "unable to write configuration")
	}
	return c.JSON(http.StatusOK, config)
}
