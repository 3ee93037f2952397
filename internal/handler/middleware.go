package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/haatos/simple-release/internal"
	"github.com/haatos/simple-release/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type APIKeyAuthenticator interface {
	Authenticate(ctx context.Context, value string) error
}

// APIKeyMiddleware rejects requests without a known X-SimpleRelease-Key.
func APIKeyMiddleware(authenticator APIKeyAuthenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			value := c.Request().Header.Get(internal.APIKeyHeader)
			if err := authenticator.Authenticate(c.Request().Context(), value); err != nil {
				if errors.Is(err, service.ErrInvalidAPIKey) {
					return newError(err, http.StatusUnauthorized, "invalid api key")
				}
				return newError(err, http.StatusInternalServerError, "unable to verify api key")
			}
			return next(c)
		}
	}
}

func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.RequestID != "" {
				fields = append(fields, zap.String("request_id", v.RequestID))
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}
