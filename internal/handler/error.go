package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/haatos/simple-release/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type errorResponse struct {
	Message string `json:"message"`
}

// NewErrorHandler renders every error as {"message": ...}. Internal errors are
// logged, never returned to the client.
func NewErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "something went terribly wrong"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
			if he.Internal != nil {
				err = he.Internal
			}
		}

		fields := []zap.Field{
			zap.String("path", c.Request().URL.Path),
			zap.Int("status", code),
			zap.Error(err),
		}
		if code >= http.StatusInternalServerError {
			log.Error("handler internal error", fields...)
		} else {
			log.Debug("handler error", fields...)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, errorResponse{Message: message})
		}
		if err != nil {
			log.Error("err returning json", zap.Error(err))
		}
	}
}

func newError(err error, status int, message string) error {
	e := echo.NewHTTPError(status, message)
	if err != nil {
		e = e.WithInternal(err)
	}
	return e
}

// serviceError maps the errors shared by the service layer to responses.
func serviceError(err error, notFound, fallback string) error {
	var (
		invalidProject service.InvalidProjectError
		queueFull      *service.ErrReleaseQueueFull
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return newError(err, http.StatusNotFound, notFound)
	case errors.Is(err, service.ErrInvalidTag),
		errors.Is(err, service.ErrInvalidPrivateKey):
		return newError(err, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalidProject):
		return newError(err, http.StatusBadRequest, invalidProject.Error())
	case errors.As(err, &queueFull):
		return newError(err, http.StatusServiceUnavailable, queueFull.Error())
	case isUniqueConstraintError(err):
		return newError(err, http.StatusConflict, "already exists")
	case isForeignKeyConstraintError(err):
		return newError(err, http.StatusConflict, "referenced resource does not exist or is in use")
	}
	return newError(err, http.StatusInternalServerError, fallback)
}

func isUniqueConstraintError(err error) bool {
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		return sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func isForeignKeyConstraintError(err error) bool {
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		return sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_TRIGGER ||
			sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}
