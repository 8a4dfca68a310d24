package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Skotchmaster/venues/internal/service"
)

// httpError maps a service error to the response the client sees. Only
// validation messages are passed through; everything else is generic.
func httpError(l *zap.Logger, op string, err error, unauthMsg string) error {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		l.Info(op+"_failed", zap.Int("status", http.StatusUnauthorized), zap.Error(err))
		return echo.NewHTTPError(http.StatusUnauthorized, unauthMsg)
	case errors.Is(err, service.ErrConflict):
		l.Info(op+"_failed", zap.Int("status", http.StatusConflict), zap.Error(err))
		return echo.NewHTTPError(http.StatusConflict, "account already exists")
	case errors.Is(err, service.ErrValidation):
		l.Info(op+"_failed", zap.Int("status", http.StatusBadRequest), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		l.Info(op+"_failed", zap.Int("status", http.StatusNotFound), zap.Error(err))
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	default:
		l.Error(op+"_failed", zap.Int("status", http.StatusInternalServerError), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
