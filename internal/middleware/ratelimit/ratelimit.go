package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"github.com/Skotchmaster/venues/internal/logging"
)

// PerIP limits requests by client IP using an in-memory store.
// rateFormatted: "20-M", "1000-H", "5-S". Empty disables limiting.
func PerIP(rateFormatted string) (echo.MiddlewareFunc, error) {
	if rateFormatted == "" {
		return noop, nil
	}
	rate, err := limiter.NewRateFromFormatted(rateFormatted)
	if err != nil {
		return nil, err
	}
	return middleware(limiter.New(memory.NewStore(), rate)), nil
}

func middleware(instance *limiter.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			lc, err := instance.Get(ctx, "ip:"+c.RealIP())
			if err != nil {
				logging.FromContext(ctx).Warn("rate_limit_unavailable", zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))

			if lc.Reached {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

func noop(next echo.HandlerFunc) echo.HandlerFunc { return next }
