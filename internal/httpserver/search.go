package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Skotchmaster/venues/internal/logging"
	"github.com/Skotchmaster/venues/internal/service/search"
	"github.com/Skotchmaster/venues/internal/util"
)

type CompanySearcher interface {
	Search(ctx context.Context, query string, from, size int) (search.Results, error)
}

type SearchHTTP struct {
	Index CompanySearcher
}

func (h *SearchHTTP) Companies(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With(zap.String("handler", "company_search"))

	if h.Index == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search is not configured")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, limit := util.Calculate(page, size)

	res, err := h.Index.Search(ctx, c.QueryParam("q"), from, limit)
	if errors.Is(err, search.ErrEmptyQuery) {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}
	if err != nil {
		l.Error("search_failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "search unavailable")
	}
	return c.JSON(http.StatusOK, res)
}
