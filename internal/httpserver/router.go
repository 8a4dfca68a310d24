package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/venues/internal/domain"
	"github.com/Skotchmaster/venues/internal/metrics"
	authmw "github.com/Skotchmaster/venues/internal/middleware/auth"
	"github.com/Skotchmaster/venues/internal/middleware/ratelimit"
	"github.com/Skotchmaster/venues/pkg/db"
)

type Deps struct {
	DB          *gorm.DB
	AuthHandler *AuthHTTP
	// SearchHandler may be nil when no search backend is configured.
	SearchHandler *SearchHTTP
	Tokens        authmw.TokenValidator
	// AuthRate is a ulule rate string such as "20-M"; empty disables limiting.
	AuthRate string
}

func Register(e *echo.Echo, d *Deps) error {
	if e.Validator == nil {
		e.Validator = NewValidator()
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context(), d.DB); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", metrics.Handler())

	limit, err := ratelimit.PerIP(d.AuthRate)
	if err != nil {
		return err
	}
	authMw := authmw.NewBearerAuth(d.Tokens)

	auth := e.Group("/auth")
	auth.POST("/login", d.AuthHandler.Login, limit)
	auth.POST("/register", d.AuthHandler.Register, limit)
	auth.POST("/refresh", d.AuthHandler.Refresh, limit)
	auth.POST("/company-login", d.AuthHandler.CompanyLogin, limit)
	auth.POST("/company-register", d.AuthHandler.CompanyRegister, limit)

	auth.POST("/logout", d.AuthHandler.LogOut, authMw.RequireLogin)
	auth.GET("/me", d.AuthHandler.Me, authMw.RequireLogin)

	search := d.SearchHandler
	if search == nil {
		search = &SearchHTTP{}
	}
	e.GET("/companies/search", search.Companies)
	e.POST("/companies/me/reindex", d.AuthHandler.ReindexCompany,
		authMw.RequireLogin,
		authmw.RequireRole(string(domain.KindCompany)),
		authmw.RequireScope("manage"),
	)
	return nil
}
