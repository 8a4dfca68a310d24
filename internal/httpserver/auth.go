package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Skotchmaster/venues/internal/domain"
	"github.com/Skotchmaster/venues/internal/logging"
	authmw "github.com/Skotchmaster/venues/internal/middleware/auth"
	"github.com/Skotchmaster/venues/internal/service"
	"github.com/Skotchmaster/venues/internal/transport"
)

const (
	badCredentials = "invalid username or password"
	badToken       = "invalid or expired refresh token"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func bindAndValidate(c echo.Context, l *zap.Logger, op string, req any) error {
	if err := c.Bind(req); err != nil {
		l.Warn(op+"_error", zap.Int("status", http.StatusBadRequest), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return c.Validate(req)
}

func authResponse(res *service.AuthResult) transport.AuthResponse {
	return transport.NewAuthResponse(res.AccessToken, res.RefreshToken, res.ExpiresAt, res.Principal)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With(zap.String("handler", "auth_login"))

	var req transport.LoginRequest
	if err := bindAndValidate(c, l, "login", &req); err != nil {
		return err
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password, c.RealIP())
	if err != nil {
		return httpError(l, "login", err, badCredentials)
	}
	return c.JSON(http.StatusOK, authResponse(res))
}

func (h *AuthHTTP) CompanyLogin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With(zap.String("handler", "auth_company_login"))

	var req transport.CompanyLoginRequest
	if err := bindAndValidate(c, l, "company_login", &req); err != nil {
		return err
	}

	res, err := h.Svc.CompanyLogin(ctx, req.Email, req.Password, c.RealIP())
	if err != nil {
		return httpError(l, "company_login", err, badCredentials)
	}
	return c.JSON(http.StatusOK, authResponse(res))
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With(zap.String("handler", "auth_register"))

	var req transport.RegisterRequest
	if err := bindAndValidate(c, l, "register", &req); err != nil {
		return err
	}

	res, err := h.Svc.Register(ctx, service.RegisterUser{
		Username:    req.Username,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	}, c.RealIP())
	if err != nil {
		return httpError(l, "register", err, badCredentials)
	}
	return c.JSON(http.StatusCreated, authResponse(res))
}

// CompanyRegister accepts multipart/urlencoded forms as well as JSON.
func (h *AuthHTTP) CompanyRegister(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With(zap.String("handler", "auth_company_register"))

	var req transport.CompanyRegisterRequest
	if err := bindAndValidate(c, l, "company_register", &req); err != nil {
		return err
	}

	res, err := h.Svc.RegisterCompany(ctx, service.RegisterCompany{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Category:    req.Category,
		Description: req.Description,
		TaxID:       req.TaxID,
		PhoneNumber: req.PhoneNumber,
	}, c.RealIP())
	if err != nil {
		return httpError(l, "company_register", err, badCredentials)
	}
	return c.JSON(http.StatusCreated, authResponse(res))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With(zap.String("handler", "auth_refresh"))

	var req transport.RefreshRequest
	if err := bindAndValidate(c, l, "refresh", &req); err != nil {
		return err
	}

	res, err := h.Svc.Refresh(ctx, req.RefreshToken, c.RealIP())
	if err != nil {
		return httpError(l, "refresh", err, badToken)
	}
	return c.JSON(http.StatusOK, authResponse(res))
}

// LogOut always answers 200 once the caller is authenticated; an unknown or
// already revoked refresh value is not an error.
func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With(zap.String("handler", "auth_logout"), zap.String("user_id", authmw.Subject(c)))

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("logout_error", zap.Int("status", http.StatusBadRequest), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if req.RefreshToken != "" {
		if _, err := h.Svc.LogOut(ctx, req.RefreshToken, c.RealIP()); err != nil {
			return httpError(l, "logout", err, badToken)
		}
	}

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "logged out"})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With(zap.String("handler", "auth_me"))

	p, err := h.Svc.Me(ctx, authmw.Subject(c), authmw.Role(c))
	if err != nil {
		return httpError(l, "me", err, "invalid or expired token")
	}
	switch v := p.(type) {
	case domain.Individual:
		return c.JSON(http.StatusOK, transport.NewUserDto(v.Account))
	case domain.Company:
		return c.JSON(http.StatusOK, transport.NewCompanyDto(v.Account))
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

// ReindexCompany republishes the caller's company profile to search. The
// route is guarded by the company role and the manage scope.
func (h *AuthHTTP) ReindexCompany(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With(zap.String("handler", "company_reindex"))

	err := h.Svc.ReindexCompany(ctx, authmw.Subject(c))
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, service.ErrNoIndex):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search is not configured")
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrNotFound):
		return httpError(l, "company_reindex", err, "invalid or expired token")
	default:
		l.Error("company_reindex_failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "search unavailable")
	}
}
