package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Skotchmaster/venues/internal/logging"
	"github.com/Skotchmaster/venues/pkg/tokens"
)

type TokenValidator interface {
	Validate(token string) (*tokens.AccessClaims, error)
}

type BearerAuth struct {
	Tokens TokenValidator
}

func NewBearerAuth(v TokenValidator) *BearerAuth {
	return &BearerAuth{Tokens: v}
}

// RequireLogin accepts only "Authorization: Bearer <access token>". Refresh
// values are never accepted here.
func (m *BearerAuth) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, ok := bearer(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := m.Tokens.Validate(raw)
		if err != nil {
			logging.FromContext(c.Request().Context()).Debug("access_token_rejected", zap.Error(err))
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		setUserContext(c, claims)
		return next(c)
	}
}

func bearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
