package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/venues/pkg/tokens"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxClaims = "claims"
)

func setUserContext(c echo.Context, claims *tokens.AccessClaims) {
	c.Set(ctxUserID, claims.Subject)
	c.Set(ctxRole, claims.Role)
	c.Set(ctxClaims, claims)
}

// Claims returns the access claims stored by RequireLogin, or nil.
func Claims(c echo.Context) *tokens.AccessClaims {
	claims, _ := c.Get(ctxClaims).(*tokens.AccessClaims)
	return claims
}

func Subject(c echo.Context) string {
	s, _ := c.Get(ctxUserID).(string)
	return s
}

func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}
