package tokens

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidAccessToken = errors.New("invalid access token")

// AccessClaims is the payload of a bearer token. Individual tokens fill the
// person fields, company tokens fill the Company* fields.
type AccessClaims struct {
	Email           string   `json:"email"`
	Role            string   `json:"role"`
	Scope           []string `json:"scope"`
	Username        string   `json:"username,omitempty"`
	GivenName       string   `json:"given_name,omitempty"`
	FamilyName      string   `json:"family_name,omitempty"`
	CompanyName     string   `json:"company_name,omitempty"`
	CompanyCategory string   `json:"company_category,omitempty"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) HasScope(scope string) bool {
	for _, s := range c.Scope {
		if s == scope {
			return true
		}
	}
	return false
}

// Validate checks signature, algorithm, issuer, audience and expiry with no
// leeway. Every failure is reported as ErrInvalidAccessToken.
func (i *Issuer) Validate(tokenStr string) (*AccessClaims, error) {
	var claims AccessClaims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return i.cfg.SigningKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithAudience(i.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(0),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccessToken, err)
	}
	if !tkn.Valid || claims.Subject == "" {
		return nil, ErrInvalidAccessToken
	}
	return &claims, nil
}
