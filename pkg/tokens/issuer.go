package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrMissingSigningKey = errors.New("jwt signing key is not configured")

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// AuthConfig is built once at startup and handed to the issuer.
type AuthConfig struct {
	SigningKey []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Issuer struct {
	cfg AuthConfig
	now func() time.Time
}

// Pair is one issuance: a signed access token and the opaque refresh value
// that shares its jti.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	JWTID            string
	IssuedAt         time.Time
}

// Subject is the identity an access token is minted for. Individuals fill
// the person fields, companies the Company* fields.
type Subject struct {
	ID              uuid.UUID
	Role            string
	Email           string
	Scope           []string
	Username        string
	GivenName       string
	FamilyName      string
	CompanyName     string
	CompanyCategory string
}

func NewIssuer(cfg AuthConfig, now func() time.Time) (*Issuer, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, ErrMissingSigningKey
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{cfg: cfg, now: now}, nil
}

func (i *Issuer) Config() AuthConfig { return i.cfg }

func (i *Issuer) Issue(sub Subject) (*Pair, error) {
	if sub.ID == uuid.Nil || sub.Role == "" {
		return nil, errors.New("tokens: empty subject")
	}
	// JWT timestamps have second precision; truncate so exp in the token and
	// the ledger row agree.
	iat := i.now().UTC().Truncate(time.Second)
	jti := uuid.NewString()

	claims := AccessClaims{
		Email:           sub.Email,
		Role:            sub.Role,
		Scope:           sub.Scope,
		Username:        sub.Username,
		GivenName:       sub.GivenName,
		FamilyName:      sub.FamilyName,
		CompanyName:     sub.CompanyName,
		CompanyCategory: sub.CompanyCategory,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.ID.String(),
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings{i.cfg.Audience},
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(iat),
			NotBefore: jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(i.cfg.AccessTTL)),
		},
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("tokens: sign access: %w", err)
	}

	refresh, err := NewRefreshValue()
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:      access,
		AccessExpiresAt:  iat.Add(i.cfg.AccessTTL),
		RefreshToken:     refresh,
		RefreshExpiresAt: iat.Add(i.cfg.RefreshTTL),
		JWTID:            jti,
		IssuedAt:         iat,
	}, nil
}
