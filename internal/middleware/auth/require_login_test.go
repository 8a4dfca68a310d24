package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/venues/internal/domain"
	"github.com/Skotchmaster/venues/internal/models"
	"github.com/Skotchmaster/venues/internal/testutil"
	"github.com/Skotchmaster/venues/pkg/tokens"
)

func newIssuer(t *testing.T, now func() time.Time) *tokens.Issuer {
	t.Helper()
	iss, err := tokens.NewIssuer(tokens.AuthConfig{
		SigningKey: []byte("middleware-key"),
		Issuer:     "venues-api",
		Audience:   "venues-clients",
	}, now)
	require.NoError(t, err)
	return iss
}

func serve(e *echo.Echo, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireLogin(t *testing.T) {
	t.Parallel()

	clock := testutil.NewClock()
	iss := newIssuer(t, clock.Now)

	user := &models.User{ID: uuid.New(), Email: "alice@example.com", Username: "alice", IsActive: true}
	pair, err := iss.Issue(domain.TokenSubject(domain.Individual{Account: user}))
	require.NoError(t, err)

	e := echo.New()
	m := NewBearerAuth(iss)
	e.GET("/private", func(c echo.Context) error {
		return c.String(http.StatusOK, Subject(c)+"|"+Role(c))
	}, m.RequireLogin)

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"valid bearer", "Bearer " + pair.AccessToken, http.StatusOK},
		{"lowercase scheme", "bearer " + pair.AccessToken, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + pair.AccessToken, http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"refresh value", "Bearer " + pair.RefreshToken, http.StatusUnauthorized},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, tt.header)
			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, user.ID.String()+"|individual", rec.Body.String())
			}
		})
	}
}

func TestRequireLogin_Expired(t *testing.T) {
	t.Parallel()

	clock := testutil.NewClock()
	iss := newIssuer(t, clock.Now)

	pair, err := iss.Issue(domain.TokenSubject(domain.Individual{Account: &models.User{ID: uuid.New(), Email: "bob@example.com"}}))
	require.NoError(t, err)

	e := echo.New()
	e.GET("/private", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewBearerAuth(iss).RequireLogin)

	clock.Advance(16 * time.Minute)
	assert.Equal(t, http.StatusUnauthorized, serve(e, "Bearer "+pair.AccessToken).Code)
}

func TestRequireRoleAndScope(t *testing.T) {
	t.Parallel()

	clock := testutil.NewClock()
	iss := newIssuer(t, clock.Now)

	person, err := iss.Issue(domain.TokenSubject(domain.Individual{Account: &models.User{ID: uuid.New(), Email: "a@example.com"}}))
	require.NoError(t, err)
	venue, err := iss.Issue(domain.TokenSubject(domain.Company{Account: &models.Company{ID: uuid.New(), Email: "v@example.com", Name: "Blue Note"}}))
	require.NoError(t, err)

	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	m := NewBearerAuth(iss)

	roleE := echo.New()
	roleE.GET("/private", ok, m.RequireLogin, RequireRole(string(domain.KindCompany)))
	scopeE := echo.New()
	scopeE.GET("/private", ok, m.RequireLogin, RequireScope("manage"))

	assert.Equal(t, http.StatusForbidden, serve(roleE, "Bearer "+person.AccessToken).Code)
	assert.Equal(t, http.StatusOK, serve(roleE, "Bearer "+venue.AccessToken).Code)
	assert.Equal(t, http.StatusForbidden, serve(scopeE, "Bearer "+person.AccessToken).Code)
	assert.Equal(t, http.StatusOK, serve(scopeE, "Bearer "+venue.AccessToken).Code)
}

func TestRequireRole_WithoutLogin(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.GET("/private", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RequireRole("company"))
	assert.Equal(t, http.StatusUnauthorized, serve(e, "").Code)
}
