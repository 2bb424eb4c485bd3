package jwt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BehruzbekUmarov/ManagementSystem/apperror"
	"github.com/BehruzbekUmarov/ManagementSystem/services/jwt"
	"github.com/BehruzbekUmarov/ManagementSystem/testutils"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestJWTService() *jwt.Service {
	return jwt.NewService(testutils.GetTestConfig(), nil)
}

func issueToken(t *testing.T, svc *jwt.Service, roles ...string) (string, uuid.UUID) {
	t.Helper()
	id := uuid.New()
	issued, err := svc.Issue(jwt.Subject{UserID: id, Email: "alice@x.com", Roles: roles})
	require.NoError(t, err)
	return issued.Token, id
}

func newContext(e *echo.Echo, authHeader string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func assertAppError(t *testing.T, err error, status int, reason string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected *apperror.Error, got %T", err)
	assert.Equal(t, status, appErr.StatusCode())
	assert.Equal(t, reason, appErr.Reason)
}

func TestRequireJWT(t *testing.T) {
	e := echo.New()
	jwtService := setupTestJWTService()
	middleware := RequireJWT(jwtService)

	successHandler := func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	}

	rejections := []struct {
		name   string
		header string
		reason string
	}{
		{"missing authorization header", "", apperror.ReasonMissingToken},
		{"non-bearer scheme", "Basic dXNlcjpwYXNz", apperror.ReasonInvalidToken},
		{"no scheme separator", "Bearer", apperror.ReasonInvalidToken},
		{"empty bearer token", "Bearer    ", apperror.ReasonMissingToken},
		{"malformed token", "Bearer invalid.jwt.token", apperror.ReasonInvalidToken},
	}
	for _, tt := range rejections {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(e, tt.header)

			err := middleware(successHandler)(c)
			assertAppError(t, err, http.StatusUnauthorized, tt.reason)
			assert.Nil(t, GetPrincipal(c))
		})
	}

	t.Run("expired token", func(t *testing.T) {
		cfg := testutils.GetTestConfig()
		cfg.JWT.AccessExpiry = -time.Minute
		token, _ := issueToken(t, jwt.NewService(cfg, nil), "User")
		c, _ := newContext(e, "Bearer "+token)

		err := middleware(successHandler)(c)
		assertAppError(t, err, http.StatusUnauthorized, apperror.ReasonTokenExpired)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		cfg := testutils.GetTestConfig()
		cfg.JWT.SecretKey = "Zp4Lr8Nw2Qx6Tv0Ys3Bm7Kc1Hd5Gf9Ja4Ue8Io2"
		token, _ := issueToken(t, jwt.NewService(cfg, nil), "Admin")
		c, _ := newContext(e, "Bearer "+token)

		err := middleware(successHandler)(c)
		assertAppError(t, err, http.StatusUnauthorized, apperror.ReasonInvalidToken)
	})

	t.Run("valid token stores principal", func(t *testing.T) {
		token, id := issueToken(t, jwtService, "User", "Manager")

		var fromRequest *Principal
		handler := func(c echo.Context) error {
			fromRequest = PrincipalFrom(c.Request().Context())
			return c.String(http.StatusOK, "success")
		}

		c, rec := newContext(e, "Bearer "+token)
		require.NoError(t, middleware(handler)(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		principal := GetPrincipal(c)
		require.NotNil(t, principal)
		assert.Equal(t, id, principal.UserID)
		assert.Equal(t, "alice@x.com", principal.Email)
		assert.Equal(t, []string{"User", "Manager"}, principal.Roles)
		assert.Same(t, principal, fromRequest)

		claims := GetClaims(c)
		require.NotNil(t, claims)
		assert.Equal(t, id, claims.UserID)
	})

	t.Run("scheme is case-insensitive", func(t *testing.T) {
		token, _ := issueToken(t, jwtService, "User")
		c, _ := newContext(e, "bearer "+token)

		assert.NoError(t, middleware(successHandler)(c))
	})
}

func TestRequireRoles(t *testing.T) {
	e := echo.New()
	jwtService := setupTestJWTService()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	tests := []struct {
		name     string
		held     []string
		required []string
		allowed  bool
	}{
		{"single role held", []string{"User", "Admin"}, []string{"Admin"}, true},
		{"any of several", []string{"User", "Manager"}, []string{"Admin", "Manager"}, true},
		{"case-insensitive", []string{"admin"}, []string{"Admin"}, true},
		{"none held", []string{"User"}, []string{"Admin", "Manager"}, false},
		{"no roles", nil, []string{"User"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _ := issueToken(t, jwtService, tt.held...)
			c, rec := newContext(e, "Bearer "+token)

			err := RequireJWT(jwtService)(RequireRoles(tt.required...)(ok))(c)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, http.StatusNoContent, rec.Code)
				return
			}
			assertAppError(t, err, http.StatusForbidden, apperror.ReasonInsufficientRole)
		})
	}

	t.Run("without authentication", func(t *testing.T) {
		c, _ := newContext(e, "")

		err := RequireRoles("User")(ok)(c)
		assertAppError(t, err, http.StatusUnauthorized, apperror.ReasonMissingToken)
	})
}

func TestIsSelfOrAdmin(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	assert.True(t, IsSelfOrAdmin(self, &Principal{UserID: self, Roles: []string{"User"}}))
	assert.True(t, IsSelfOrAdmin(other, &Principal{UserID: self, Roles: []string{"User", "Admin"}}))
	assert.False(t, IsSelfOrAdmin(other, &Principal{UserID: self, Roles: []string{"User", "Manager"}}))
	assert.False(t, IsSelfOrAdmin(self, nil))
}

func TestPrincipalFrom(t *testing.T) {
	assert.Nil(t, PrincipalFrom(context.Background()))

	p := &Principal{UserID: uuid.New()}
	assert.Same(t, p, PrincipalFrom(WithPrincipal(context.Background(), p)))
}
