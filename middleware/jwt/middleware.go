package jwt

import (
	"context"
	"errors"
	"strings"

	"github.com/BehruzbekUmarov/ManagementSystem/apperror"
	"github.com/BehruzbekUmarov/ManagementSystem/services/credentials"
	"github.com/BehruzbekUmarov/ManagementSystem/services/jwt"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	PrincipalKey = "_jwt_principal"
	ClaimsKey    = "_jwt_claims"
)

var (
	ErrMissingToken     = apperror.Unauthorized(apperror.ReasonMissingToken, "bearer token required")
	ErrInsufficientRole = apperror.Forbidden(apperror.ReasonInsufficientRole, "insufficient role for this operation")
)

// Principal is the authenticated caller, taken from a validated access token.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Roles  []string
}

func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

func (p *Principal) IsAdmin() bool {
	return p.HasRole(credentials.RoleAdmin)
}

type principalCtxKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFrom returns the caller stored by RequireJWT, or nil.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalCtxKey{}).(*Principal)
	return p
}

// IsSelfOrAdmin reports whether p may act on the user identified by target.
func IsSelfOrAdmin(target uuid.UUID, p *Principal) bool {
	if p == nil {
		return false
	}
	return p.UserID == target || p.IsAdmin()
}

// RequireJWT authenticates the Bearer token in the Authorization header and
// stores the resulting Principal on the echo context and the request context.
func RequireJWT(jwtService *jwt.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return ErrMissingToken
			}

			scheme, tokenString, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") {
				return jwt.ErrInvalidToken
			}
			tokenString = strings.TrimSpace(tokenString)
			if tokenString == "" {
				return ErrMissingToken
			}

			claims, err := jwtService.Validate(tokenString)
			if err != nil {
				if errors.Is(err, jwt.ErrExpiredToken) {
					return jwt.ErrExpiredToken
				}
				return jwt.ErrInvalidToken
			}

			principal := &Principal{
				UserID: claims.UserID,
				Email:  claims.Subject,
				Roles:  claims.Roles,
			}
			c.Set(ClaimsKey, claims)
			c.Set(PrincipalKey, principal)
			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), principal)))

			return next(c)
		}
	}
}

// RequireRoles lets the request through when the principal holds at least
// one of roles. It must run after RequireJWT.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := GetPrincipal(c)
			if principal == nil {
				return ErrMissingToken
			}
			for _, role := range roles {
				if principal.HasRole(role) {
					return next(c)
				}
			}
			return ErrInsufficientRole
		}
	}
}

func GetPrincipal(c echo.Context) *Principal {
	if p, ok := c.Get(PrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

func GetClaims(c echo.Context) *jwt.Claims {
	if claims, ok := c.Get(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}
