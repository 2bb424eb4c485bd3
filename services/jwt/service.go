package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/BehruzbekUmarov/ManagementSystem/apperror"
	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken = apperror.Unauthorized(apperror.ReasonInvalidToken, "invalid access token")
	ErrExpiredToken = apperror.Unauthorized(apperror.ReasonTokenExpired, "access token has expired")
)

// Claims carries the identity and roles of an authenticated user. Subject is
// the user's email.
type Claims struct {
	UserID    uuid.UUID `json:"uid"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Roles     []string  `json:"roles"`
	jwt.RegisteredClaims
}

// Subject describes whom a token is issued to.
type Subject struct {
	UserID    uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Roles     []string
}

type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

type Service struct {
	config *config.JWTConfig
	logger *logging.Service
	now    func() time.Time
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	return &Service{
		config: &cfg.JWT,
		logger: logger,
		now:    time.Now,
	}
}

// Issue signs an HS256 access token for sub. The lifetime is the configured
// access expiry.
func (s *Service) Issue(sub Subject) (*IssuedToken, error) {
	now := s.now()
	expiresAt := now.Add(s.config.AccessExpiry)
	jti := uuid.New().String()

	roles := sub.Roles
	if roles == nil {
		roles = []string{}
	}

	claims := Claims{
		UserID:    sub.UserID,
		FirstName: sub.FirstName,
		LastName:  sub.LastName,
		Roles:     roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.config.Issuer,
			Subject:   sub.Email,
			Audience:  jwt.ClaimStrings{s.config.Audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.SecretKey))
	if err != nil {
		s.logger.Error("failed to sign access token", zap.Error(err))
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	s.logger.Debug("access token issued",
		zap.String("user_id", sub.UserID.String()),
		zap.String("jti", jti),
		zap.Strings("roles", roles))

	return &IssuedToken{Token: signed, ID: jti, ExpiresAt: expiresAt}, nil
}

// Validate parses tokenString and checks signature, algorithm, lifetime,
// issuer and audience.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	if s.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.config.Audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid algorithm family: %v", token.Header["alg"])
		}
		return []byte(s.config.SecretKey), nil
	}, opts...)
	if err != nil {
		s.logger.Warn("access token validation failed", zap.Error(err))
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken.Wrap(err)
		}
		return nil, ErrInvalidToken.Wrap(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
