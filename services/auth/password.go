package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/BehruzbekUmarov/ManagementSystem/apperror"
	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidPassword       = apperror.Validation("invalid_password", "password does not meet the policy")
	ErrIncorrectPassword     = apperror.Unauthorized("incorrect_password", "password is incorrect")
	ErrPasswordHashingFailed = errors.New("failed to hash password")
)

// Passwords validates candidate passwords against the configured policy and
// handles bcrypt hashing.
type Passwords struct {
	policy config.AuthConfig
	cost   int
	logger *logging.Service
}

func NewPasswords(cfg *config.Config, logger *logging.Service) *Passwords {
	cost := cfg.Auth.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Passwords{policy: cfg.Auth, cost: cost, logger: logger}
}

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

func (p *Passwords) Validate(password string) error {
	if len(password) > MaxPasswordBytes {
		p.logger.Debug("password rejected: too long", zap.Int("bytes", len(password)))
		return invalidPassword(fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
	}
	if len(password) < p.policy.MinLength {
		p.logger.Debug("password rejected: too short", zap.Int("min_required", p.policy.MinLength))
		return invalidPassword(fmt.Sprintf("password must be at least %d characters", p.policy.MinLength))
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	var missing []string
	if p.policy.RequireUpper && !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if p.policy.RequireLower && !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if p.policy.RequireNumber && !hasNumber {
		missing = append(missing, "one number")
	}
	if p.policy.RequireSpecial && !hasSpecial {
		missing = append(missing, "one special character")
	}

	if len(missing) > 0 {
		p.logger.Debug("password rejected: missing requirements", zap.Strings("missing_requirements", missing))
		return invalidPassword("password must contain at least " + strings.Join(missing, ", "))
	}
	return nil
}

func invalidPassword(message string) error {
	err := *ErrInvalidPassword
	err.Message = message
	return &err
}

// Hash validates password and returns its bcrypt hash.
func (p *Passwords) Hash(password string) (string, error) {
	if err := p.Validate(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		p.logger.Error("password hashing failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrPasswordHashingFailed, err)
	}
	return string(hash), nil
}

func (p *Passwords) Verify(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrIncorrectPassword
	}
	return nil
}
