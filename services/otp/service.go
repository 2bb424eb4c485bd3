// Package otp issues and verifies the four-digit codes emailed for address
// verification and password reset.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/BehruzbekUmarov/ManagementSystem/apperror"
	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"github.com/BehruzbekUmarov/ManagementSystem/services/credentials"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"go.uber.org/zap"
)

const (
	codeMin = 1000
	codeMax = 9999

	TemplateName = "otp_code"
)

var (
	ErrCodeNotFound   = credentials.ErrTokenNotFound
	ErrCodeUsed       = apperror.Unauthorized(apperror.ReasonCodeUsed, "verification code has already been used")
	ErrCodeExpired    = apperror.Unauthorized(apperror.ReasonCodeExpired, "verification code has expired")
	ErrIncorrectCode  = apperror.Unauthorized(apperror.ReasonIncorrectCode, "verification code is incorrect")
	ErrDeliveryFailed = apperror.New(apperror.KindInternal, "email_delivery_failed", "verification email could not be sent")
)

type Purpose string

const (
	PurposeEmailVerification Purpose = "email_verification"
	PurposePasswordReset     Purpose = "password_reset"
)

func (p Purpose) subject(appName string) string {
	if p == PurposePasswordReset {
		return appName + ": password reset code"
	}
	return appName + ": email verification code"
}

func (p Purpose) intro() string {
	if p == PurposePasswordReset {
		return "Use the code below to reset your password."
	}
	return "Use the code below to verify your email address."
}

// Mailer delivers rendered templates. *mail.Service satisfies it.
type Mailer interface {
	SendTemplate(ctx context.Context, templateName string, to []string, subject string, data map[string]any) error
}

type Service struct {
	config *config.Config
	store  *credentials.Store
	mailer Mailer
	logger *logging.Service
	now    func() time.Time
}

func NewService(cfg *config.Config, store *credentials.Store, mailer Mailer, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		store:  store,
		mailer: mailer,
		logger: logger,
		now:    time.Now,
	}
}

// GenerateCode returns a code drawn uniformly from [1000, 9999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+codeMin), nil
}

// IssueCode replaces any live code for email with a fresh one and emails it.
// The token is persisted before delivery; a delivery failure leaves it in
// place and returns ErrDeliveryFailed.
func (s *Service) IssueCode(ctx context.Context, email string, purpose Purpose) (*credentials.EmailVerificationToken, error) {
	email = credentials.NormalizeEmail(email)

	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}

	token := &credentials.EmailVerificationToken{Email: email, Code: code}
	if s.config.OTP.Expiry > 0 {
		expiresAt := s.now().Add(s.config.OTP.Expiry)
		token.ExpiresAt = &expiresAt
	}

	if err := s.store.UpsertToken(ctx, token); err != nil {
		s.logger.Error("failed to store verification code", zap.Error(err), zap.String("email", email))
		return nil, err
	}

	data := map[string]any{
		"AppName": s.config.App.Name,
		"Intro":   purpose.intro(),
		"Code":    code,
	}
	if s.config.OTP.Expiry > 0 {
		data["ExpiresIn"] = s.config.OTP.Expiry.String()
	}

	if err := s.mailer.SendTemplate(ctx, TemplateName, []string{email}, purpose.subject(s.config.App.Name), data); err != nil {
		s.logger.Error("failed to send verification code",
			zap.Error(err),
			zap.String("email", email),
			zap.String("purpose", string(purpose)))
		return nil, ErrDeliveryFailed.Wrap(err)
	}

	s.logger.Info("verification code issued",
		zap.String("email", email),
		zap.String("purpose", string(purpose)))
	return token, nil
}

// VerifyCode checks code against the live token for email without consuming
// it.
func (s *Service) VerifyCode(ctx context.Context, email, code string) (*credentials.EmailVerificationToken, error) {
	token, err := s.store.FindToken(ctx, email)
	if err != nil {
		return nil, err
	}

	switch {
	case s.config.OTP.SingleUse && token.Consumed():
		s.logger.Warn("verification code reused", zap.String("email", token.Email))
		return nil, ErrCodeUsed
	case token.Expired(s.now()):
		s.logger.Warn("verification code expired", zap.String("email", token.Email))
		return nil, ErrCodeExpired
	case subtle.ConstantTimeCompare([]byte(token.Code), []byte(code)) != 1:
		s.logger.Warn("verification code mismatch", zap.String("email", token.Email))
		return nil, ErrIncorrectCode
	}
	return token, nil
}

// Consume marks token as used. It is a no-op when single-use codes are
// disabled. Losing a race against another consumer or a reissue yields
// ErrCodeUsed.
func (s *Service) Consume(ctx context.Context, token *credentials.EmailVerificationToken) error {
	if !s.config.OTP.SingleUse {
		return nil
	}
	if err := s.store.ConsumeToken(ctx, token.Email, token.Code, s.now()); err != nil {
		if errors.Is(err, credentials.ErrTokenNotFound) {
			return ErrCodeUsed
		}
		return err
	}
	return nil
}
