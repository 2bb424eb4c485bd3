package auth

import (
	"context"
	"errors"
	"time"

	"github.com/BehruzbekUmarov/ManagementSystem/apperror"
	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"github.com/BehruzbekUmarov/ManagementSystem/services/credentials"
	"github.com/BehruzbekUmarov/ManagementSystem/services/jwt"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"github.com/BehruzbekUmarov/ManagementSystem/services/otp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrAlreadyRegistered = apperror.Conflict("already_registered", "a user with this email is already registered")
	ErrPasswordMismatch  = apperror.Validation("password_mismatch", "password and confirmation do not match")
	ErrInvalidRole       = apperror.Validation("invalid_role", "requested role is not available")
	ErrEmailNotVerified  = apperror.Forbidden("email_not_verified", "email is not verified; a new code has been sent")
	ErrUserInactive      = apperror.Forbidden("user_inactive", "account is deactivated")
)

type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	Role            string
}

type RegisteredUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Roles     []string  `json:"roles"`
}

type LoginResult struct {
	ID         uuid.UUID           `json:"id"`
	Token      string              `json:"token"`
	Expiration time.Time           `json:"expiration"`
	FirstName  string              `json:"firstName"`
	LastName   string              `json:"lastName"`
	Gender     *credentials.Gender `json:"gender"`
	BirthDate  *time.Time          `json:"birthDate"`
	Email      string              `json:"email"`
	Roles      []string            `json:"roles"`
}

type ResetPasswordInput struct {
	Email       string
	NewPassword string
	Code        string
}

// Service runs the registration, login, verification and password reset
// flows.
type Service struct {
	config    *config.Config
	store     *credentials.Store
	codes     *otp.Service
	tokens    *jwt.Service
	passwords *Passwords
	logger    *logging.Service
}

func NewService(cfg *config.Config, store *credentials.Store, codes *otp.Service, tokens *jwt.Service, passwords *Passwords, logger *logging.Service) *Service {
	return &Service{
		config:    cfg,
		store:     store,
		codes:     codes,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates an unconfirmed user holding User plus the requested role
// and emails a verification code. An earlier unconfirmed registration for the
// same email is replaced.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisteredUser, error) {
	email := credentials.NormalizeEmail(in.Email)
	s.logger.Info("registration attempt", zap.String("email", email), zap.String("role", in.Role))

	if in.Password != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	role, ok := credentials.CanonicalRole(s.config.Seed.Roles, in.Role)
	if !ok {
		return nil, ErrInvalidRole
	}

	existing, err := s.store.FindUserByEmail(ctx, email)
	switch {
	case err == nil && existing.EmailConfirmed:
		s.logger.Warn("registration rejected: already registered", zap.String("email", email))
		return nil, ErrAlreadyRegistered
	case err != nil && !errors.Is(err, credentials.ErrUserNotFound):
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if err := s.store.DeleteUser(ctx, existing.ID); err != nil {
			return nil, err
		}
		s.logger.Info("stale unconfirmed registration replaced", zap.String("email", email))
	}

	user := &credentials.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, user, []string{credentials.RoleUser, role}); err != nil {
		return nil, err
	}

	if _, err := s.codes.IssueCode(ctx, email, otp.PurposeEmailVerification); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.String()), zap.String("email", email))
	return &RegisteredUser{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Roles:     user.RoleNames(),
	}, nil
}

// Login checks the password and returns a signed access token. An
// unconfirmed user gets a fresh code and ErrEmailNotVerified.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = credentials.NormalizeEmail(email)

	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, credentials.ErrUserNotFound) {
			s.logger.Warn("login failed: unknown user", zap.String("email", email))
		}
		return nil, err
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.Warn("login failed: incorrect password", zap.String("email", email))
		return nil, err
	}

	if !user.EmailConfirmed {
		if _, err := s.codes.IssueCode(ctx, email, otp.PurposeEmailVerification); err != nil {
			return nil, err
		}
		s.logger.Info("login blocked: email not verified", zap.String("email", email))
		return nil, ErrEmailNotVerified
	}

	if !user.IsActive {
		s.logger.Warn("login blocked: user inactive", zap.String("email", email))
		return nil, ErrUserInactive
	}

	roles := user.RoleNames()
	issued, err := s.tokens.Issue(jwt.Subject{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Roles:     roles,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("login succeeded", zap.String("user_id", user.ID.String()), zap.String("email", email))
	return &LoginResult{
		ID:         user.ID,
		Token:      issued.Token,
		Expiration: issued.ExpiresAt,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Gender:     user.Gender,
		BirthDate:  user.BirthDate,
		Email:      user.Email,
		Roles:      roles,
	}, nil
}

// VerifyEmail confirms the user's email when code matches the live code.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (bool, error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, credentials.ErrUserNotFound) {
			s.logger.Warn("email verification failed: unknown user", zap.String("email", credentials.NormalizeEmail(email)))
		}
		return false, err
	}

	token, err := s.codes.VerifyCode(ctx, user.Email, code)
	if err != nil {
		return false, err
	}
	if err := s.codes.Consume(ctx, token); err != nil {
		return false, err
	}
	if err := s.store.ConfirmEmail(ctx, user.ID); err != nil {
		return false, err
	}

	s.logger.Info("email verified", zap.String("user_id", user.ID.String()), zap.String("email", user.Email))
	return true, nil
}

// ForgetPassword emails a password reset code to an existing user.
func (s *Service) ForgetPassword(ctx context.Context, email string) (bool, error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, credentials.ErrUserNotFound) {
			s.logger.Warn("password reset request for unknown user", zap.String("email", credentials.NormalizeEmail(email)))
		}
		return false, err
	}
	if _, err := s.codes.IssueCode(ctx, user.Email, otp.PurposePasswordReset); err != nil {
		return false, err
	}
	s.logger.Info("password reset code sent", zap.String("email", user.Email))
	return true, nil
}

// ResetPassword replaces the user's password once code is verified. The old
// password is not required.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) (bool, error) {
	user, err := s.store.FindUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, credentials.ErrUserNotFound) {
			s.logger.Warn("password reset failed: unknown user", zap.String("email", credentials.NormalizeEmail(in.Email)))
		}
		return false, err
	}

	token, err := s.codes.VerifyCode(ctx, user.Email, in.Code)
	if err != nil {
		return false, err
	}

	hash, err := s.passwords.Hash(in.NewPassword)
	if err != nil {
		return false, err
	}

	if err := s.codes.Consume(ctx, token); err != nil {
		return false, err
	}
	if err := s.store.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return false, err
	}

	s.logger.Info("password reset", zap.String("user_id", user.ID.String()), zap.String("email", user.Email))
	return true, nil
}
