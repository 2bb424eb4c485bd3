package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BehruzbekUmarov/ManagementSystem/apperror"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound  = apperror.NotFound(apperror.ReasonUserNotFound, "user not found")
	ErrTokenNotFound = apperror.NotFound(apperror.ReasonCodeNotFound, "verification code not found")
	ErrUnknownRole   = apperror.Validation("unknown_role", "role does not exist")
)

// Store persists users, roles and verification tokens.
type Store struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewStore(db *gorm.DB, logger *logging.Service) *Store {
	return &Store{db: db, logger: logger}
}

// DB exposes the handle bound to ctx for callers that build their own queries.
func (s *Store) DB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Preload("Roles").Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, userLookupError(err)
	}
	return &user, nil
}

func (s *Store) FindUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Preload("Roles").First(&user, "id = ?", id).Error
	if err != nil {
		return nil, userLookupError(err)
	}
	return &user, nil
}

func userLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return fmt.Errorf("failed to load user: %w", err)
}

// CreateUser inserts user with the named roles in one transaction. Unknown
// role names fail with ErrUnknownRole and nothing is written.
func (s *Store) CreateUser(ctx context.Context, user *User, roleNames []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roles, err := findRoles(tx, roleNames)
		if err != nil {
			return err
		}
		user.Roles = roles
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		s.logger.Info("user created",
			zap.String("user_id", user.ID.String()),
			zap.String("email", user.Email),
			zap.Strings("roles", user.RoleNames()))
		return nil
	})
}

// DeleteUser removes the user and its role links.
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := User{ID: id}
		if err := tx.Model(&user).Association("Roles").Clear(); err != nil {
			return fmt.Errorf("failed to clear user roles: %w", err)
		}
		result := tx.Delete(&user)
		if result.Error != nil {
			return fmt.Errorf("failed to delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		s.logger.Info("user deleted", zap.String("user_id", id.String()))
		return nil
	})
}

// UpdateUserFields applies a column map to one user. Callers resolve the user
// first; a missing id is not an error here.
func (s *Store) UpdateUserFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if err := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return s.UpdateUserFields(ctx, id, map[string]any{"password_hash": hash})
}

func (s *Store) ConfirmEmail(ctx context.Context, id uuid.UUID) error {
	return s.UpdateUserFields(ctx, id, map[string]any{"email_confirmed": true})
}

func (s *Store) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.UpdateUserFields(ctx, id, map[string]any{"is_active": active})
}

// AddPoints increments the user's points atomically.
func (s *Store) AddPoints(ctx context.Context, id uuid.UUID, points int) error {
	return s.UpdateUserFields(ctx, id, map[string]any{"given_point": gorm.Expr("given_point + ?", points)})
}

func (s *Store) UserRoles(ctx context.Context, id uuid.UUID) ([]string, error) {
	user, err := s.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.RoleNames(), nil
}

// AddRoles links the named roles to the user. Existing links are kept.
func (s *Store) AddRoles(ctx context.Context, id uuid.UUID, roleNames []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, roles, err := userAndRoles(tx, id, roleNames)
		if err != nil {
			return err
		}
		if err := tx.Model(user).Association("Roles").Append(roles); err != nil {
			return fmt.Errorf("failed to add roles: %w", err)
		}
		return nil
	})
}

func (s *Store) RemoveRoles(ctx context.Context, id uuid.UUID, roleNames []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, roles, err := userAndRoles(tx, id, roleNames)
		if err != nil {
			return err
		}
		if err := tx.Model(user).Association("Roles").Delete(roles); err != nil {
			return fmt.Errorf("failed to remove roles: %w", err)
		}
		return nil
	})
}

func userAndRoles(tx *gorm.DB, id uuid.UUID, roleNames []string) (*User, []Role, error) {
	var user User
	if err := tx.First(&user, "id = ?", id).Error; err != nil {
		return nil, nil, userLookupError(err)
	}
	roles, err := findRoles(tx, roleNames)
	if err != nil {
		return nil, nil, err
	}
	return &user, roles, nil
}

func findRoles(tx *gorm.DB, names []string) ([]Role, error) {
	normalized := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		n := NormalizeRole(name)
		if _, ok := seen[n]; ok || n == "" {
			continue
		}
		seen[n] = struct{}{}
		normalized = append(normalized, n)
	}
	if len(normalized) == 0 {
		return nil, nil
	}

	var roles []Role
	if err := tx.Where("normalized_name IN ?", normalized).Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	if len(roles) != len(normalized) {
		return nil, ErrUnknownRole
	}
	return roles, nil
}

// RoleExists reports whether a role with the given name has been seeded.
func (s *Store) RoleExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Role{}).Where("normalized_name = ?", NormalizeRole(name)).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return count > 0, nil
}

// UpsertToken stores token as the single live code for its email. A second
// writer for the same email replaces the first.
func (s *Store) UpsertToken(ctx context.Context, token *EmailVerificationToken) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"code", "expires_at", "consumed_at", "updated_at"}),
	}).Create(token).Error
	if err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}
	return nil
}

func (s *Store) FindToken(ctx context.Context, email string) (*EmailVerificationToken, error) {
	var token EmailVerificationToken
	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to load verification token: %w", err)
	}
	return &token, nil
}

// ConsumeToken marks the live token for email as used, provided it still
// carries code. A concurrent reissue therefore is not consumed by mistake.
func (s *Store) ConsumeToken(ctx context.Context, email, code string, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&EmailVerificationToken{}).
		Where("email = ? AND code = ? AND consumed_at IS NULL", NormalizeEmail(email), code).
		Update("consumed_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to consume verification token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (s *Store) DeleteToken(ctx context.Context, email string) error {
	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).Delete(&EmailVerificationToken{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete verification token: %w", err)
	}
	return nil
}

// SeedRoles creates any missing role. Existing roles are left untouched.
func (s *Store) SeedRoles(ctx context.Context, names []string) error {
	for _, name := range names {
		var role Role
		result := s.db.WithContext(ctx).
			Where(Role{NormalizedName: NormalizeRole(name)}).
			Attrs(Role{Name: name}).
			FirstOrCreate(&role)
		if result.Error != nil {
			return fmt.Errorf("failed to seed role %q: %w", name, result.Error)
		}
		if result.RowsAffected > 0 {
			s.logger.Info("role seeded", zap.String("role", name))
		}
	}
	return nil
}

// SeedAdmin creates a confirmed administrator unless a user with the email
// already exists. It reports whether a user was created.
func (s *Store) SeedAdmin(ctx context.Context, admin *User) (bool, error) {
	if _, err := s.FindUserByEmail(ctx, admin.Email); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return false, err
	}

	admin.EmailConfirmed = true
	admin.IsActive = true
	if err := s.CreateUser(ctx, admin, []string{RoleUser, RoleAdmin}); err != nil {
		return false, fmt.Errorf("failed to seed admin: %w", err)
	}
	return true, nil
}
