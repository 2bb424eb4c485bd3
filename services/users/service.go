// Package users implements account administration on top of the credentials
// store: listing, profile updates, password changes, role management and
// activation.
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/BehruzbekUmarov/ManagementSystem/apperror"
	"github.com/BehruzbekUmarov/ManagementSystem/config"
	jwtmw "github.com/BehruzbekUmarov/ManagementSystem/middleware/jwt"
	"github.com/BehruzbekUmarov/ManagementSystem/repository"
	"github.com/BehruzbekUmarov/ManagementSystem/services/auth"
	"github.com/BehruzbekUmarov/ManagementSystem/services/credentials"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmailTaken     = apperror.Conflict("email_taken", "a user with this email already exists")
	ErrInvalidRole    = apperror.Validation("invalid_role", "requested role is not available")
	ErrNotSelfOrAdmin = apperror.Forbidden("not_self_or_admin", "only the user or an administrator may do this")
	ErrAdminRequired  = apperror.Forbidden(apperror.ReasonInsufficientRole, "administrator role required")
	ErrInvalidPoints  = apperror.Validation("invalid_points", "points must be greater than zero")
	ErrUserInactive   = apperror.Forbidden("user_inactive", "user is deactivated")
)

// Columns that List may filter or sort on.
var listColumns = []string{
	"email", "first_name", "last_name", "gender", "salary", "given_point",
	"birth_date", "branch", "is_active", "created_at",
}

// sortColumns maps the accepted sort keys, matched case-insensitively, to
// their columns. Unknown keys sort by creation time.
var sortColumns = map[string]string{
	"firstname":  "first_name",
	"lastname":   "last_name",
	"email":      "email",
	"salary":     "salary",
	"gender":     "gender",
	"birthdate":  "birth_date",
	"branch":     "branch",
	"givenpoint": "given_point",
	"isactive":   "is_active",
	"createdat":  "created_at",
}

type UserDTO struct {
	ID             uuid.UUID           `json:"id"`
	Email          string              `json:"email"`
	FirstName      string              `json:"firstName"`
	LastName       string              `json:"lastName"`
	Salary         float64             `json:"salary"`
	Gender         *credentials.Gender `json:"gender"`
	BirthDate      *time.Time          `json:"birthDate"`
	Branch         string              `json:"branch"`
	GivenPoint     int                 `json:"givenPoint"`
	IsActive       bool                `json:"isActive"`
	EmailConfirmed bool                `json:"emailConfirmed"`
	CreatedAt      time.Time           `json:"createDate"`
}

func toDTO(u credentials.User) UserDTO {
	return UserDTO{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Salary:         u.Salary,
		Gender:         u.Gender,
		BirthDate:      u.BirthDate,
		Branch:         u.Branch,
		GivenPoint:     u.GivenPoint,
		IsActive:       u.IsActive,
		EmailConfirmed: u.EmailConfirmed,
		CreatedAt:      u.CreatedAt,
	}
}

type UserRoles struct {
	UserID uuid.UUID `json:"userId"`
	Roles  []string  `json:"roles"`
}

type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	Branch    string
	Salary    float64
	Gender    *credentials.Gender
	BirthDate *time.Time
}

// UpdateUserInput replaces the profile fields of user ID. An empty Email
// keeps the current address.
type UpdateUserInput struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
	Gender    *credentials.Gender
	BirthDate *time.Time
}

// UserQuery selects a page of users. Nil or empty fields do not filter.
type UserQuery struct {
	Page          int
	PageSize      int
	Gender        *credentials.Gender
	Email         string
	FirstName     string
	LastName      string
	MinSalary     *float64
	MaxSalary     *float64
	MinPoint      *int
	MaxPoint      *int
	BirthDateFrom *time.Time
	BirthDateTo   *time.Time
	Branch        string
	IsActive      *bool
	SortBy        string
	SortDesc      bool
}

func (q UserQuery) toQuery() repository.Query {
	var filters []repository.Filter
	add := func(column string, op repository.Operator, value any) {
		filters = append(filters, repository.Filter{Column: column, Op: op, Value: value})
	}

	if q.Gender != nil {
		add("gender", repository.OpEq, *q.Gender)
	}
	if s := strings.TrimSpace(q.Email); s != "" {
		add("email", repository.OpContains, s)
	}
	if s := strings.TrimSpace(q.FirstName); s != "" {
		add("first_name", repository.OpContains, s)
	}
	if s := strings.TrimSpace(q.LastName); s != "" {
		add("last_name", repository.OpContains, s)
	}
	if q.MinSalary != nil {
		add("salary", repository.OpGte, *q.MinSalary)
	}
	if q.MaxSalary != nil {
		add("salary", repository.OpLte, *q.MaxSalary)
	}
	if q.MinPoint != nil {
		add("given_point", repository.OpGte, *q.MinPoint)
	}
	if q.MaxPoint != nil {
		add("given_point", repository.OpLte, *q.MaxPoint)
	}
	if q.BirthDateFrom != nil {
		add("birth_date", repository.OpGte, *q.BirthDateFrom)
	}
	if q.BirthDateTo != nil {
		add("birth_date", repository.OpLte, *q.BirthDateTo)
	}
	if s := strings.TrimSpace(q.Branch); s != "" {
		add("branch", repository.OpEq, s)
	}
	if q.IsActive != nil {
		add("is_active", repository.OpEq, *q.IsActive)
	}

	column, ok := sortColumns[strings.ToLower(strings.TrimSpace(q.SortBy))]
	if !ok {
		column = "created_at"
	}

	return repository.Query{
		Filters: filters,
		Sort:    []repository.Sort{{Column: column, Desc: q.SortDesc}},
		Page:    repository.PageOptions{Page: q.Page, PageSize: q.PageSize},
	}
}

type Service struct {
	config    *config.Config
	store     *credentials.Store
	users     *repository.Repository[credentials.User]
	passwords *auth.Passwords
	logger    *logging.Service
}

func NewService(cfg *config.Config, store *credentials.Store, passwords *auth.Passwords, logger *logging.Service) *Service {
	return &Service{
		config:    cfg,
		store:     store,
		users:     repository.New[credentials.User](store.DB(context.Background()), listColumns...),
		passwords: passwords,
		logger:    logger,
	}
}

// Create adds an already confirmed user holding User plus role.
func (s *Service) Create(ctx context.Context, in CreateUserInput) (*UserDTO, error) {
	role, ok := credentials.CanonicalRole(s.config.Seed.Roles, in.Role)
	if !ok {
		return nil, ErrInvalidRole
	}

	email := credentials.NormalizeEmail(in.Email)
	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, credentials.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &credentials.User{
		Email:          email,
		PasswordHash:   hash,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		EmailConfirmed: true,
		IsActive:       true,
		Gender:         in.Gender,
		BirthDate:      in.BirthDate,
		Salary:         in.Salary,
		Branch:         in.Branch,
	}
	if err := s.store.CreateUser(ctx, user, []string{credentials.RoleUser, role}); err != nil {
		return nil, err
	}

	dto := toDTO(*user)
	return &dto, nil
}

func (s *Service) List(ctx context.Context, q UserQuery) (repository.Page[UserDTO], error) {
	page, err := s.users.Find(ctx, q.toQuery())
	if err != nil {
		return repository.Page[UserDTO]{}, err
	}
	return repository.Map(page, toDTO), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, credentials.ErrUserNotFound
		}
		return nil, err
	}
	dto := toDTO(*user)
	return &dto, nil
}

func (s *Service) Roles(ctx context.Context, id uuid.UUID) (*UserRoles, error) {
	roles, err := s.store.UserRoles(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UserRoles{UserID: id, Roles: roles}, nil
}

func (s *Service) FullName(ctx context.Context, id uuid.UUID) (string, error) {
	user, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.FullName(), nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.users.Count(ctx)
}

// Update replaces the profile of in.ID. The caller must be that user or an
// admin.
func (s *Service) Update(ctx context.Context, principal *jwtmw.Principal, in UpdateUserInput) (*UserDTO, error) {
	user, err := s.store.FindUserByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if !jwtmw.IsSelfOrAdmin(user.ID, principal) {
		return nil, ErrNotSelfOrAdmin
	}

	fields := map[string]any{
		"first_name": in.FirstName,
		"last_name":  in.LastName,
		"gender":     in.Gender,
		"birth_date": in.BirthDate,
	}
	if email := credentials.NormalizeEmail(in.Email); email != "" && email != user.Email {
		other, err := s.store.FindUserByEmail(ctx, email)
		switch {
		case err == nil && other.ID != user.ID:
			return nil, ErrEmailTaken
		case err != nil && !errors.Is(err, credentials.ErrUserNotFound):
			return nil, err
		}
		fields["email"] = email
	}

	if err := s.store.UpdateUserFields(ctx, user.ID, fields); err != nil {
		return nil, err
	}
	s.logger.Info("user updated", zap.String("user_id", user.ID.String()), zap.String("by", principalID(principal)))
	return s.Get(ctx, user.ID)
}

// ChangePassword sets a new password after checking the old one. The caller
// must be the user or an admin.
func (s *Service) ChangePassword(ctx context.Context, principal *jwtmw.Principal, id uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return err
	}
	if !jwtmw.IsSelfOrAdmin(user.ID, principal) {
		return ErrNotSelfOrAdmin
	}
	if err := s.passwords.Verify(user.PasswordHash, oldPassword); err != nil {
		return err
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}
	s.logger.Info("password changed", zap.String("user_id", user.ID.String()), zap.String("by", principalID(principal)))
	return nil
}

// AdminResetPassword overwrites a user's password without the old one.
func (s *Service) AdminResetPassword(ctx context.Context, principal *jwtmw.Principal, id uuid.UUID, newPassword string) error {
	if !principal.IsAdmin() {
		return ErrAdminRequired
	}
	user, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return err
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}
	s.logger.Info("password reset by admin", zap.String("user_id", user.ID.String()), zap.String("by", principalID(principal)))
	return nil
}

func (s *Service) AddRoles(ctx context.Context, id uuid.UUID, roles []string) (*UserRoles, error) {
	canonical, err := s.canonicalRoles(roles)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddRoles(ctx, id, canonical); err != nil {
		return nil, err
	}
	s.logger.Info("roles added", zap.String("user_id", id.String()), zap.Strings("roles", canonical))
	return s.Roles(ctx, id)
}

func (s *Service) RemoveRoles(ctx context.Context, id uuid.UUID, roles []string) (*UserRoles, error) {
	canonical, err := s.canonicalRoles(roles)
	if err != nil {
		return nil, err
	}
	if err := s.store.RemoveRoles(ctx, id, canonical); err != nil {
		return nil, err
	}
	s.logger.Info("roles removed", zap.String("user_id", id.String()), zap.Strings("roles", canonical))
	return s.Roles(ctx, id)
}

func (s *Service) canonicalRoles(roles []string) ([]string, error) {
	if len(roles) == 0 {
		return nil, ErrInvalidRole
	}
	canonical := make([]string, 0, len(roles))
	for _, r := range roles {
		role, ok := credentials.CanonicalRole(s.config.Seed.Roles, r)
		if !ok {
			return nil, ErrInvalidRole.WithFields(map[string]string{"roles": r + " is not a known role"})
		}
		canonical = append(canonical, role)
	}
	return canonical, nil
}

func (s *Service) Delete(ctx context.Context, principal *jwtmw.Principal, id uuid.UUID) error {
	if !principal.IsAdmin() {
		return ErrAdminRequired
	}
	user, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteToken(ctx, user.Email); err != nil {
		return err
	}
	s.logger.Info("user deleted by admin", zap.String("user_id", id.String()), zap.String("by", principalID(principal)))
	return nil
}

func (s *Service) Activate(ctx context.Context, id uuid.UUID) error {
	return s.setActive(ctx, id, true)
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.setActive(ctx, id, false)
}

func (s *Service) setActive(ctx context.Context, id uuid.UUID, active bool) error {
	if _, err := s.store.FindUserByID(ctx, id); err != nil {
		return err
	}
	if err := s.store.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.logger.Info("user activation changed", zap.String("user_id", id.String()), zap.Bool("active", active))
	return nil
}

// AddPoints credits points to an active user.
func (s *Service) AddPoints(ctx context.Context, id uuid.UUID, points int) error {
	if points <= 0 {
		return ErrInvalidPoints
	}
	user, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return ErrUserInactive
	}
	if err := s.store.AddPoints(ctx, id, points); err != nil {
		return err
	}
	s.logger.Info("points added", zap.String("user_id", id.String()), zap.Int("points", points))
	return nil
}

func principalID(p *jwtmw.Principal) string {
	if p == nil {
		return ""
	}
	return p.UserID.String()
}
