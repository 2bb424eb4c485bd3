package credentials

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Canonical role names.
const (
	RoleAdmin   = "Admin"
	RoleUser    = "User"
	RoleManager = "Manager"
)

type User struct {
	ID             uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Email          string     `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash   string     `json:"-" gorm:"not null"`
	FirstName      string     `json:"firstName" gorm:"size:100"`
	LastName       string     `json:"lastName" gorm:"size:100"`
	EmailConfirmed bool       `json:"emailConfirmed" gorm:"default:false"`
	IsActive       bool       `json:"isActive" gorm:"default:true"`
	Gender         *Gender    `json:"gender,omitempty" gorm:"size:10"`
	BirthDate      *time.Time `json:"birthDate,omitempty"`
	Salary         float64    `json:"salary"`
	GivenPoint     int        `json:"givenPoint"`
	Branch         string     `json:"branch" gorm:"size:100"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	Roles          []Role     `json:"roles,omitempty" gorm:"many2many:user_roles;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = NormalizeEmail(u.Email)
	return nil
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// RoleNames lists the names of the loaded roles.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

type Role struct {
	ID             uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name           string    `json:"name" gorm:"size:50;not null"`
	NormalizedName string    `json:"-" gorm:"size:50;uniqueIndex;not null"`
}

func (Role) TableName() string {
	return "roles"
}

func (r *Role) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.NormalizedName = NormalizeRole(r.Name)
	return nil
}

// EmailVerificationToken holds the one live code for an email address.
// ExpiresAt is nil when codes do not expire.
type EmailVerificationToken struct {
	ID         uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Email      string     `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Code       string     `json:"-" gorm:"size:10;not null"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	ConsumedAt *time.Time `json:"consumedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (EmailVerificationToken) TableName() string {
	return "email_verification_tokens"
}

func (t *EmailVerificationToken) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.Email = NormalizeEmail(t.Email)
	return nil
}

func (t *EmailVerificationToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

func (t *EmailVerificationToken) Consumed() bool {
	return t.ConsumedAt != nil
}

// Models lists every persisted type for migration.
func Models() []any {
	return []any{&Role{}, &User{}, &EmailVerificationToken{}}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeRole(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// CanonicalRole resolves name case-insensitively against allowed and returns
// the allowed spelling.
func CanonicalRole(allowed []string, name string) (string, bool) {
	want := NormalizeRole(name)
	if want == "" {
		return "", false
	}
	for _, role := range allowed {
		if NormalizeRole(role) == want {
			return role, true
		}
	}
	return "", false
}
