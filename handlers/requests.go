package handlers

import (
	"errors"
	"regexp"
	"time"

	"github.com/BehruzbekUmarov/ManagementSystem/apperror"
	"github.com/BehruzbekUmarov/ManagementSystem/services/credentials"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const dateLayout = "2006-01-02"

var ErrInvalidBody = apperror.Validation("invalid_body", "request body could not be parsed")

type validatable interface {
	Validate() error
}

// bindAndValidate decodes the request into req and runs its rules.
func bindAndValidate(c echo.Context, req validatable) error {
	if err := c.Bind(req); err != nil {
		return ErrInvalidBody.Wrap(err)
	}
	return apperror.FromValidation(req.Validate())
}

// ValidateStringEquals checks that the value equals str.
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

func genderRule() validation.Rule {
	return validation.In(credentials.GenderMale, credentials.GenderFemale).Error("must be Male or Female")
}

var codeRule = validation.Match(regexp.MustCompile(`^[0-9]{4}$`)).Error("must be a 4 digit code")

// requiredID rejects the nil UUID, which validation.Required accepts.
func requiredID(value any) error {
	if id, _ := value.(uuid.UUID); id == uuid.Nil {
		return errors.New("cannot be blank")
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 100)),
	)
}

type SignUpRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Role            string `json:"role"`
}

// Validate checks shape only. Password policy, confirmation and role are
// enforced by the auth service so the API reports them with dedicated reasons.
func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.ConfirmPassword, validation.Required),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Role, validation.Required),
	)
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (r VerifyEmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Code, validation.Required, codeRule),
	)
}

type ForgetPasswordRequest struct {
	Email string `json:"email"`
}

func (r ForgetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type ResetPasswordByCodeRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
	Code        string `json:"code"`
}

func (r ResetPasswordByCodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Code, validation.Required, codeRule),
	)
}

type CreateUserRequest struct {
	Email     string              `json:"email"`
	Password  string              `json:"password"`
	FirstName string              `json:"firstName"`
	LastName  string              `json:"lastName"`
	RoleName  string              `json:"roleName"`
	Branch    string              `json:"branch"`
	Salary    float64             `json:"salary"`
	Gender    *credentials.Gender `json:"gender"`
	BirthDate *time.Time          `json:"birthDate"`
}

func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.RoleName, validation.Required),
		validation.Field(&r.Branch, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Salary, validation.Min(0.0)),
		validation.Field(&r.Gender, genderRule()),
	)
}

type UpdateUserRequest struct {
	ID        uuid.UUID           `json:"id"`
	FirstName string              `json:"firstName"`
	LastName  string              `json:"lastName"`
	Email     string              `json:"email"`
	Gender    *credentials.Gender `json:"gender"`
	BirthDate *time.Time          `json:"birthDate"`
}

func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.By(requiredID)),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Length(3, 255), is.Email),
		validation.Field(&r.Gender, genderRule()),
	)
}

type ChangePasswordRequest struct {
	UserID          uuid.UUID `json:"userId"`
	OldPassword     string    `json:"oldPassword"`
	NewPassword     string    `json:"newPassword"`
	ConfirmPassword string    `json:"confirmPassword"`
}

func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.By(requiredID)),
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.ConfirmPassword, validation.Required, validation.By(ValidateStringEquals(r.NewPassword))),
	)
}

type AdminResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

func (r AdminResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NewPassword, validation.Required, validation.Length(1, 100)),
	)
}

type UserRolesRequest struct {
	UserID uuid.UUID `json:"userId"`
	Roles  []string  `json:"roles"`
}

func (r UserRolesRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.By(requiredID)),
		validation.Field(&r.Roles, validation.Required, validation.Each(validation.Required)),
	)
}

type AddPointsRequest struct {
	ID     uuid.UUID `json:"id"`
	Points int       `json:"points"`
}

func (r AddPointsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.By(requiredID)),
	)
}
