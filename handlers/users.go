package handlers

import (
	"net/http"
	"time"

	"github.com/BehruzbekUmarov/ManagementSystem/apperror"
	jwtmw "github.com/BehruzbekUmarov/ManagementSystem/middleware/jwt"
	"github.com/BehruzbekUmarov/ManagementSystem/services/credentials"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"github.com/BehruzbekUmarov/ManagementSystem/services/users"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var (
	ErrInvalidID    = apperror.Validation("invalid_id", "identifier must be a UUID")
	ErrInvalidQuery = apperror.Validation("invalid_query", "query parameters could not be parsed")
)

type UserHandler struct {
	users  *users.Service
	logger *logging.Service
}

func NewUserHandler(svc *users.Service, logger *logging.Service) *UserHandler {
	return &UserHandler{users: svc, logger: logger}
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, ErrInvalidID.Wrap(err)
	}
	return id, nil
}

func (h *UserHandler) Create(c echo.Context) error {
	var req CreateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.users.Create(c.Request().Context(), users.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.RoleName,
		Branch:    req.Branch,
		Salary:    req.Salary,
		Gender:    req.Gender,
		BirthDate: req.BirthDate,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// parseUserQuery reads GetAll's query string. Absent optional parameters
// leave the corresponding filter unset.
func parseUserQuery(c echo.Context) (users.UserQuery, error) {
	q := users.UserQuery{Page: 1, PageSize: 10}
	var (
		gender                     string
		minSalary, maxSalary       float64
		minPoint, maxPoint         int
		birthDateFrom, birthDateTo time.Time
		isActive                   bool
	)

	b := echo.QueryParamsBinder(c).
		Int("pageNumber", &q.Page).
		Int("pageSize", &q.PageSize).
		String("gender", &gender).
		String("email", &q.Email).
		String("firstName", &q.FirstName).
		String("lastName", &q.LastName).
		Float64("minSalary", &minSalary).
		Float64("maxSalary", &maxSalary).
		Int("minPoint", &minPoint).
		Int("maxPoint", &maxPoint).
		Time("birthDateFrom", &birthDateFrom, dateLayout).
		Time("birthDateTo", &birthDateTo, dateLayout).
		String("branch", &q.Branch).
		Bool("isActive", &isActive).
		String("sortBy", &q.SortBy).
		Bool("sortDescending", &q.SortDesc)
	if err := b.BindError(); err != nil {
		return q, ErrInvalidQuery.Wrap(err)
	}

	if gender != "" {
		g := credentials.Gender(gender)
		if err := validation.Validate(g, genderRule()); err != nil {
			return q, apperror.FromValidation(validation.Errors{"gender": err})
		}
		q.Gender = &g
	}

	present := func(name string) bool { return c.QueryParam(name) != "" }
	if present("minSalary") {
		q.MinSalary = &minSalary
	}
	if present("maxSalary") {
		q.MaxSalary = &maxSalary
	}
	if present("minPoint") {
		q.MinPoint = &minPoint
	}
	if present("maxPoint") {
		q.MaxPoint = &maxPoint
	}
	if present("birthDateFrom") {
		q.BirthDateFrom = &birthDateFrom
	}
	if present("birthDateTo") {
		q.BirthDateTo = &birthDateTo
	}
	if present("isActive") {
		q.IsActive = &isActive
	}
	return q, nil
}

func (h *UserHandler) GetAll(c echo.Context) error {
	q, err := parseUserQuery(c)
	if err != nil {
		return err
	}
	page, err := h.users.List(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *UserHandler) GetByID(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetRoles(c echo.Context) error {
	id, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	roles, err := h.users.Roles(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *UserHandler) GetCount(c echo.Context) error {
	count, err := h.users.Count(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, count)
}

func (h *UserHandler) AddPoints(c echo.Context) error {
	var req AddPointsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.users.AddPoints(c.Request().Context(), req.ID, req.Points); err != nil {
		return err
	}
	return c.String(http.StatusOK, SuccessMessage)
}

func (h *UserHandler) Activate(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.users.Activate(c.Request().Context(), id); err != nil {
		return err
	}
	return c.String(http.StatusOK, SuccessMessage)
}

func (h *UserHandler) Deactivate(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.users.Deactivate(c.Request().Context(), id); err != nil {
		return err
	}
	return c.String(http.StatusOK, SuccessMessage)
}

func (h *UserHandler) Update(c echo.Context) error {
	var req UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.users.Update(c.Request().Context(), jwtmw.GetPrincipal(c), users.UpdateUserInput{
		ID:        req.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Gender:    req.Gender,
		BirthDate: req.BirthDate,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	err := h.users.ChangePassword(c.Request().Context(), jwtmw.GetPrincipal(c), req.UserID, req.OldPassword, req.NewPassword)
	if err != nil {
		return err
	}
	return c.String(http.StatusOK, SuccessMessage)
}

func (h *UserHandler) AdminResetPassword(c echo.Context) error {
	id, err := pathID(c, "userId")
	if err != nil {
		return err
	}
	var req AdminResetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.users.AdminResetPassword(c.Request().Context(), jwtmw.GetPrincipal(c), id, req.NewPassword); err != nil {
		return err
	}
	return c.String(http.StatusOK, SuccessMessage)
}

func (h *UserHandler) AddRoles(c echo.Context) error {
	var req UserRolesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	roles, err := h.users.AddRoles(c.Request().Context(), req.UserID, req.Roles)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *UserHandler) RemoveRoles(c echo.Context) error {
	var req UserRolesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	roles, err := h.users.RemoveRoles(c.Request().Context(), req.UserID, req.Roles)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.Request().Context(), jwtmw.GetPrincipal(c), id); err != nil {
		return err
	}
	return c.String(http.StatusOK, SuccessMessage)
}
