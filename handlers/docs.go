package handlers

import (
	"net/http"

	"github.com/BehruzbekUmarov/ManagementSystem/openapi"
	"github.com/BehruzbekUmarov/ManagementSystem/repository"
	"github.com/BehruzbekUmarov/ManagementSystem/services/auth"
	"github.com/BehruzbekUmarov/ManagementSystem/services/credentials"
	"github.com/BehruzbekUmarov/ManagementSystem/services/users"
	"github.com/getkin/kin-openapi/openapi3"
)

// DescribeRoutes documents every route mounted by RegisterRoutes.
func DescribeRoutes(doc *openapi.Document) {
	describeAuth(doc)
	describeUsers(doc)
}

func describeAuth(doc *openapi.Document) {
	doc.Route(http.MethodPost, "/Auth/LoginAsync").Tags("Auth").ID("login").
		Summary("Log in with email and password").
		Description("An unverified user is sent a fresh verification code and refused.").
		Body(LoginRequest{}).
		JSON(http.StatusOK, auth.LoginResult{}, "Access token and profile").
		Errors(http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusTooManyRequests).
		Build()

	doc.Route(http.MethodPost, "/Auth/SignUpAsync").Tags("Auth").ID("signUp").
		Summary("Register a new user").
		Description("The user gets the User role plus the requested role and must verify the emailed code before logging in.").
		Body(SignUpRequest{}).
		JSON(http.StatusOK, auth.RegisteredUser{}, "Registered user").
		Errors(http.StatusBadRequest, http.StatusConflict, http.StatusTooManyRequests).
		Build()

	doc.Route(http.MethodPost, "/Auth/VerifyEmail").Tags("Auth").ID("verifyEmail").
		Summary("Confirm an email address with the emailed code").
		Body(VerifyEmailRequest{}).
		Text(http.StatusOK, SuccessMessage).
		Errors(http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusTooManyRequests).
		Build()

	doc.Route(http.MethodPost, "/Auth/ForgetPassword").Tags("Auth").ID("forgetPassword").
		Summary("Email a password reset code").
		Body(ForgetPasswordRequest{}).
		Text(http.StatusOK, SuccessMessage).
		Errors(http.StatusBadRequest, http.StatusNotFound, http.StatusTooManyRequests).
		Build()

	doc.Route(http.MethodPost, "/Auth/ResetPassword").Tags("Auth").ID("resetPassword").
		Summary("Set a new password with the emailed code").
		Body(ResetPasswordByCodeRequest{}).
		Text(http.StatusOK, SuccessMessage).
		Errors(http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound, http.StatusTooManyRequests).
		Build()
}

func describeUsers(doc *openapi.Document) {
	admin := []string{credentials.RoleAdmin}
	staff := []string{credentials.RoleAdmin, credentials.RoleManager}
	user := func(method, path, id string) *openapi.Operation {
		return doc.Route(method, path).Tags("User").ID(id)
	}

	user(http.MethodPost, "/User/Create", "createUser").Secured(admin...).
		Summary("Create a confirmed user").
		Body(CreateUserRequest{}).
		JSON(http.StatusCreated, users.UserDTO{}, "Created user").
		Errors(http.StatusBadRequest, http.StatusConflict).
		Build()

	date := openapi3.NewStringSchema().WithFormat("date")
	user(http.MethodGet, "/User/GetAll", "listUsers").Secured(staff...).
		Summary("List users with filters, sorting and paging").
		Query("pageNumber", "1-based page", openapi3.NewIntegerSchema()).
		Query("pageSize", "Items per page", openapi3.NewIntegerSchema()).
		Query("gender", "Exact gender", openapi3.NewStringSchema().WithEnum(string(credentials.GenderMale), string(credentials.GenderFemale))).
		Query("email", "Email contains", openapi3.NewStringSchema()).
		Query("firstName", "First name contains", openapi3.NewStringSchema()).
		Query("lastName", "Last name contains", openapi3.NewStringSchema()).
		Query("minSalary", "Salary lower bound", openapi3.NewFloat64Schema()).
		Query("maxSalary", "Salary upper bound", openapi3.NewFloat64Schema()).
		Query("minPoint", "Points lower bound", openapi3.NewIntegerSchema()).
		Query("maxPoint", "Points upper bound", openapi3.NewIntegerSchema()).
		Query("birthDateFrom", "Born on or after", date).
		Query("birthDateTo", "Born on or before", date).
		Query("branch", "Exact branch", openapi3.NewStringSchema()).
		Query("isActive", "Active flag", openapi3.NewBoolSchema()).
		Query("sortBy", "firstName, lastName, email, salary, gender, birthDate, branch, givenPoint, isActive or createdAt", openapi3.NewStringSchema()).
		Query("sortDescending", "Reverse the sort order", openapi3.NewBoolSchema()).
		JSON(http.StatusOK, repository.Page[users.UserDTO]{}, "Page of users").
		Errors(http.StatusBadRequest).
		Build()

	user(http.MethodGet, "/User/GetById/:id", "getUser").Secured().
		Summary("Get a user").
		JSON(http.StatusOK, users.UserDTO{}, "User").
		Errors(http.StatusBadRequest, http.StatusNotFound).
		Build()

	user(http.MethodGet, "/User/GetRoles/:userId", "getUserRoles").Secured().
		Summary("Get the roles of a user").
		JSON(http.StatusOK, users.UserRoles{}, "Roles").
		Errors(http.StatusBadRequest, http.StatusNotFound).
		Build()

	user(http.MethodGet, "/User/GetCount", "countUsers").Secured().
		Summary("Count all users").
		JSON(http.StatusOK, int64(0), "Number of users").
		Build()

	user(http.MethodPost, "/User/AddPoints", "addPoints").Secured(staff...).
		Summary("Award points to an active user").
		Body(AddPointsRequest{}).
		Text(http.StatusOK, SuccessMessage).
		Errors(http.StatusBadRequest, http.StatusNotFound).
		Build()

	user(http.MethodPost, "/User/Activate/:id", "activateUser").Secured(admin...).
		Summary("Activate a user").
		Text(http.StatusOK, SuccessMessage).
		Errors(http.StatusBadRequest, http.StatusNotFound).
		Build()

	user(http.MethodPost, "/User/Deactivate/:id", "deactivateUser").Secured(admin...).
		Summary("Deactivate a user").
		Text(http.StatusOK, SuccessMessage).
		Errors(http.StatusBadRequest, http.StatusNotFound).
		Build()

	user(http.MethodPut, "/User/Update", "updateUser").Secured().
		Summary("Update a profile").
		Description("Allowed for the user themselves or an administrator.").
		Body(UpdateUserRequest{}).
		JSON(http.StatusOK, users.UserDTO{}, "Updated user").
		Errors(http.StatusBadRequest, http.StatusNotFound, http.StatusConflict).
		Build()

	user(http.MethodPut, "/User/ResetPassword", "changePassword").Secured().
		Summary("Change a password using the old one").
		Description("Allowed for the user themselves or an administrator.").
		Body(ChangePasswordRequest{}).
		Text(http.StatusOK, SuccessMessage).
		Errors(http.StatusBadRequest, http.StatusNotFound).
		Build()

	user(http.MethodPut, "/User/ResetPasswordForAdmin/:userId", "adminResetPassword").Secured(admin...).
		Summary("Set a user's password without the old one").
		Body(AdminResetPasswordRequest{}).
		Text(http.StatusOK, SuccessMessage).
		Errors(http.StatusBadRequest, http.StatusNotFound).
		Build()

	user(http.MethodPut, "/User/AddRolesToUser", "addRoles").Secured(admin...).
		Summary("Grant roles").
		Body(UserRolesRequest{}).
		JSON(http.StatusOK, users.UserRoles{}, "Roles after the change").
		Errors(http.StatusBadRequest, http.StatusNotFound).
		Build()

	user(http.MethodDelete, "/User/DeleteRolesFromUser", "removeRoles").Secured(admin...).
		Summary("Revoke roles").
		Body(UserRolesRequest{}).
		JSON(http.StatusOK, users.UserRoles{}, "Roles after the change").
		Errors(http.StatusBadRequest, http.StatusNotFound).
		Build()

	user(http.MethodDelete, "/User/Delete/:id", "deleteUser").Secured(admin...).
		Summary("Delete a user").
		Text(http.StatusOK, SuccessMessage).
		Errors(http.StatusBadRequest, http.StatusNotFound).
		Build()
}
