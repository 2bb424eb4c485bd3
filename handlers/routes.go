package handlers

import (
	"github.com/BehruzbekUmarov/ManagementSystem/middleware/jwt"
	"github.com/BehruzbekUmarov/ManagementSystem/middleware/ratelimit"
	"github.com/BehruzbekUmarov/ManagementSystem/server"
	"github.com/BehruzbekUmarov/ManagementSystem/services/credentials"
	jwtservice "github.com/BehruzbekUmarov/ManagementSystem/services/jwt"
)

// RegisterRoutes mounts the Auth and User endpoints. Auth endpoints are
// public and rate-limited; every User endpoint requires a bearer token.
func RegisterRoutes(srv *server.Server, authHandler *AuthHandler, userHandler *UserHandler, tokens *jwtservice.Service, limiter ratelimit.Limiter) {
	limited := limiter.Apply()

	a := srv.Group("/Auth")
	a.POST("/LoginAsync", authHandler.Login, limited...)
	a.POST("/SignUpAsync", authHandler.SignUp, limited...)
	a.POST("/VerifyEmail", authHandler.VerifyEmail, limited...)
	a.POST("/ForgetPassword", authHandler.ForgetPassword, limited...)
	a.POST("/ResetPassword", authHandler.ResetPassword, limited...)

	admin := jwt.RequireRoles(credentials.RoleAdmin)
	staff := jwt.RequireRoles(credentials.RoleAdmin, credentials.RoleManager)

	u := srv.Group("/User", jwt.RequireJWT(tokens))
	u.POST("/Create", userHandler.Create, admin)
	u.GET("/GetAll", userHandler.GetAll, staff)
	u.GET("/GetById/:id", userHandler.GetByID)
	u.GET("/GetRoles/:userId", userHandler.GetRoles)
	u.GET("/GetCount", userHandler.GetCount)
	u.POST("/AddPoints", userHandler.AddPoints, staff)
	u.POST("/Activate/:id", userHandler.Activate, admin)
	u.POST("/Deactivate/:id", userHandler.Deactivate, admin)
	u.PUT("/Update", userHandler.Update)
	u.PUT("/ResetPassword", userHandler.ChangePassword)
	u.PUT("/ResetPasswordForAdmin/:userId", userHandler.AdminResetPassword, admin)
	u.PUT("/AddRolesToUser", userHandler.AddRoles, admin)
	u.DELETE("/DeleteRolesFromUser", userHandler.RemoveRoles, admin)
	u.DELETE("/Delete/:id", userHandler.Delete, admin)
}
