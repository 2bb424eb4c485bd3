package handlers

import (
	"github.com/BehruzbekUmarov/ManagementSystem/services/auth"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"github.com/BehruzbekUmarov/ManagementSystem/services/users"
	"go.uber.org/fx"
)

func ProvideAuthHandler(svc *auth.Service, logger *logging.Service) *AuthHandler {
	return NewAuthHandler(svc, logger.Named("auth-handler"))
}

func ProvideUserHandler(svc *users.Service, logger *logging.Service) *UserHandler {
	return NewUserHandler(svc, logger.Named("user-handler"))
}

var Module = fx.Options(
	fx.Provide(ProvideAuthHandler, ProvideUserHandler),
	fx.Invoke(RegisterRoutes, DescribeRoutes),
)
