package users

import (
	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"github.com/BehruzbekUmarov/ManagementSystem/services/auth"
	"github.com/BehruzbekUmarov/ManagementSystem/services/credentials"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"go.uber.org/fx"
)

func ProvideUserService(cfg *config.Config, store *credentials.Store, passwords *auth.Passwords, logger *logging.Service) *Service {
	return NewService(cfg, store, passwords, logger.Named("users"))
}

var Module = fx.Options(
	fx.Provide(ProvideUserService),
)
