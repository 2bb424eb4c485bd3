package auth

import (
	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"github.com/BehruzbekUmarov/ManagementSystem/services/credentials"
	"github.com/BehruzbekUmarov/ManagementSystem/services/jwt"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"github.com/BehruzbekUmarov/ManagementSystem/services/otp"
	"go.uber.org/fx"
)

func ProvidePasswords(cfg *config.Config, logger *logging.Service) *Passwords {
	return NewPasswords(cfg, logger.Named("passwords"))
}

func ProvideAuthService(cfg *config.Config, store *credentials.Store, codes *otp.Service, tokens *jwt.Service, passwords *Passwords, logger *logging.Service) *Service {
	return NewService(cfg, store, codes, tokens, passwords, logger.Named("auth"))
}

var Module = fx.Options(
	fx.Provide(ProvidePasswords, ProvideAuthService),
)
