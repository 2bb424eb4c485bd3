package otp

import (
	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"github.com/BehruzbekUmarov/ManagementSystem/services/credentials"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"github.com/BehruzbekUmarov/ManagementSystem/services/mail"
	"go.uber.org/fx"
)

// ProvideMailer exposes the SMTP mail service as the code sender. Decorate
// Mailer to swap delivery out.
func ProvideMailer(svc *mail.Service) Mailer {
	return svc
}

func ProvideService(cfg *config.Config, store *credentials.Store, mailer Mailer, logger *logging.Service) *Service {
	return NewService(cfg, store, mailer, logger.Named("otp"))
}

var Module = fx.Options(
	fx.Provide(ProvideMailer, ProvideService),
)
