package app

import (
	"context"
	"fmt"

	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"github.com/BehruzbekUmarov/ManagementSystem/services/auth"
	"github.com/BehruzbekUmarov/ManagementSystem/services/credentials"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RegisterSeed seeds on start. It is invoked before the server's hook is
// registered, so the data exists before the first request.
func RegisterSeed(lc fx.Lifecycle, cfg *config.Config, store *credentials.Store, passwords *auth.Passwords, logger *logging.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return Seed(ctx, &cfg.Seed, store, passwords, logger.Named("seed"))
		},
	})
}

// requiredRoles back registration and the administrator account.
var requiredRoles = []string{credentials.RoleUser, credentials.RoleAdmin}

// Seed creates the configured roles and, when a password is set, the
// bootstrap administrator. Running it again changes nothing.
func Seed(ctx context.Context, cfg *config.SeedConfig, store *credentials.Store, passwords *auth.Passwords, logger *logging.Service) error {
	if err := store.SeedRoles(ctx, cfg.Roles); err != nil {
		return err
	}
	for _, role := range requiredRoles {
		exists, err := store.RoleExists(ctx, role)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("required role %q is not seeded", role)
		}
	}

	if cfg.AdminPassword == "" {
		logger.Info("admin seeding skipped: no password configured")
		return nil
	}

	hash, err := passwords.Hash(cfg.AdminPassword)
	if err != nil {
		return err
	}
	created, err := store.SeedAdmin(ctx, &credentials.User{
		Email:        credentials.NormalizeEmail(cfg.AdminEmail),
		PasswordHash: hash,
		FirstName:    cfg.AdminFirstName,
		LastName:     cfg.AdminLastName,
	})
	if err != nil {
		return err
	}
	if created {
		logger.Info("admin user seeded", zap.String("email", cfg.AdminEmail))
	}
	return nil
}
