package app

import (
	"errors"
	"fmt"

	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"github.com/BehruzbekUmarov/ManagementSystem/database"
	"github.com/BehruzbekUmarov/ManagementSystem/handlers"
	"github.com/BehruzbekUmarov/ManagementSystem/middleware/ratelimit"
	"github.com/BehruzbekUmarov/ManagementSystem/openapi"
	"github.com/BehruzbekUmarov/ManagementSystem/server"
	"github.com/BehruzbekUmarov/ManagementSystem/services/auth"
	"github.com/BehruzbekUmarov/ManagementSystem/services/credentials"
	"github.com/BehruzbekUmarov/ManagementSystem/services/jwt"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"github.com/BehruzbekUmarov/ManagementSystem/services/mail"
	"github.com/BehruzbekUmarov/ManagementSystem/services/otp"
	"github.com/BehruzbekUmarov/ManagementSystem/services/users"
	"go.uber.org/fx"
)

type AppBuilder struct {
	config    *config.Config
	fxOptions []fx.Option
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.errors = append(b.errors, errors.New("config cannot be nil"))
		return b
	}
	b.config = cfg
	return b
}

// WithAutoConfig loads the configuration from .env and the environment.
func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.errors = append(b.errors, fmt.Errorf("failed to load config: %w", err))
		return b
	}
	b.config = cfg
	return b
}

// WithFxOptions appends options after the built-in modules, so fx.Decorate
// and fx.Replace can override them.
func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if b.config == nil && len(b.errors) == 0 {
		b.WithAutoConfig()
	}
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("configuration errors: %w", errors.Join(b.errors...))
	}

	app := &App{}
	options := append(b.modules(),
		fx.Populate(&app.config, &app.logger, &app.db, &app.server),
	)

	app.fx = fx.New(options...)
	if err := app.fx.Err(); err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}
	return app, nil
}

func (b *AppBuilder) modules() []fx.Option {
	options := []fx.Option{
		fx.NopLogger,
		config.NewProvider(b.config),
		fx.Supply(database.WithModels(credentials.Models()...)),
		logging.Module,
		database.Module,
		credentials.Module,
		mail.Module,
		otp.Module,
		jwt.Options,
		auth.Module,
		users.Module,
		fx.Invoke(RegisterSeed),
		ratelimit.Module,
		server.Module,
		handlers.Module,
		openapi.Module,
	}
	return append(options, b.fxOptions...)
}
