package app

import (
	"context"
	"time"

	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"github.com/BehruzbekUmarov/ManagementSystem/server"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	startTimeout = 15 * time.Second
	stopTimeout  = 30 * time.Second
)

type App struct {
	fx     *fx.App
	config *config.Config
	logger *logging.Service
	db     *gorm.DB
	server *server.Server
}

// Start runs every OnStart hook: roles and the admin are seeded, then the
// server starts listening.
func (a *App) Start(ctx context.Context) error {
	return a.fx.Start(ctx)
}

// Run starts the application and blocks until SIGINT, SIGTERM or a fatal
// server error. It returns the process exit code.
func (a *App) Run() int {
	startCtx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		a.logger.Error("failed to start application", zap.Error(err))
		return 1
	}

	sig := <-a.fx.Wait()
	a.logger.Info("shutting down", zap.String("signal", sig.Signal.String()), zap.Int("exit_code", sig.ExitCode))

	if err := a.Stop(); err != nil && sig.ExitCode == 0 {
		return 1
	}
	return sig.ExitCode
}

func (a *App) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := a.fx.Stop(ctx); err != nil {
		a.logger.Error("failed to stop application gracefully", zap.Error(err))
		return err
	}
	return nil
}

func (a *App) Server() *echo.Echo {
	if a.server == nil {
		return nil
	}
	return a.server.Echo()
}

func (a *App) DB() *gorm.DB {
	return a.db
}

func (a *App) Logger() *logging.Service {
	return a.logger
}

func (a *App) Config() *config.Config {
	return a.config
}
