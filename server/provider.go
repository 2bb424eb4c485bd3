package server

import (
	"context"

	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func ProvideServer(cfg *config.Config, logger *logging.Service) *Server {
	return New(cfg, logger)
}

// RegisterLifecycle starts the server in the background on start and drains
// it on stop. A failing listener shuts the application down.
func RegisterLifecycle(lc fx.Lifecycle, srv *Server, shutdowner fx.Shutdowner, logger *logging.Service) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("HTTP server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(ProvideServer),
	fx.Invoke(RegisterLifecycle),
)
