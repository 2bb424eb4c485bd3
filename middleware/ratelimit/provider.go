package ratelimit

import (
	"context"

	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// Limiter is the configured middleware, or nil when rate limiting is
// disabled.
type Limiter echo.MiddlewareFunc

// NewStore builds the store named by cfg.Store. Only "memory" is supported.
func NewStore(cfg *config.RateLimitConfig) *MemoryStore {
	return NewMemoryStore(cfg.Period)
}

func ProvideLimiter(lc fx.Lifecycle, cfg *config.Config, logger *logging.Service) Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}

	store := NewStore(&cfg.RateLimit)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			store.Close()
			return nil
		},
	})

	return Limiter(Middleware(Config{
		Store:     store,
		Rate:      cfg.RateLimit.Rate,
		Period:    cfg.RateLimit.Period,
		CountMode: cfg.RateLimit.CountMode,
		Logger:    logger.Named("ratelimit"),
	}))
}

// Apply returns the middlewares to mount on a rate-limited route.
func (l Limiter) Apply() []echo.MiddlewareFunc {
	if l == nil {
		return nil
	}
	return []echo.MiddlewareFunc{echo.MiddlewareFunc(l)}
}

var Module = fx.Options(
	fx.Provide(ProvideLimiter),
)
