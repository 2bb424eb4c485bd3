package ratelimit

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/BehruzbekUmarov/ManagementSystem/apperror"
	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Config struct {
	Store          Store
	Rate           int
	Period         time.Duration
	CountMode      config.CountingMode
	KeyGenerator   func(c echo.Context) string
	OnLimitReached func(c echo.Context) error
	Logger         *logging.Service
}

// Middleware limits each key to Rate counted requests per Period. CountMode
// decides which outcomes count: every request, only failures (status >= 400)
// or only successes.
func Middleware(cfg Config) echo.MiddlewareFunc {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore(time.Minute)
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 5
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}
	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = DefaultKeyGenerator
	}
	if cfg.OnLimitReached == nil {
		cfg.OnLimitReached = DefaultOnLimitReached
	}
	if cfg.CountMode == "" {
		cfg.CountMode = config.CountAll
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := cfg.KeyGenerator(c)
			resetTime := time.Now().Add(cfg.Period)

			count, existingReset, exists := cfg.Store.Get(key)
			if exists {
				resetTime = existingReset
			}

			if count >= cfg.Rate {
				setHeaders(c, cfg.Rate, 0, resetTime)
				cfg.Logger.Warn("rate limit exceeded",
					zap.String("key", key),
					zap.String("path", c.Path()))
				return cfg.OnLimitReached(c)
			}

			if cfg.CountMode == config.CountAll {
				count = cfg.Store.Increment(key, resetTime)
			}
			setHeaders(c, cfg.Rate, cfg.Rate-count, resetTime)

			err := next(c)

			switch cfg.CountMode {
			case config.CountFailures:
				if statusOf(c, err) >= http.StatusBadRequest {
					cfg.Store.Increment(key, resetTime)
				}
			case config.CountSuccess:
				if statusOf(c, err) < http.StatusBadRequest {
					cfg.Store.Increment(key, resetTime)
				}
			}
			return err
		}
	}
}

// statusOf predicts the response status for a handler result. Errors have
// not been rendered yet at this point of the chain.
func statusOf(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	if appErr, ok := apperror.As(err); ok {
		return appErr.StatusCode()
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}

func setHeaders(c echo.Context, limit, remaining int, resetTime time.Time) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
}

// DefaultKeyGenerator keys on route and client IP so each endpoint has its own
// budget.
func DefaultKeyGenerator(c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return "rate_limit:" + c.Path() + ":" + ip
}

func DefaultOnLimitReached(c echo.Context) error {
	return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, try again later")
}
