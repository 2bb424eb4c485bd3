package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig       `envPrefix:"APP_"`
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Log       LogConfig       `envPrefix:"LOG_"`
	Database  DatabaseConfig  `envPrefix:"DATABASE_"`
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	JWT       JWTConfig       `envPrefix:"JWT_"`
	OTP       OTPConfig       `envPrefix:"OTP_"`
	Mail      MailConfig      `envPrefix:"MAIL_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Seed      SeedConfig      `envPrefix:"SEED_"`
	OpenAPI   OpenAPIConfig   `envPrefix:"OPENAPI_"`
}

type AppConfig struct {
	Name    string `env:"NAME" envDefault:"Management System"`
	URL     string `env:"URL" envDefault:"http://localhost:8080"`
	Version string `env:"VERSION" envDefault:"v1"`
}

type ServerConfig struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	Host           string        `env:"HOST" envDefault:"localhost"`
	TrustedProxies []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"management.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

// AuthConfig holds the password policy applied on registration and every
// password change.
type AuthConfig struct {
	MinLength      int  `env:"MIN_LENGTH" envDefault:"8"`
	RequireUpper   bool `env:"REQUIRE_UPPER" envDefault:"false"`
	RequireLower   bool `env:"REQUIRE_LOWER" envDefault:"false"`
	RequireNumber  bool `env:"REQUIRE_NUMBER" envDefault:"true"`
	RequireSpecial bool `env:"REQUIRE_SPECIAL" envDefault:"false"`
	BcryptCost     int  `env:"BCRYPT_COST" envDefault:"10"`
}

type JWTConfig struct {
	SecretKey    string        `env:"SECRET_KEY"`
	Algorithm    string        `env:"ALGORITHM" envDefault:"HS256"`
	AccessExpiry time.Duration `env:"ACCESS_EXPIRY" envDefault:"240h"`
	Issuer       string        `env:"ISSUER" envDefault:"management-system"`
	Audience     string        `env:"AUDIENCE" envDefault:"management-system-clients"`
}

// OTPConfig controls the emailed one-time codes. An Expiry of zero means codes
// never expire.
type OTPConfig struct {
	Expiry    time.Duration `env:"EXPIRY" envDefault:"15m"`
	SingleUse bool          `env:"SINGLE_USE" envDefault:"true"`
}

type MailConfig struct {
	Host         string        `env:"HOST" envDefault:"localhost"`
	Port         int           `env:"PORT" envDefault:"587"`
	Username     string        `env:"USERNAME"`
	Password     string        `env:"PASSWORD"`
	Encryption   string        `env:"ENCRYPTION" envDefault:"tls"`
	FromAddress  string        `env:"FROM_ADDRESS" envDefault:"no-reply@localhost"`
	FromName     string        `env:"FROM_NAME" envDefault:"Management System"`
	TemplatesDir string        `env:"TEMPLATES_DIR"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type CountingMode string

const (
	CountAll      CountingMode = "all"
	CountFailures CountingMode = "failures"
	CountSuccess  CountingMode = "success"
)

type RateLimitConfig struct {
	Enabled   bool          `env:"ENABLED" envDefault:"true"`
	Store     string        `env:"STORE" envDefault:"memory"`
	Rate      int           `env:"RATE" envDefault:"5"`
	Period    time.Duration `env:"PERIOD" envDefault:"1m"`
	CountMode CountingMode  `env:"COUNT_MODE" envDefault:"failures"`
}

type SeedConfig struct {
	Roles          []string `env:"ROLES" envSeparator:"," envDefault:"Admin,User,Manager"`
	AdminEmail     string   `env:"ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword  string   `env:"ADMIN_PASSWORD"`
	AdminFirstName string   `env:"ADMIN_FIRST_NAME" envDefault:"System"`
	AdminLastName  string   `env:"ADMIN_LAST_NAME" envDefault:"Administrator"`
}

type OpenAPIConfig struct {
	Enabled bool `env:"ENABLED" envDefault:"true"`
}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	if c, ok := cfg.(*Config); ok {
		return c.Validate()
	}
	return nil
}

func (c *Config) Validate() error {
	if err := validateJWTConfig(&c.JWT); err != nil {
		return err
	}
	if err := validateAuthConfig(&c.Auth); err != nil {
		return err
	}
	if err := validateOTPConfig(&c.OTP); err != nil {
		return err
	}
	if err := validateRateLimitConfig(&c.RateLimit); err != nil {
		return err
	}
	return validateSeedConfig(&c.Seed)
}

var weakSecretPatterns = []string{"password", "secret", "test", "example", "default", "change"}

func validateJWTConfig(cfg *JWTConfig) error {
	if len(cfg.SecretKey) < 32 {
		return errors.New("JWT secret key must be at least 32 characters long")
	}

	lower := strings.ToLower(cfg.SecretKey)
	for _, pattern := range weakSecretPatterns {
		if strings.Contains(lower, pattern) {
			return errors.New("JWT secret key contains weak patterns")
		}
	}

	if cfg.Algorithm != "HS256" {
		return fmt.Errorf("unsupported JWT algorithm: %s (supported: HS256)", cfg.Algorithm)
	}

	if cfg.AccessExpiry <= 0 {
		return errors.New("JWT access expiry must be positive")
	}
	return nil
}

func validateAuthConfig(cfg *AuthConfig) error {
	if cfg.MinLength < 1 {
		return errors.New("password minimum length must be at least 1")
	}
	return nil
}

func validateOTPConfig(cfg *OTPConfig) error {
	if cfg.Expiry < 0 {
		return errors.New("OTP expiry cannot be negative")
	}
	return nil
}

func validateRateLimitConfig(cfg *RateLimitConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Rate <= 0 {
		return errors.New("rate limit must be positive")
	}
	switch cfg.CountMode {
	case CountAll, CountFailures, CountSuccess:
	default:
		return errors.New("rate limit count mode must be: all, failures, or success")
	}
	return nil
}

func validateSeedConfig(cfg *SeedConfig) error {
	if len(cfg.Roles) == 0 {
		return errors.New("at least one role must be seeded")
	}
	return nil
}
