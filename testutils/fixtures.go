package testutils

import (
	"time"

	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"golang.org/x/crypto/bcrypt"
)

// TestJWTSecret passes the production secret checks.
const TestJWTSecret = "k8Zq2Lm9Xv4Rt7Wn1Bc5Hy3Jd6Fg0Ps8Qa2Ue4Io7Ty9Mz"

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:    "Test App",
			URL:     "http://localhost:8080",
			Version: "test",
		},
		Log: config.LogConfig{
			Level:  "debug",
			Format: "console",
			Output: "stdout",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		Auth: config.AuthConfig{
			MinLength:      8,
			RequireNumber:  true,
			RequireUpper:   false,
			RequireLower:   false,
			RequireSpecial: false,
			BcryptCost:     bcrypt.MinCost,
		},
		JWT: config.JWTConfig{
			SecretKey:    TestJWTSecret,
			Algorithm:    "HS256",
			AccessExpiry: 240 * time.Hour,
			Issuer:       "test-issuer",
			Audience:     "test-audience",
		},
		OTP: config.OTPConfig{
			Expiry:    15 * time.Minute,
			SingleUse: true,
		},
		Mail: config.MailConfig{
			Host:        "localhost",
			Port:        1025,
			Encryption:  "none",
			FromAddress: "no-reply@example.com",
			FromName:    "Test App",
			Timeout:     time.Second,
		},
		RateLimit: config.RateLimitConfig{
			Enabled:   true,
			Store:     "memory",
			Rate:      5,
			Period:    time.Minute,
			CountMode: config.CountAll,
		},
		Seed: config.SeedConfig{
			Roles:          []string{"Admin", "User", "Manager"},
			AdminEmail:     "admin@example.com",
			AdminPassword:  "Admin@123",
			AdminFirstName: "System",
			AdminLastName:  "Administrator",
		},
		OpenAPI: config.OpenAPIConfig{Enabled: true},
	}
}

var TestPasswords = struct {
	Valid    string
	Other    string
	TooShort string
	NoNumber string
}{
	Valid:    "password123",
	Other:    "newpassword456",
	TooShort: "pass1",
	NoNumber: "passwordonly",
}
