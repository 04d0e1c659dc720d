package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	SentryDSN      string
}

type AuthConfig struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	SessionTokenSecret string

	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	SessionTokenExpiry time.Duration

	CSRFTokenExpiry time.Duration

	LockoutThreshold int
	LockoutDuration  time.Duration

	CookieDomain   string
	CookieSecure   bool
	CookieSameSite string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "storegate"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			SentryDSN:      getEnv("SENTRY_DSN", ""),
		},
		Auth: AuthConfig{
			AccessTokenSecret:  getEnv("ACCESS_TOKEN_SECRET", ""),
			RefreshTokenSecret: getEnv("REFRESH_TOKEN_SECRET", ""),
			SessionTokenSecret: getEnv("SESSION_TOKEN_SECRET", ""),
			AccessTokenExpiry:  getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
			RefreshTokenExpiry: getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 30*24*time.Hour),
			SessionTokenExpiry: getEnvAsDuration("SESSION_TOKEN_EXPIRY", 7*24*time.Hour),
			CSRFTokenExpiry:    getEnvAsDuration("CSRF_TOKEN_EXPIRY", 1*time.Hour),
			LockoutThreshold:   getEnvAsInt("LOCKOUT_THRESHOLD", 5),
			LockoutDuration:    getEnvAsDuration("LOCKOUT_DURATION", 30*time.Minute),
			CookieDomain:       getEnv("COOKIE_DOMAIN", ""),
			CookieSecure:       env == "production",
			CookieSameSite:     getEnv("COOKIE_SAMESITE", "lax"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateTokenSecrets(&cfg.Auth, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateTokenSecrets enforces that all three token secrets are present,
// strong enough, and distinct from each other. A shared secret would let a
// token minted for one kind verify against another.
func validateTokenSecrets(auth *AuthConfig, env string) error {
	secrets := map[string]string{
		"ACCESS_TOKEN_SECRET":  auth.AccessTokenSecret,
		"REFRESH_TOKEN_SECRET": auth.RefreshTokenSecret,
		"SESSION_TOKEN_SECRET": auth.SessionTokenSecret,
	}

	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // 256 bits
	}

	seen := make(map[string]string, len(secrets))
	for name, secret := range secrets {
		if secret == "" {
			return fmt.Errorf("%s is required", name)
		}
		if len(secret) < minLength {
			return fmt.Errorf("%s must be at least %d characters in %s environment (got %d)",
				name, minLength, env, len(secret))
		}
		if isWeakSecret(secret) {
			return fmt.Errorf("%s cannot be a common weak value", name)
		}
		if other, dup := seen[secret]; dup {
			return fmt.Errorf("%s must differ from %s", name, other)
		}
		seen[secret] = name
	}

	return nil
}

func isWeakSecret(secret string) bool {
	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return true
		}
	}
	return false
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{}
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
