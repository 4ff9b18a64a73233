package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// DefaultJWTSecret is used when ZH_JWT_SECRET is not set. It is only
	// acceptable for local development.
	DefaultJWTSecret = "dev-secret-change-me"

	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string        `envconfig:"APP_NAME" default:"zh-portal"`
	AppEnv         string        `envconfig:"APP_ENV" default:"development"`
	Port           string        `envconfig:"PORT" default:"3000"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string        `envconfig:"LOG_FORMAT" default:"json"`
	JWTSecret      string        `envconfig:"ZH_JWT_SECRET" default:"dev-secret-change-me"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"4h"`
	TokenIssuer    string        `envconfig:"TOKEN_ISSUER" default:"zh-portal"`
	BcryptCost     int           `envconfig:"BCRYPT_COST" default:"10"`
	StoreDriver    string        `envconfig:"STORE_DRIVER" default:"file"`
	UsersFile      string        `envconfig:"USERS_FILE" default:"users.json"`
	SQLitePath     string        `envconfig:"SQLITE_PATH" default:"users.db"`
	DatabaseURL    string        `envconfig:"DATABASE_URL"`
	RedisURL       string        `envconfig:"REDIS_URL"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
	ShutdownPeriod time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.StoreDriver = strings.ToLower(cfg.StoreDriver)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("ZH_JWT_SECRET must not be empty")
	}
	if c.UsesDefaultSecret() && c.IsProduction() {
		return fmt.Errorf("ZH_JWT_SECRET must be set when APP_ENV=%s", c.AppEnv)
	}

	switch c.StoreDriver {
	case StoreFile:
		if c.UsersFile == "" {
			return fmt.Errorf("USERS_FILE must be set for the file store")
		}
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH must be set for the sqlite store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// UsesDefaultSecret reports whether tokens are signed with the built-in development secret.
func (c Config) UsesDefaultSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production") || strings.EqualFold(c.AppEnv, "prod")
}

// IsDev reports whether the service runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}
