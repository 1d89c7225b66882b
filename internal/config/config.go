package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MinSecretLength is the smallest HMAC-SHA256 key the service accepts.
const MinSecretLength = 32

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig `envPrefix:"POSTGRES_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Logger   LoggerConfig
	Auth     AuthConfig    `envPrefix:"AUTH_"`
	Sweeper  SweeperConfig `envPrefix:"TOKEN_SWEEP_"`
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"APP_NAME" envDefault:"student-auth"`
	Env                   string `env:"APP_ENV" envDefault:"development"`
	Host                  string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port                  string `env:"APP_PORT" envDefault:"8080"`
	Version               string `env:"APP_VERSION" envDefault:"dev"`
	RequestTimeoutSeconds int    `env:"HTTP_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `env:"DSN"`
	MaxConns       int32  `env:"MAX_CONNS" envDefault:"10"`
	MinConns       int32  `env:"MIN_CONNS" envDefault:"2"`
	RunMigrations  bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	ConnMaxIdleSec int32  `env:"CONN_MAX_IDLE_SECONDS" envDefault:"30"`
	ConnMaxLifeSec int32  `env:"CONN_MAX_LIFE_SECONDS" envDefault:"300"`
	ConnectTimeout int32  `env:"CONNECT_TIMEOUT_SECONDS" envDefault:"5"`
	// ApplicationName is reported to Postgres as application_name.
	ApplicationName string `env:"APPLICATION_NAME" envDefault:"student-auth"`
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// AuthConfig defines token and password parameters.
type AuthConfig struct {
	JWTSecret                string `env:"JWT_SECRET,required,notEmpty"`
	AccessTokenExpirationMS  int64  `env:"ACCESS_TOKEN_EXPIRATION_MS" envDefault:"1800000"`
	RefreshTokenExpirationMS int64  `env:"REFRESH_TOKEN_EXPIRATION_MS" envDefault:"2592000000"`
	BcryptCost               int    `env:"BCRYPT_COST" envDefault:"12"`
}

// SweeperConfig controls the expired refresh token sweep.
type SweeperConfig struct {
	Enabled         bool `env:"ENABLED" envDefault:"true"`
	IntervalMinutes int  `env:"INTERVAL_MINUTES" envDefault:"60"`
}

// Load reads configuration from the environment, after applying any .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service must not start with.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < MinSecretLength {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least %d bytes", MinSecretLength)
	}
	if c.Auth.AccessTokenExpirationMS <= 0 || c.Auth.RefreshTokenExpirationMS <= 0 {
		return errors.New("token expirations must be positive")
	}
	if c.Auth.AccessTokenExpirationMS >= c.Auth.RefreshTokenExpirationMS {
		return errors.New("access token expiration must be shorter than refresh token expiration")
	}
	return nil
}

// AccessTokenTTL returns the access token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenExpirationMS) * time.Millisecond
}

// RefreshTokenTTL returns the refresh token lifetime.
func (a AuthConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(a.RefreshTokenExpirationMS) * time.Millisecond
}

// Interval returns the sweep interval.
func (s SweeperConfig) Interval() time.Duration {
	if s.IntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// IsProduction reports whether the service runs in production mode.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}
