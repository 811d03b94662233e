package config

import (
	"time"

	"github.com/maxviazov/youth-hoops-tracker/internal/logger"
)

type Config struct {
	App      AppConfig           `mapstructure:"app"`
	Logger   logger.LoggerConfig `mapstructure:"logger" validate:"-"` // validated by logger.New after defaults
	Postgres PostgresConfig      `mapstructure:"postgres"`
	Redis    RedisConfig         `mapstructure:"redis"`
	Tracker  TrackerConfig       `mapstructure:"tracker"`
	Retry    RetryConfig         `mapstructure:"retry"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Version         string        `mapstructure:"version"`
	Env             string        `mapstructure:"env"`
	Port            int           `mapstructure:"port" validate:"gte=1,lte=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Cors            CorsConfig    `mapstructure:"cors"`
}

// CorsConfig lists the browser origins allowed to call the API, e.g. a scoreboard page on another host.
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// PostgresConfig holds connection and pool settings. Credentials are expected from the environment.
type PostgresConfig struct {
	Host              string `mapstructure:"host" validate:"required"`
	Port              int    `mapstructure:"port" validate:"gte=1,lte=65535"`
	User              string `mapstructure:"user" validate:"required"`
	Password          string `mapstructure:"password" validate:"required"`
	DBName            string `mapstructure:"db" validate:"required"`
	SSLMode           string `mapstructure:"sslmode"`
	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   int    `mapstructure:"max_conn_lifetime"`   // seconds
	MaxConnIdleTime   int    `mapstructure:"max_conn_idle_time"`  // seconds
	HealthCheckPeriod int    `mapstructure:"health_check_period"` // seconds
	AutoMigrate       bool   `mapstructure:"auto_migrate"`
}

// RedisConfig configures the live feed broker. With Enabled=false the server fans out in-process.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TrackerConfig tunes the optimistic tracker used by clients.
type TrackerConfig struct {
	RemoteTimeout time.Duration `mapstructure:"remote_timeout"`
}

// RetryConfig caps the transport-level retry policy.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"gte=1,lte=10"`
	InitialWait time.Duration `mapstructure:"initial_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
	Multiplier  float64       `mapstructure:"multiplier" validate:"gte=1"`
}

// DefaultRetryConfig is used whenever retry settings are left out.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialWait: 200 * time.Millisecond, MaxWait: 2 * time.Second, Multiplier: 2}
}

// DefaultRemoteTimeout bounds a single remote write issued by the tracker.
const DefaultRemoteTimeout = 10 * time.Second
