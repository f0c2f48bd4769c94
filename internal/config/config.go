// Package config provides configuration management for the todo-api service.
package config

import (
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration keys. Nested keys map to environment variables by replacing
// "." with "_" and adding the TODO_API_ prefix.
const (
	KeyHost            = "host"
	KeyPort            = "port"
	KeyShutdownTimeout = "shutdown_timeout"

	KeyDatabaseDriver         = "database.driver"
	KeyDatabaseURL            = "database.url"
	KeyDatabaseMigrationsPath = "database.migrations_path"
	KeyDatabaseAutoMigrate    = "database.auto_migrate"

	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"

	KeyGraphQLMaxParallelism = "graphql.max_parallelism"
	KeyGraphQLMaxDepth       = "graphql.max_depth"
	KeyGraphQLPlayground     = "graphql.playground"
)

// EnvPrefix is prepended to every environment variable read by the service.
const EnvPrefix = "TODO_API"

var (
	supportedDrivers    = []string{"postgres", "pgx", "sqlite3"}
	supportedLogFormats = []string{"json", "console"}
)

// Config holds all configuration for the todo-api service.
type Config struct {
	// Server settings
	Host            string
	Port            int
	ShutdownTimeout time.Duration

	// Database settings
	DatabaseDriver string
	DatabaseURL    string
	MigrationsPath string
	AutoMigrate    bool

	// Logging settings
	LogLevel  string
	LogFormat string

	// GraphQL settings
	MaxParallelism int
	MaxDepth       int
	Playground     bool
}

// New returns a viper instance with defaults and environment bindings
// installed. Callers may bind command-line flags on top before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyHost, "0.0.0.0")
	v.SetDefault(KeyPort, 8000)
	v.SetDefault(KeyShutdownTimeout, 10*time.Second)

	v.SetDefault(KeyDatabaseDriver, "sqlite3")
	v.SetDefault(KeyDatabaseURL, "todo.db")
	v.SetDefault(KeyDatabaseMigrationsPath, "")
	v.SetDefault(KeyDatabaseAutoMigrate, true)

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")

	v.SetDefault(KeyGraphQLMaxParallelism, 10)
	v.SetDefault(KeyGraphQLMaxDepth, 8)
	v.SetDefault(KeyGraphQLPlayground, true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// DATABASE_URL is honoured for parity with the usual container setups.
	_ = v.BindEnv(KeyDatabaseURL, EnvPrefix+"_DATABASE_URL", "DATABASE_URL")

	return v
}

// Load reads configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Host:            v.GetString(KeyHost),
		Port:            v.GetInt(KeyPort),
		ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),

		DatabaseDriver: strings.ToLower(v.GetString(KeyDatabaseDriver)),
		DatabaseURL:    v.GetString(KeyDatabaseURL),
		MigrationsPath: v.GetString(KeyDatabaseMigrationsPath),
		AutoMigrate:    v.GetBool(KeyDatabaseAutoMigrate),

		LogLevel:  v.GetString(KeyLogLevel),
		LogFormat: strings.ToLower(v.GetString(KeyLogFormat)),

		MaxParallelism: v.GetInt(KeyGraphQLMaxParallelism),
		MaxDepth:       v.GetInt(KeyGraphQLMaxDepth),
		Playground:     v.GetBool(KeyGraphQLPlayground),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port)
	}
	if !slices.Contains(supportedDrivers, c.DatabaseDriver) {
		return fmt.Errorf("unsupported database driver %q (supported: %s)",
			c.DatabaseDriver, strings.Join(supportedDrivers, ", "))
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("database url is required")
	}
	if !slices.Contains(supportedLogFormats, c.LogFormat) {
		return fmt.Errorf("unsupported log format %q (supported: %s)",
			c.LogFormat, strings.Join(supportedLogFormats, ", "))
	}
	if c.MaxParallelism < 1 {
		return fmt.Errorf("graphql max parallelism must be positive, got %d", c.MaxParallelism)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown timeout must not be negative")
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
