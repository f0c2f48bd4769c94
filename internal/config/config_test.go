package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, "sqlite3", cfg.DatabaseDriver)
	assert.Equal(t, "todo.db", cfg.DatabaseURL)
	assert.Empty(t, cfg.MigrationsPath)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10, cfg.MaxParallelism)
	assert.Equal(t, 8, cfg.MaxDepth)
	assert.True(t, cfg.Playground)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TODO_API_PORT", "9090")
	t.Setenv("TODO_API_DATABASE_DRIVER", "POSTGRES")
	t.Setenv("TODO_API_DATABASE_URL", "postgres://todo@localhost/todo?sslmode=disable")
	t.Setenv("TODO_API_LOG_FORMAT", "console")
	t.Setenv("TODO_API_GRAPHQL_PLAYGROUND", "false")
	t.Setenv("TODO_API_SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "postgres://todo@localhost/todo?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.False(t, cfg.Playground)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoadDatabaseURLFallback(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://fallback/todo")

	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, "postgres://fallback/todo", cfg.DatabaseURL)

	t.Setenv("TODO_API_DATABASE_URL", "postgres://prefixed/todo")
	cfg, err = Load(New())
	require.NoError(t, err)
	assert.Equal(t, "postgres://prefixed/todo", cfg.DatabaseURL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Host:           "127.0.0.1",
			Port:           8000,
			DatabaseDriver: "sqlite3",
			DatabaseURL:    "todo.db",
			LogFormat:      "json",
			MaxParallelism: 1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "port too low", mutate: func(c *Config) { c.Port = 0 }, wantErr: "invalid port"},
		{name: "port too high", mutate: func(c *Config) { c.Port = 70000 }, wantErr: "invalid port"},
		{name: "unknown driver", mutate: func(c *Config) { c.DatabaseDriver = "mysql" }, wantErr: "unsupported database driver"},
		{name: "empty url", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "database url is required"},
		{name: "unknown log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: "unsupported log format"},
		{name: "zero parallelism", mutate: func(c *Config) { c.MaxParallelism = 0 }, wantErr: "max parallelism"},
		{name: "negative shutdown", mutate: func(c *Config) { c.ShutdownTimeout = -time.Second }, wantErr: "shutdown timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
