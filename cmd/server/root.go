package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nucleus/todo-api/internal/config"
	"github.com/nucleus/todo-api/internal/logging"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

// newRootCmd builds the command tree. Running the binary without a
// subcommand starts the server.
func newRootCmd() *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:           "todo-api",
		Short:         "GraphQL API for to-do items",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), v)
		},
	}

	flags := root.PersistentFlags()
	flags.String("host", "", "address to listen on")
	flags.Int("port", 0, "port to listen on")
	flags.String("db-driver", "", "database driver: postgres, pgx or sqlite3")
	flags.String("db-url", "", "database connection URL or SQLite file path")
	flags.String("migrations-path", "", "directory of SQL migrations (default: embedded)")
	flags.Bool("auto-migrate", true, "apply pending migrations on startup")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: json or console")
	flags.Bool("playground", true, "serve the GraphiQL playground")

	bindFlags(v, flags, map[string]string{
		"host":            config.KeyHost,
		"port":            config.KeyPort,
		"db-driver":       config.KeyDatabaseDriver,
		"db-url":          config.KeyDatabaseURL,
		"migrations-path": config.KeyDatabaseMigrationsPath,
		"auto-migrate":    config.KeyDatabaseAutoMigrate,
		"log-level":       config.KeyLogLevel,
		"log-format":      config.KeyLogFormat,
		"playground":      config.KeyGraphQLPlayground,
	})

	root.AddCommand(
		newServeCmd(v),
		newMigrateCmd(v),
		newVersionCmd(),
	)
	return root
}

// bindFlags binds each flag to its configuration key. Viper only prefers a
// flag over env and defaults once the flag has been set explicitly.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// setup loads the configuration and builds the logger shared by commands.
func setup(v *viper.Viper) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
