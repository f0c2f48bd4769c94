package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nucleus/todo-api/internal/database"
)

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(cmd, v, func(db *database.Client, path string, log *zap.Logger) error {
					if err := db.Migrate(path); err != nil {
						return err
					}
					log.Info("migrations applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all migrations, dropping the todos table",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(cmd, v, func(db *database.Client, path string, log *zap.Logger) error {
					if err := db.MigrateDown(path); err != nil {
						return err
					}
					log.Info("migrations reverted")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(cmd, v, func(db *database.Client, path string, log *zap.Logger) error {
					version, dirty, err := db.MigrationVersion(path)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}

// withDatabase opens the configured database for the duration of fn.
func withDatabase(cmd *cobra.Command, v *viper.Viper, fn func(db *database.Client, migrationsPath string, log *zap.Logger) error) error {
	cfg, log, err := setup(v)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := database.NewClient(cmd.Context(), cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(db, cfg.MigrationsPath, log.With(zap.String("driver", cfg.DatabaseDriver)))
}
