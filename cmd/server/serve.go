package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nucleus/todo-api/graph"
	"github.com/nucleus/todo-api/internal/database"
	"github.com/nucleus/todo-api/internal/server"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the GraphQL HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), v)
		},
	}
}

func runServe(ctx context.Context, v *viper.Viper) error {
	cfg, log, err := setup(v)
	if err != nil {
		return err
	}
	defer log.Sync()

	// Initialize database connection
	db, err := database.NewClient(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", zap.String("driver", cfg.DatabaseDriver), zap.Error(err))
		return err
	}
	defer db.Close()

	// Run migrations
	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.MigrationsPath); err != nil {
			log.Error("failed to run migrations", zap.Error(err))
			return err
		}
	}

	// Initialize GraphQL schema
	schema, err := graph.NewSchema(graph.NewResolver(db), graph.Options{
		MaxParallelism: cfg.MaxParallelism,
		MaxDepth:       cfg.MaxDepth,
		Logger:         log,
	})
	if err != nil {
		log.Error("failed to build schema", zap.Error(err))
		return err
	}
	if err := graph.VerifyFieldMap(ctx, schema, db); err != nil {
		log.Error("schema does not match storage", zap.Error(err))
		return fmt.Errorf("field mapping check failed: %w", err)
	}

	log.Info("starting todo-api",
		zap.String("version", version),
		zap.String("driver", cfg.DatabaseDriver),
		zap.Bool("playground", cfg.Playground),
	)
	return server.New(cfg, log, schema, db).Run(ctx)
}
