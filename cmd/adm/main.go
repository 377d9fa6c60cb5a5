// Package main provides the DevLense admin CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"devlense/cmd/adm/commands"
	"devlense/internal/config"
	"devlense/internal/database"
	"devlense/internal/observability"
	"devlense/internal/services"
	"devlense/internal/version"

	"github.com/spf13/cobra"
)

func main() {
	ctx := context.Background()

	// Fall back to a config file in the working directory
	if os.Getenv(config.ConfigFileEnv) == "" {
		for _, path := range []string{"config.yaml", "../config.yaml", "../../config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				if err := os.Setenv(config.ConfigFileEnv, path); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to set %s: %v\n", config.ConfigFileEnv, err)
					os.Exit(1)
				}
				break
			}
		}
	}

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Telemetry exporters would only slow the CLI down
	cfg.Server.LogLevel = "error"
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	_, _, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "devlense-adm")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}

	// Migrations only run on request through "db migrate"
	dbManager := database.NewManager(logger)
	db, err := dbManager.InitDBWithoutMigrations(cfg.Database)
	if err != nil {
		logger.Error(ctx, "Failed to connect to database", err, map[string]interface{}{"db_url": cfg.Database.URL})
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Failed to close database connection", map[string]interface{}{"error": err.Error()})
		}
	}()

	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "DevLense administration tool",
		Long: `DevLense administration tool

Manages member accounts, answers submitted questions and inspects the database.`,
		SilenceUsage: true,
		Version:      version.Info("devlense-adm").String(),
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}

	userService := services.NewUserServiceWithLogger(db, cfg, logger)
	ensureAdmin := func(ctx context.Context) error {
		if cfg.Server.AdminUsername == "" {
			return nil
		}
		return userService.EnsureAdminUserExists(ctx, cfg.Server.AdminUsername, cfg.Server.AdminPassword)
	}

	rootCmd.AddCommand(commands.UserCommands(userService, logger, cfg.Database.URL))
	rootCmd.AddCommand(commands.QnACommands(services.NewQnAService(db, logger), logger))
	rootCmd.AddCommand(commands.DatabaseCommands(services.NewTableService(db, logger), dbManager, db, cfg.Database.URL, ensureAdmin))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
