// Package cmd holds the command line entry points: serve, migrate and create-user.
package cmd

import (
	"fmt"
	"os"

	"fencing-backend/config"
	"fencing-backend/database"
	"fencing-backend/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "fencing-backend",
	Short:   "Quotes, invoices, payments and field jobs for a fencing business",
	Version: Version,
	// plain `fencing-backend` starts the API, like the old main.go did
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createUserCmd)
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads config, the logger and an open database handle.
func bootstrap() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg := config.Load()
	if err := utils.InitLogger(cfg.Server.Env); err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := utils.GetLogger()

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, db, nil
}
