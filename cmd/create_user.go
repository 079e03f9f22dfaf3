package cmd

import (
	"context"
	"fmt"

	"fencing-backend/auth"
	"fencing-backend/database"
	"fencing-backend/models"
	"fencing-backend/services"
	"fencing-backend/utils"

	"github.com/spf13/cobra"
)

var (
	userName     string
	userEmail    string
	userPassword string
	userRole     string
)

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a user, e.g. the first admin",
	Long: `Create a user directly in the database. Registration over HTTP is
admin-only, so the first admin account is created with this command.

Example:
  fencing-backend create-user --email owner@example.com --name Owner --password '...' --role admin`,
	RunE: runCreateUser,
}

func init() {
	createUserCmd.Flags().StringVar(&userName, "name", "", "display name")
	createUserCmd.Flags().StringVar(&userEmail, "email", "", "login email")
	createUserCmd.Flags().StringVar(&userPassword, "password", "", "initial password (8-72 chars)")
	createUserCmd.Flags().StringVar(&userRole, "role", string(models.RoleAdmin), "admin, manager, finance or staff")
	_ = createUserCmd.MarkFlagRequired("email")
	_ = createUserCmd.MarkFlagRequired("password")
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	cfg, logger, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer utils.SyncLogger()
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}

	sessions, err := auth.NewSessionManager(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return err
	}
	audit := services.NewAuditLogger(db, logger)
	users := services.NewUserService(db, sessions, audit, logger)

	name := userName
	if name == "" {
		name = userEmail
	}
	user, err := users.Create(context.Background(), services.CreateUserInput{
		Name:     name,
		Email:    userEmail,
		Password: userPassword,
		Role:     models.Role(userRole),
	}, services.Actor{Email: "cli"})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}
