package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/yukikurage/employee-admin-api/internal/config"
	"github.com/yukikurage/employee-admin-api/internal/database"
	"github.com/yukikurage/employee-admin-api/internal/models"
	"github.com/yukikurage/employee-admin-api/internal/services"
)

var (
	adminEmail     string
	adminFirstName string
	adminSurname   string
	adminPassword  string
)

// createAdminCmd seeds the first administrator, since creating users over
// the API already requires one.
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminPassword == "" {
			adminPassword = os.Getenv("ADMIN_PASSWORD")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		app, cleanup, err := bootstrap(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := cleanup(); err != nil {
				log.Printf("[CLI] cleanup: %v", err)
			}
		}()
		if err := database.Migrate(); err != nil {
			return err
		}

		user, err := app.users.CreateUser(context.Background(), services.CreateUserInput{
			Email:     adminEmail,
			FirstName: adminFirstName,
			Surname:   adminSurname,
			Password:  adminPassword,
			Role:      models.RoleAdministrator,
		})
		if err != nil {
			for field, msg := range services.FieldsOf(err) {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", field, msg)
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Administrator %s created with id %d\n", user.User.Email, user.User.ID)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "administrator email")
	createAdminCmd.Flags().StringVar(&adminFirstName, "first-name", "", "administrator first name")
	createAdminCmd.Flags().StringVar(&adminSurname, "surname", "", "administrator surname")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "administrator password (defaults to $ADMIN_PASSWORD)")
	_ = createAdminCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(createAdminCmd)
}
