package main

import (
	"github.com/spf13/cobra"
	"github.com/yukikurage/employee-admin-api/internal/config"
	"github.com/yukikurage/employee-admin-api/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the schema and seed the lookup tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := database.Connect(cfg); err != nil {
			return err
		}
		return database.Migrate()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
