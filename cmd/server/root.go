package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "employee-admin",
	Short: "Employee, project and task administration API.",
	Long: `employee-admin serves the administration API and its maintenance commands.

Configuration is read from environment variables, optionally layered over the
YAML file given by --config or CONFIG_FILE.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			return os.Setenv("CONFIG_FILE", configFile)
		}
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")
}
