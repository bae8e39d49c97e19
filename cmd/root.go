// Package cmd holds the command-line entry points of the event API.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"eventapi/config"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "eventapi",
	Short:         "Event management API: events, registrations, payments and feedback",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(ensureIndexesCmd())
}

func loadConfig() (*config.Config, error) {
	return config.Load(envFile)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
