package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "mock_server",
		Short: "HTTP mock server with specificity-ranked dispatch",
		Long: `mock_server compiles mock definitions into an ordered rule table and
answers any HTTP request with the response of the most specific matching
definition. Definitions are managed through the admin REST API.`,
		SilenceUsage: true,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: $MOCK_CONFIG_PATH or ./mock.$MOCK_ENV.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
}
