package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "spksearch",
		Short: "Search Synology DSM packages across several package servers",
		Long: `Spksearch queries every configured DSM package server with the
parameters of a device (architecture, model, firmware version), merges the
answers and returns one ranked, deduplicated package list.

Package lists can be searched from the command line or served as a JSON API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}

			format, _ := cmd.Flags().GetString("log-format")
			switch format {
			case "text":
				logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			case "json":
				logrus.SetFormatter(&logrus.JSONFormatter{})
			default:
				return fmt.Errorf("unknown log format %q", format)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "spksearch.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	// Add subcommands
	rootCmd.AddCommand(NewSearchCmd())
	rootCmd.AddCommand(NewSourcesCmd())
	rootCmd.AddCommand(NewServeCmd())

	return rootCmd
}
