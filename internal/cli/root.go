// Package cli implements persistctl, an operator tool that inspects and edits
// document files through the same codecs and stores as the document service.
package cli

import (
	"github.com/bassista/go_persist/internal/logger"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "persistctl",
	Short: "Inspect and edit persisted documents",
	Long: `persistctl reads and writes document files in json, toml or yaml.
The format is chosen from the file extension.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Configure(logLevel, cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
