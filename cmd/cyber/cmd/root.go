package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jediknight00/apollo/internal/config"
	"github.com/jediknight00/apollo/internal/logging"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "cyber",
	Short:         "cooperative routine scheduler",
	Long:          `Runs and inspects a cyber scheduler built from <work-root>/conf/<sched-name>.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var (
	logLevel  string
	logFormat string
	workRoot  string
	schedName string
)

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger() (*slog.Logger, error) {
	return logging.New(rootCmd.ErrOrStderr(), logLevel, logFormat)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&workRoot, "work-root", config.WorkRoot(),
		"directory holding conf/<sched-name>.yaml (default $CYBER_PATH)")
	rootCmd.PersistentFlags().StringVar(&schedName, "sched-name", config.DefaultSchedName,
		"scheduler config name")
}
