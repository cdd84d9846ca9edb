package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jediknight00/apollo/internal/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "inspect scheduler configuration",
}

// configShowCmd prints the configuration a scheduler would start with.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "print the resolved scheduler config as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		cfg, err := config.Load(workRoot, schedName)
		policy := config.ResolvePolicy(cfg, err, logger)
		if cfg == nil {
			cfg = config.Default()
		}
		cfg.SchedulerConf.Policy = policy
		return config.Dump(cfg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}
