package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/pano/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect stitching configuration files",
}

var configCheckCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Validate a configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigArg(args)
		if err != nil {
			return err
		}
		source := cfg.Source
		if source == "" {
			source = "built-in defaults"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (mode %s)\n", source, cfg.Mode)
		return nil
	},
}

var configDumpCmd = &cobra.Command{
	Use:   "dump [path]",
	Short: "Print the effective configuration as YAML",
	Long: `Print every configuration key with its effective value, after defaults
and PANO_* overrides are applied. The output can be saved as a .yaml file
and passed back with --config.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigArg(args)
		if err != nil {
			return err
		}
		return config.Dump(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	configCmd.AddCommand(configCheckCmd, configDumpCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfigArg loads the path given as argument, falling back to --config.
func loadConfigArg(args []string) (*config.Config, error) {
	path := viper.GetString("config")
	if len(args) == 1 {
		path = args[0]
	}
	return config.Load(path, config.WithEnv(envPrefix))
}
