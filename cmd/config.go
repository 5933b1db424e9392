package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the finalized configuration",
	Long: `Print the configuration after every source has been merged, derived
build directories have been filled in and validation has passed.

Examples:
  tmplbuild config                  # YAML
  tmplbuild config -o json          # JSON`,
	RunE: runConfig,
}

var configFormat string

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().StringVarP(&configFormat, "output", "o", "yaml", "output format (yaml, json)")
	AddFlagValidation(configCmd, "output", func(format string) error {
		return ValidateFormat(format, []string{"yaml", "json"})
	})
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "# from %s\n", used)
	}
	return writeStructured(cmd.OutOrStdout(), configFormat, cfg)
}
