// Package cmd provides the command-line interface for tmplbuild.
//
// Configuration System:
//
//	Settings are read from several sources, highest priority first:
//	1. Command-line flags (--build-base, --optimize, etc.)
//	2. TMPLBUILD_<SECTION>_<OPTION> environment variables
//	3. The configuration file: --config, else TMPLBUILD_CONFIG_FILE, else
//	   .tmplbuild.yml in the current directory
//	4. Built-in defaults
//
//	.env and .env.local are loaded into the environment first and never
//	override variables that are already set.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/tmplbuild/internal/config"
	"github.com/conneroisu/tmplbuild/internal/logging"
)

var (
	cfgFile     string
	logLevel    string
	logFormat   string
	metricsFile string

	// configErr is the config file read failure of the current invocation.
	configErr error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tmplbuild",
	Short: "Incremental template compiler and build step for Go packages",
	Long: `tmplbuild compiles the templates of every declared package into the
build tree, copies ordinary sources, package data and scripts next to them,
and can lint the result.

Quick Start:
  tmplbuild build                 Compile templates and copy sources
  tmplbuild outputs               List every file the build produces
  tmplbuild lint                  Build, then run static analysis on the output
  tmplbuild watch                 Rebuild whenever a template changes`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is .tmplbuild.yml, can also use TMPLBUILD_CONFIG_FILE env var)")
	pf.StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	pf.StringVar(&metricsFile, "metrics-file", "", "write build metrics in Prometheus text format to this file")

	AddFlagValidation(rootCmd, "log-format", func(format string) error {
		return ValidateFormat(format, []string{"text", "json"})
	})
}

// initConfig prepares the global viper instance before any command runs.
func initConfig() {
	if loaded, err := config.LoadEnvFiles(""); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load environment file: %v\n", err)
	} else if len(loaded) > 0 && logLevel == "debug" {
		fmt.Fprintln(os.Stderr, "Loaded environment variables from", strings.Join(loaded, ", "))
	}

	explicit := true
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("TMPLBUILD_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		explicit = false
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tmplbuild")
	}

	viper.SetEnvPrefix("TMPLBUILD")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.SetDefaults(viper.GetViper())
	bindBuildFlags()

	// only an absent default file falls back to the built-in defaults
	configErr = nil
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			configErr = fmt.Errorf("cannot read config file: %w", err)
		}
	} else if logLevel == "debug" {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig returns the finalized configuration of this invocation.
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	return config.Load()
}

// newLogger builds the command logger from the global flags.
func newLogger(out io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    logFormat,
		Output:    out,
		Component: "tmplbuild",
	}), nil
}
