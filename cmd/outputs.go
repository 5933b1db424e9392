package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var outputsCmd = &cobra.Command{
	Use:   "outputs",
	Short: "List every file the build produces",
	Long: `Run the build if needed and list its outputs: copied sources, package
data, module files and scripts, then the generated template sources. With
--include-bytecode the compiled and optimized variant names are listed too.

Examples:
  tmplbuild outputs                       # One path per line
  tmplbuild outputs --include-bytecode    # Include variant names
  tmplbuild outputs -o json               # JSON array`,
	RunE: runOutputs,
}

var (
	outputsIncludeBytecode bool
	outputsFormat          string
)

func init() {
	rootCmd.AddCommand(outputsCmd)

	outputsCmd.Flags().BoolVar(&outputsIncludeBytecode, "include-bytecode", false, "include compiled and optimized variant names")
	outputsCmd.Flags().StringVarP(&outputsFormat, "output", "o", "table", "output format (table, json, yaml)")

	AddFlagValidation(outputsCmd, "output", func(format string) error {
		return ValidateFormat(format, structuredFormats)
	})
}

func runOutputs(cmd *cobra.Command, args []string) error {
	env, err := newBuildEnv(cmd)
	if err != nil {
		return err
	}

	orch, err := env.orchestrator()
	if err != nil {
		return err
	}
	if err := orch.EnsureRun(cmd.Context()); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	outputs := orch.Outputs(outputsIncludeBytecode)
	if outputs == nil {
		outputs = []string{}
	}

	if strings.EqualFold(outputsFormat, "table") {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, path := range outputs {
			fmt.Fprintln(w, path)
		}
		return w.Flush()
	}
	return writeStructured(cmd.OutOrStdout(), outputsFormat, outputs)
}
