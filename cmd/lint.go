package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/tmplbuild/internal/lint"
	"github.com/conneroisu/tmplbuild/internal/searchpath"
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Build, then run static analysis over the build output",
	Long: `Run the analysis engine over the built packages and scripts. The build
runs first if needed; build directories come from the build configuration.
While checking, build-lib is placed at the front of the search path so
packages resolve to their built copies.

When the go command is not available the step prints a notice and succeeds.

Examples:
  tmplbuild lint                        # Report definite bugs only
  TMPLBUILD_LINT_MODE=all tmplbuild lint  # Report every finding`,
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	env, err := newBuildEnv(cmd)
	if err != nil {
		return err
	}

	orch, err := env.orchestrator()
	if err != nil {
		return err
	}

	step := lint.NewStep(orch, lint.AnalysisBackend{},
		lint.WithSearchPath(searchpath.Default),
		lint.WithOutput(cmd.OutOrStdout()),
		lint.WithLogger(env.logger),
	)

	runErr := step.Run(cmd.Context())
	if err := env.writeMetrics(); err != nil {
		env.logger.Warn(cmd.Context(), err, "failed to write metrics", "file", metricsFile)
	}
	if runErr != nil {
		return fmt.Errorf("lint failed: %w", runErr)
	}
	return nil
}
