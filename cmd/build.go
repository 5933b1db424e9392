package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/tmplbuild/internal/build"
	"github.com/conneroisu/tmplbuild/internal/config"
	"github.com/conneroisu/tmplbuild/internal/logging"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Compile templates and copy package sources into the build tree",
	Long: `Compile every template of every declared package into build-lib, then
copy ordinary sources, package data, module files and scripts. Templates whose
generated source is newer than the template are skipped.

Examples:
  tmplbuild build                       # Incremental build
  tmplbuild build --force               # Regenerate everything
  tmplbuild build --build-base out      # Build under ./out
  tmplbuild build --optimize 1          # Track optimized variants too`,
	RunE: runBuild,
}

// buildFlagKeys maps build flags onto configuration keys.
var buildFlagKeys = map[string]string{
	"build-base":    "build.build_base",
	"build-lib":     "build.build_lib",
	"build-scripts": "build.build_scripts",
	"compile":       "build.compile",
	"optimize":      "build.optimize",
	"force":         "build.force",
}

func init() {
	rootCmd.AddCommand(buildCmd)

	f := buildCmd.Flags()
	f.String("build-base", "", "base directory for build output (default \"build\")")
	f.String("build-lib", "", "directory for built packages (default <build-base>/lib)")
	f.String("build-scripts", "", "directory for built scripts (default <build-base>/scripts)")
	f.Bool("compile", true, "track compiled variants of generated sources")
	f.IntP("optimize", "O", 0, "optimization level 0-2; above 0 tracks optimized variants")
	f.BoolP("force", "f", false, "regenerate templates and copy files even when up to date")
}

func bindBuildFlags() {
	for flagName, key := range buildFlagKeys {
		if flag := buildCmd.Flags().Lookup(flagName); flag != nil {
			_ = viper.BindPFlag(key, flag)
		}
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	env, err := newBuildEnv(cmd)
	if err != nil {
		return err
	}

	orch, err := env.orchestrator()
	if err != nil {
		return err
	}

	runErr := orch.Run(cmd.Context())
	if err := env.writeMetrics(); err != nil {
		env.logger.Warn(cmd.Context(), err, "failed to write metrics", "file", metricsFile)
	}
	if runErr != nil {
		return fmt.Errorf("build failed: %w", runErr)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Compiled %d of %d template(s) into %s\n",
		orch.Compiled(), orch.Manifest().Len(), env.cfg.Build.BuildLib)
	return nil
}

// buildEnv is what every build-backed command shares: the finalized
// configuration, a logger and the metrics of the run.
type buildEnv struct {
	cfg     *config.Config
	logger  logging.Logger
	metrics *build.Metrics
}

func newBuildEnv(cmd *cobra.Command) (*buildEnv, error) {
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return &buildEnv{cfg: cfg, logger: logger, metrics: build.NewMetrics(nil)}, nil
}

// orchestrator wires a fresh orchestrator for one run.
func (e *buildEnv) orchestrator() (*build.Orchestrator, error) {
	engine, err := build.NewCommandEngine(e.cfg.Templates.Command)
	if err != nil {
		return nil, fmt.Errorf("invalid template command: %w", err)
	}

	compiler := build.NewCompiler(engine, e.cfg.Templates.SourceExtension,
		build.WithForce(e.cfg.Build.Force),
		build.WithLogger(e.logger),
		build.WithMetrics(e.metrics),
	)
	base := build.NewCopyStep(e.cfg, e.logger, e.metrics)
	return build.NewOrchestrator(e.cfg, base, compiler, e.logger, e.metrics), nil
}

// rebuild runs a complete build with a new orchestrator.
func (e *buildEnv) rebuild(ctx context.Context) error {
	orch, err := e.orchestrator()
	if err != nil {
		return err
	}
	err = orch.Run(ctx)
	if werr := e.writeMetrics(); werr != nil {
		e.logger.Warn(ctx, werr, "failed to write metrics", "file", metricsFile)
	}
	return err
}

func (e *buildEnv) writeMetrics() error {
	if metricsFile == "" {
		return nil
	}
	return e.metrics.WriteTextfile(metricsFile)
}
