// Package lint runs static analysis over the output of a build.
//
// The Step borrows the build's finalized configuration, makes sure the build
// has run, and scopes the process search path so the analysis engine resolves
// packages from the build-lib tree rather than the source tree.
package lint

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/conneroisu/tmplbuild/internal/config"
	"github.com/conneroisu/tmplbuild/internal/logging"
	"github.com/conneroisu/tmplbuild/internal/searchpath"
)

// Engine checks packages and files and prints what it finds.
type Engine interface {
	// LoadDefaultRules enables the engine's standard rule set.
	LoadDefaultRules()
	// SetReportMode restricts which findings are reported.
	SetReportMode(mode string)
	// Check analyses dotted package names or file paths.
	Check(ctx context.Context, targets []string) error
	// Findings returns the number of findings reported so far.
	Findings() int
}

// Backend provides an analysis engine if one is installed.
type Backend interface {
	// Probe returns an error when the engine cannot run on this machine.
	Probe() error
	// NewEngine creates an engine resolving packages through path and
	// printing findings to out.
	NewEngine(path *searchpath.Path, out io.Writer) Engine
}

// BuildStep is the part of the build orchestrator the lint step needs.
type BuildStep interface {
	EnsureRun(ctx context.Context) error
	Config() *config.Config
}

// Option configures a Step.
type Option func(*Step)

// WithSearchPath sets the search path scoped during Run. The default is
// searchpath.Default.
func WithSearchPath(path *searchpath.Path) Option {
	return func(s *Step) { s.path = path }
}

// WithOutput sets where findings are printed. The default is stdout.
func WithOutput(out io.Writer) Option {
	return func(s *Step) { s.out = out }
}

// WithLogger sets the step logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Step) { s.logger = logger }
}

// Step lints the packages and scripts of a finished build.
type Step struct {
	build   BuildStep
	backend Backend
	path    *searchpath.Path
	out     io.Writer
	logger  logging.Logger

	probeOnce sync.Once
	available bool
}

// NewStep creates a lint step for build.
func NewStep(build BuildStep, backend Backend, opts ...Option) *Step {
	s := &Step{
		build:   build,
		backend: backend,
		path:    searchpath.Default,
		out:     os.Stdout,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("lint")
	return s
}

// ReportPath is the directory lint reports belong in.
func (s *Step) ReportPath() string {
	return s.build.Config().ReportPath()
}

// IsEngineAvailable probes the backend once and remembers the answer.
func (s *Step) IsEngineAvailable() bool {
	s.probeOnce.Do(func() {
		if s.backend == nil {
			return
		}
		err := s.backend.Probe()
		if err != nil {
			s.logger.Debug(context.Background(), "analysis engine probe failed", "error", err.Error())
		}
		s.available = err == nil
	})
	return s.available
}

// Run builds if necessary, then checks every declared package and script of
// the build output. A missing engine is not an error. The search path is
// restored on every exit.
func (s *Step) Run(ctx context.Context) error {
	if !s.IsEngineAvailable() {
		s.logger.Info(ctx, "analysis engine not present, skipping lint")
		return nil
	}

	if err := s.build.EnsureRun(ctx); err != nil {
		return err
	}
	cfg := s.build.Config()

	guard := searchpath.NewGuard(s.path, cfg.Build.BuildLib)
	guard.Enter()
	defer guard.Exit()

	engine := s.backend.NewEngine(s.path, s.out)
	engine.LoadDefaultRules()
	engine.SetReportMode(cfg.Lint.Mode)

	if len(cfg.Packages) > 0 {
		s.logger.Info(ctx, "checking packages", "packages", cfg.Packages)
		if err := engine.Check(ctx, cfg.Packages); err != nil {
			return err
		}
	}

	if len(cfg.Scripts) > 0 {
		scripts := cfg.BuiltScripts()
		s.logger.Info(ctx, "checking scripts", "scripts", scripts)
		if err := engine.Check(ctx, scripts); err != nil {
			return err
		}
	}

	s.logger.Info(ctx, "lint finished", "findings", engine.Findings(), "mode", cfg.Lint.Mode)
	return nil
}
