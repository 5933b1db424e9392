package build

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conneroisu/tmplbuild/internal/config"
	"github.com/conneroisu/tmplbuild/internal/logging"
	"github.com/conneroisu/tmplbuild/internal/scanner"
)

// Orchestrator drives one build: templates of every declared package are
// compiled into the build-lib tree, then the base step handles ordinary
// files. It owns the artifact manifest for the run.
type Orchestrator struct {
	cfg      *config.Config
	base     BaseStep
	finder   *scanner.Finder
	compiler *Compiler
	manifest *Manifest
	logger   logging.Logger
	metrics  *Metrics

	mu       sync.Mutex
	ran      bool
	compiled int
}

// NewOrchestrator creates an orchestrator for a finalized configuration.
func NewOrchestrator(cfg *config.Config, base BaseStep, compiler *Compiler, logger logging.Logger, metrics *Metrics) *Orchestrator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Orchestrator{
		cfg:      cfg,
		base:     base,
		finder:   scanner.NewFinder(cfg.Layout(), cfg.Templates.Extension),
		compiler: compiler,
		manifest: NewManifest(),
		logger:   logger.WithComponent("build"),
		metrics:  metrics,
	}
}

// Config returns the finalized configuration the orchestrator builds from.
// Callers must treat it as read-only.
func (o *Orchestrator) Config() *config.Config {
	return o.cfg
}

// Manifest returns the artifact manifest of the run.
func (o *Orchestrator) Manifest() *Manifest {
	return o.manifest
}

// HasRun reports whether Run completed successfully.
func (o *Orchestrator) HasRun() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ran
}

// Run compiles the templates of every declared package, then runs the base
// step. The manifest is sealed once the run succeeds.
func (o *Orchestrator) Run(ctx context.Context) (err error) {
	logger := o.logger.With("run_id", uuid.NewString())
	op := logging.StartOperation(logger, "build")
	start := time.Now()
	defer func() {
		o.metrics.ObserveBuild(time.Since(start), err)
		if err != nil {
			op.EndWithError(ctx, err)
			return
		}
		op.End(ctx)
	}()

	o.mu.Lock()
	o.compiled = 0
	o.mu.Unlock()

	if len(o.cfg.Packages) > 0 {
		if err = o.buildPackageTemplates(ctx, logger); err != nil {
			return err
		}
	}

	if err = o.base.Run(ctx); err != nil {
		return err
	}

	o.manifest.Seal()

	o.mu.Lock()
	o.ran = true
	o.mu.Unlock()

	return nil
}

// Compiled returns how many templates the last run regenerated. Templates
// whose artifacts were already fresh are tracked in the manifest but not
// counted here.
func (o *Orchestrator) Compiled() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.compiled
}

// EnsureRun runs the build unless it already completed.
func (o *Orchestrator) EnsureRun(ctx context.Context) error {
	if o.HasRun() {
		return nil
	}
	return o.Run(ctx)
}

func (o *Orchestrator) buildPackageTemplates(ctx context.Context, logger logging.Logger) error {
	for _, pkg := range o.cfg.Packages {
		dir := o.finder.PackageDir(pkg)

		templates, err := o.finder.FindTemplates(pkg, dir)
		if err != nil {
			return err
		}
		o.metrics.IncPackage()
		logger.Debug(ctx, "scanned package", "package", pkg, "dir", dir, "templates", len(templates))

		for _, tmpl := range templates {
			artifact, err := o.compiler.Compile(ctx, tmpl, pkg, o.cfg.Build.BuildLib, o.manifest)
			if err != nil {
				return err
			}
			if artifact.Regenerated {
				o.mu.Lock()
				o.compiled++
				o.mu.Unlock()
			}
		}
	}
	return nil
}

// Outputs lists every file the build produces: the base step's outputs,
// then the generated artifacts, then, when includeBytecode is set, the
// compiled and optimized variant names of each artifact.
func (o *Orchestrator) Outputs(includeBytecode bool) []string {
	outputs := o.base.Outputs(includeBytecode)
	artifacts := o.manifest.Paths()
	outputs = append(outputs, artifacts...)

	if includeBytecode {
		for _, path := range artifacts {
			outputs = append(outputs, BytecodeVariants(path, o.cfg)...)
		}
	}

	return outputs
}
