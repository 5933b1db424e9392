// Package build turns declared packages into a build-lib tree: templates are
// compiled into generated source, ordinary files are copied by the base step,
// and every produced path is tracked for packaging.
package build

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/conneroisu/tmplbuild/internal/config"
	"github.com/conneroisu/tmplbuild/internal/errors"
	"github.com/conneroisu/tmplbuild/internal/logging"
	"github.com/conneroisu/tmplbuild/internal/scanner"
)

// Artifact is the generated source file of one template.
type Artifact struct {
	Path     string
	Template scanner.TemplateFile
	// Regenerated is false when the existing file was fresh and left alone.
	Regenerated bool
}

// Compiler compiles templates into generated source, skipping templates
// whose output is already up to date.
type Compiler struct {
	engine    Engine
	sourceExt string
	force     bool
	logger    logging.Logger
	metrics   *Metrics

	probeOnce sync.Once
	probeErr  error
}

// availabilityChecker is implemented by engines that can tell before the
// first compile whether they are able to run at all.
type availabilityChecker interface {
	Available() error
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithForce regenerates every artifact regardless of modification times.
func WithForce(force bool) CompilerOption {
	return func(c *Compiler) { c.force = force }
}

// WithLogger sets the compiler's logger.
func WithLogger(logger logging.Logger) CompilerOption {
	return func(c *Compiler) { c.logger = logger }
}

// WithMetrics records compile outcomes.
func WithMetrics(m *Metrics) CompilerOption {
	return func(c *Compiler) { c.metrics = m }
}

// NewCompiler creates a compiler writing files with the given source
// extension.
func NewCompiler(engine Engine, sourceExt string, opts ...CompilerOption) *Compiler {
	c := &Compiler{
		engine:    engine,
		sourceExt: sourceExt,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("compiler")
	return c
}

// ArtifactPath is where the template module of pkg is generated.
func ArtifactPath(buildRoot, pkg, module, sourceExt string) string {
	parts := append([]string{buildRoot}, config.Segments(pkg)...)
	return filepath.Join(append(parts, module+sourceExt)...)
}

// Compile generates the artifact for tmpl under buildRoot and records it in
// manifest. A fresh artifact is recorded without invoking the engine.
func (c *Compiler) Compile(ctx context.Context, tmpl scanner.TemplateFile, pkg, buildRoot string, manifest *Manifest) (Artifact, error) {
	if tmpl.Package != "" && tmpl.Package != pkg {
		return Artifact{}, errors.NewConfigurationError(errors.ErrCodePackageDirMismatch,
			"template belongs to package "+tmpl.Package, nil).WithPackage(pkg).WithFile(tmpl.SourcePath)
	}

	outPath := ArtifactPath(buildRoot, pkg, tmpl.ModuleName, c.sourceExt)
	outDir := filepath.Dir(outPath)
	artifact := Artifact{Path: outPath, Template: tmpl}

	if err := ensureDir(outDir); err != nil {
		return Artifact{}, err
	}

	stale, err := c.needsBuild(tmpl.SourcePath, outPath)
	if err != nil {
		return Artifact{}, err
	}

	if stale {
		c.logger.Info(ctx, "compiling template",
			"package", pkg, "template", tmpl.SourcePath, "output", outDir)

		if err := c.engineAvailable(); err != nil {
			c.metrics.IncTemplate(ResultFailed)
			return Artifact{}, errors.NewCompilationError(errors.ErrCodeEngineUnavailable,
				"template engine is not available", err).WithPackage(pkg).WithFile(tmpl.SourcePath)
		}

		text, err := c.engine.Compile(ctx, tmpl.SourcePath, tmpl.ModuleName)
		if err != nil {
			c.metrics.IncTemplate(ResultFailed)
			compErr := errors.NewCompilationError(errors.ErrCodeCompileFailed,
				"template engine failed", err).WithPackage(pkg).WithFile(tmpl.SourcePath)
			if diags := errors.ParseEngineOutput(err.Error()); len(diags) > 0 {
				compErr.WithContext("diagnostics", diags)
				if d := diags[0]; sameFile(d.File, tmpl.SourcePath) {
					compErr.WithPosition(d.Line, d.Column)
				}
			}
			return Artifact{}, compErr
		}

		if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
			c.metrics.IncTemplate(ResultFailed)
			return Artifact{}, errors.NewIOError(errors.ErrCodeWriteFailed,
				"cannot write generated source", err).WithPackage(pkg).WithFile(outPath)
		}

		artifact.Regenerated = true
		c.metrics.IncTemplate(ResultCompiled)
	} else {
		c.logger.Debug(ctx, "template up to date", "package", pkg, "template", tmpl.SourcePath)
		c.metrics.IncTemplate(ResultSkipped)
	}

	if _, err := manifest.Add(outPath); err != nil {
		return Artifact{}, err
	}

	return artifact, nil
}

func (c *Compiler) needsBuild(src, dst string) (bool, error) {
	if c.force {
		return true, nil
	}
	return Newer(src, dst)
}

// Newer reports whether src should be rebuilt into dst: dst is missing, or
// src was modified after dst.
func Newer(src, dst string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, errors.NewIOError(errors.ErrCodeStatFailed, "cannot stat source", err).WithFile(src)
	}

	dstInfo, err := os.Stat(dst)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, errors.NewIOError(errors.ErrCodeStatFailed, "cannot stat target", err).WithFile(dst)
	}

	return srcInfo.ModTime().After(dstInfo.ModTime()), nil
}

func ensureDir(dir string) error {
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewIOError(errors.ErrCodeWriteFailed, "cannot create output directory", err).WithFile(dir)
	}
	return nil
}

// engineAvailable asks the engine once whether it can run.
func (c *Compiler) engineAvailable() error {
	c.probeOnce.Do(func() {
		if checker, ok := c.engine.(availabilityChecker); ok {
			c.probeErr = checker.Available()
		}
	})
	return c.probeErr
}

// sameFile reports whether a path printed by the engine names the template.
// Engines may print paths relative to the working directory.
func sameFile(reported, source string) bool {
	if reported == source {
		return true
	}
	a, errA := filepath.Abs(reported)
	b, errB := filepath.Abs(source)
	return errA == nil && errB == nil && a == b
}
