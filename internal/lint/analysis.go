package lint

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/checker"
	"golang.org/x/tools/go/analysis/passes/assign"
	"golang.org/x/tools/go/analysis/passes/atomic"
	"golang.org/x/tools/go/analysis/passes/bools"
	"golang.org/x/tools/go/analysis/passes/composite"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/nilfunc"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/shift"
	"golang.org/x/tools/go/analysis/passes/stdmethods"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/tests"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"golang.org/x/tools/go/analysis/passes/unsafeptr"
	"golang.org/x/tools/go/analysis/passes/unusedresult"
	"golang.org/x/tools/go/packages"

	"github.com/conneroisu/tmplbuild/internal/config"
	"github.com/conneroisu/tmplbuild/internal/errors"
	"github.com/conneroisu/tmplbuild/internal/searchpath"
)

// DefaultAnalyzers returns the vet pass suite.
func DefaultAnalyzers() []*analysis.Analyzer {
	return []*analysis.Analyzer{
		assign.Analyzer,
		atomic.Analyzer,
		bools.Analyzer,
		composite.Analyzer,
		copylock.Analyzer,
		errorsas.Analyzer,
		httpresponse.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		nilfunc.Analyzer,
		printf.Analyzer,
		shift.Analyzer,
		stdmethods.Analyzer,
		structtag.Analyzer,
		tests.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,
		unsafeptr.Analyzer,
		unusedresult.Analyzer,
	}
}

// errorPasses flag definite bugs rather than questionable style.
var errorPasses = map[string]bool{
	atomic.Analyzer.Name:       true,
	copylock.Analyzer.Name:     true,
	errorsas.Analyzer.Name:     true,
	httpresponse.Analyzer.Name: true,
	lostcancel.Analyzer.Name:   true,
	nilfunc.Analyzer.Name:      true,
	printf.Analyzer.Name:       true,
	shift.Analyzer.Name:        true,
	unmarshal.Analyzer.Name:    true,
	unsafeptr.Analyzer.Name:    true,
}

// AnalysisBackend runs golang.org/x/tools analysis passes. It needs the go
// command, which go/packages invokes to load packages.
type AnalysisBackend struct{}

// Probe checks that the go command is on PATH.
func (AnalysisBackend) Probe() error {
	if _, err := exec.LookPath("go"); err != nil {
		return errors.NewLintError(errors.ErrCodeEngineUnavailable, "go command not found", err)
	}
	return nil
}

// NewEngine creates an analysis engine.
func (AnalysisBackend) NewEngine(path *searchpath.Path, out io.Writer) Engine {
	return &AnalysisEngine{path: path, out: out, mode: config.LintModeAll}
}

// AnalysisEngine checks Go packages with a set of analysis passes.
type AnalysisEngine struct {
	path      *searchpath.Path
	out       io.Writer
	analyzers []*analysis.Analyzer
	mode      string
	findings  int
}

// LoadDefaultRules enables DefaultAnalyzers.
func (e *AnalysisEngine) LoadDefaultRules() {
	e.analyzers = DefaultAnalyzers()
}

// SetReportMode selects "all" or "errors". Unknown modes report everything.
func (e *AnalysisEngine) SetReportMode(mode string) {
	e.mode = strings.ToLower(mode)
}

// Findings returns the number of diagnostics printed so far.
func (e *AnalysisEngine) Findings() int {
	return e.findings
}

// Analyzers returns the passes that run in the current report mode.
func (e *AnalysisEngine) Analyzers() []*analysis.Analyzer {
	if e.mode != config.LintModeErrors {
		return e.analyzers
	}
	var out []*analysis.Analyzer
	for _, a := range e.analyzers {
		if errorPasses[a.Name] {
			out = append(out, a)
		}
	}
	return out
}

// Check loads and analyses every target. Dotted package names are resolved
// through the search path, anything ending in .go is loaded as a single-file
// package, and other files are skipped.
func (e *AnalysisEngine) Check(ctx context.Context, targets []string) error {
	analyzers := e.Analyzers()
	if len(analyzers) == 0 {
		return nil
	}

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}

		cfg := &packages.Config{Context: ctx, Mode: packages.LoadAllSyntax, Tests: false}
		var pattern string

		switch {
		case strings.HasSuffix(target, ".go"):
			cfg.Dir = filepath.Dir(target)
			pattern = "file=" + target
		case looksLikeFile(target):
			continue
		default:
			_, dir, ok := e.path.Resolve(target)
			if !ok {
				return errors.NewLintError(errors.ErrCodeUnresolvedTarget,
					"package not found on search path "+e.path.String(), nil).WithPackage(target)
			}
			cfg.Dir = dir
			pattern = "."
		}

		if err := e.checkPattern(cfg, pattern, analyzers); err != nil {
			return errors.NewLintError(errors.ErrCodeLintFailed, "analysis failed", err).WithPackage(target)
		}
	}
	return nil
}

func (e *AnalysisEngine) checkPattern(cfg *packages.Config, pattern string, analyzers []*analysis.Analyzer) error {
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return err
	}

	// load errors are findings, not failures
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, perr := range p.Errors {
			fmt.Fprintf(e.out, "%s (load)\n", perr)
			e.findings++
		}
	})

	graph, err := checker.Analyze(analyzers, pkgs, nil)
	if err != nil {
		return err
	}

	for _, act := range graph.Roots {
		for _, d := range act.Diagnostics {
			pos := act.Package.Fset.Position(d.Pos)
			fmt.Fprintf(e.out, "%s: %s (%s)\n", pos, d.Message, act.Analyzer.Name)
			e.findings++
		}
	}
	return nil
}

// looksLikeFile reports whether target is a path rather than a dotted name.
func looksLikeFile(target string) bool {
	return strings.ContainsRune(target, filepath.Separator) || strings.ContainsRune(target, '/')
}
