package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tberrors "github.com/conneroisu/tmplbuild/internal/errors"
	"github.com/conneroisu/tmplbuild/internal/scanner"
)

func templateIn(t *testing.T, dir, pkg, module string) scanner.TemplateFile {
	t.Helper()
	path := filepath.Join(dir, module+".templ")
	writeFile(t, path, "template "+module)
	return scanner.TemplateFile{Package: pkg, SourcePath: path, ModuleName: module}
}

func TestArtifactPath(t *testing.T) {
	got := ArtifactPath("build/lib", "javaclass.cheetah", "report", ".go")
	assert.Equal(t, filepath.Join("build", "lib", "javaclass", "cheetah", "report.go"), got)
}

func TestCompileCreatesArtifact(t *testing.T) {
	src := t.TempDir()
	buildRoot := filepath.Join(t.TempDir(), "lib")
	tmpl := templateIn(t, src, "javaclass.cheetah", "report")

	engine := &countingEngine{}
	compiler := NewCompiler(engine, ".go")
	manifest := NewManifest()

	artifact, err := compiler.Compile(context.Background(), tmpl, "javaclass.cheetah", buildRoot, manifest)
	require.NoError(t, err)

	expected := filepath.Join(buildRoot, "javaclass", "cheetah", "report.go")
	assert.Equal(t, expected, artifact.Path)
	assert.True(t, artifact.Regenerated)
	assert.Equal(t, 1, engine.count())
	assert.Equal(t, []string{expected}, manifest.Paths())

	content, err := os.ReadFile(expected)
	require.NoError(t, err)
	assert.Equal(t, "// module report\n", string(content))
}

func TestCompileIsIdempotent(t *testing.T) {
	src := t.TempDir()
	buildRoot := t.TempDir()
	tmpl := templateIn(t, src, "pkg", "page")

	engine := &countingEngine{}
	compiler := NewCompiler(engine, ".go")
	manifest := NewManifest()
	ctx := context.Background()

	first, err := compiler.Compile(ctx, tmpl, "pkg", buildRoot, manifest)
	require.NoError(t, err)

	// make the artifact unambiguously newer than the template
	past := time.Now().Add(-time.Hour)
	setMtime(t, tmpl.SourcePath, past)
	info, err := os.Stat(first.Path)
	require.NoError(t, err)
	before := info.ModTime()

	second, err := compiler.Compile(ctx, tmpl, "pkg", buildRoot, manifest)
	require.NoError(t, err)

	assert.False(t, second.Regenerated)
	assert.Equal(t, first.Path, second.Path)
	assert.Equal(t, 1, engine.count())
	assert.Equal(t, 1, manifest.Len())

	info, err = os.Stat(second.Path)
	require.NoError(t, err)
	assert.Equal(t, before, info.ModTime())
}

func TestCompileFreshness(t *testing.T) {
	src := t.TempDir()
	buildRoot := t.TempDir()
	tmpl := templateIn(t, src, "pkg", "page")
	out := ArtifactPath(buildRoot, "pkg", "page", ".go")
	writeFile(t, out, "old output")

	now := time.Now()
	tests := []struct {
		name        string
		templateAge time.Time
		artifactAge time.Time
		recompile   bool
	}{
		{"artifact newer", now.Add(-2 * time.Hour), now.Add(-time.Hour), false},
		{"same mtime", now.Add(-time.Hour), now.Add(-time.Hour), false},
		{"template newer", now.Add(-time.Minute), now.Add(-time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setMtime(t, tmpl.SourcePath, tt.templateAge)
			setMtime(t, out, tt.artifactAge)

			engine := &countingEngine{}
			artifact, err := NewCompiler(engine, ".go").Compile(context.Background(), tmpl, "pkg", buildRoot, NewManifest())
			require.NoError(t, err)

			assert.Equal(t, tt.recompile, artifact.Regenerated)
			if tt.recompile {
				assert.Equal(t, 1, engine.count())
			} else {
				assert.Equal(t, 0, engine.count())
			}
		})
	}
}

func TestCompileForce(t *testing.T) {
	src := t.TempDir()
	buildRoot := t.TempDir()
	tmpl := templateIn(t, src, "pkg", "page")

	engine := &countingEngine{}
	compiler := NewCompiler(engine, ".go", WithForce(true))
	manifest := NewManifest()

	for i := 0; i < 2; i++ {
		_, err := compiler.Compile(context.Background(), tmpl, "pkg", buildRoot, manifest)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, engine.count())
	assert.Equal(t, 1, manifest.Len())
}

func TestCompileEngineFailure(t *testing.T) {
	src := t.TempDir()
	buildRoot := t.TempDir()
	tmpl := templateIn(t, src, "pkg", "broken")

	cause := errors.New("unexpected directive")
	engine := &countingEngine{fail: map[string]error{"broken": cause}}
	manifest := NewManifest()

	_, err := NewCompiler(engine, ".go").Compile(context.Background(), tmpl, "pkg", buildRoot, manifest)

	require.Error(t, err)
	assert.True(t, tberrors.IsCompilationError(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 0, manifest.Len())

	_, statErr := os.Stat(ArtifactPath(buildRoot, "pkg", "broken", ".go"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCompileRejectsForeignTemplate(t *testing.T) {
	src := t.TempDir()
	tmpl := templateIn(t, src, "other", "page")

	_, err := NewCompiler(&countingEngine{}, ".go").Compile(context.Background(), tmpl, "pkg", t.TempDir(), NewManifest())

	require.Error(t, err)
	assert.True(t, tberrors.IsConfigurationError(err))
}

func TestCompileMissingTemplate(t *testing.T) {
	tmpl := scanner.TemplateFile{Package: "pkg", SourcePath: filepath.Join(t.TempDir(), "gone.templ"), ModuleName: "gone"}

	_, err := NewCompiler(&countingEngine{}, ".go").Compile(context.Background(), tmpl, "pkg", t.TempDir(), NewManifest())

	require.Error(t, err)
	assert.True(t, tberrors.IsType(err, tberrors.ErrorTypeIO))
}

func TestCompileRecordsMetrics(t *testing.T) {
	src := t.TempDir()
	buildRoot := t.TempDir()
	tmpl := templateIn(t, src, "pkg", "page")
	setMtime(t, tmpl.SourcePath, time.Now().Add(-time.Hour))

	metrics := NewMetrics(nil)
	compiler := NewCompiler(&countingEngine{}, ".go", WithMetrics(metrics))
	manifest := NewManifest()

	for i := 0; i < 3; i++ {
		_, err := compiler.Compile(context.Background(), tmpl, "pkg", buildRoot, manifest)
		require.NoError(t, err)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.templates.WithLabelValues(string(ResultCompiled))))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.templates.WithLabelValues(string(ResultSkipped))))
}

func TestNewer(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "b")
	writeFile(t, src, "a")

	stale, err := Newer(src, dst)
	require.NoError(t, err)
	assert.True(t, stale)

	writeFile(t, dst, "b")
	setMtime(t, src, time.Now().Add(-time.Hour))
	stale, err = Newer(src, dst)
	require.NoError(t, err)
	assert.False(t, stale)

	_, err = Newer(filepath.Join(dir, "missing"), dst)
	assert.Error(t, err)
}

func TestCompileEngineFailureCarriesPosition(t *testing.T) {
	src := t.TempDir()
	tmpl := templateIn(t, src, "pkg", "page")

	engine := &countingEngine{fail: map[string]error{
		"page": errors.New("templ failed: exit status 1\n" + tmpl.SourcePath + ":4:2: unexpected token"),
	}}

	_, err := NewCompiler(engine, ".go").Compile(context.Background(), tmpl, "pkg", t.TempDir(), NewManifest())
	require.Error(t, err)

	var e *tberrors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 4, e.Line)
	assert.Equal(t, 2, e.Column)
	assert.Contains(t, err.Error(), tmpl.SourcePath+":4:2")
}

func TestCompileEngineFailureInOtherFileHasNoPosition(t *testing.T) {
	src := t.TempDir()
	tmpl := templateIn(t, src, "pkg", "page")
	included := filepath.Join(src, "layout.templ")

	engine := &countingEngine{fail: map[string]error{
		"page": errors.New("templ failed: exit status 1\n" + included + ":9:3: unknown component"),
	}}

	_, err := NewCompiler(engine, ".go").Compile(context.Background(), tmpl, "pkg", t.TempDir(), NewManifest())
	require.Error(t, err)

	var e *tberrors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, tmpl.SourcePath, e.FilePath)
	assert.Zero(t, e.Line)
	assert.Zero(t, e.Column)
	assert.NotContains(t, err.Error(), tmpl.SourcePath+":9:3")

	diags, ok := e.Context["diagnostics"].([]tberrors.Diagnostic)
	require.True(t, ok)
	assert.Equal(t, included, diags[0].File)
}

// unavailableEngine reports that its program is missing.
type unavailableEngine struct {
	countingEngine
	probes int
}

func (e *unavailableEngine) Available() error {
	e.probes++
	return errors.New("executable file not found in $PATH")
}

func TestCompileEngineUnavailable(t *testing.T) {
	src := t.TempDir()
	buildRoot := t.TempDir()
	engine := &unavailableEngine{}
	compiler := NewCompiler(engine, ".go")
	manifest := NewManifest()

	for _, module := range []string{"a", "b"} {
		_, err := compiler.Compile(context.Background(), templateIn(t, src, "pkg", module), "pkg", buildRoot, manifest)
		require.Error(t, err)

		var e *tberrors.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, tberrors.ErrCodeEngineUnavailable, e.Code)
		assert.True(t, tberrors.IsCompilationError(err))
	}

	assert.Equal(t, 1, engine.probes)
	assert.Equal(t, 0, engine.count())
	assert.Equal(t, 0, manifest.Len())
}

func TestCompileWithMissingCommandEngine(t *testing.T) {
	engine, err := NewCommandEngine("tmplbuild-no-such-engine {source}")
	require.NoError(t, err)

	tmpl := templateIn(t, t.TempDir(), "pkg", "page")
	_, err = NewCompiler(engine, ".go").Compile(context.Background(), tmpl, "pkg", t.TempDir(), NewManifest())

	var e *tberrors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, tberrors.ErrCodeEngineUnavailable, e.Code)
}
