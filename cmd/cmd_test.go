package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/tmplbuild/internal/testutils"
)

const projectConfig = `packages: [app, app.views]
package_dirs:
  - {package: app, dir: src}
templates:
  command: "cat {source}"
`

// newProject writes a small project into a temporary directory and makes it
// the working directory.
func newProject(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}

	dir := t.TempDir()
	files := map[string]string{
		".tmplbuild.yml":       projectConfig,
		"go.mod":               "module example.com/app\n\ngo 1.21\n",
		"src/app.go":           "package app\n",
		"src/views/page.templ": "package views\n",
		"src/views/views.go":   "package views\n",
	}
	testutils.WriteTree(t, dir, files)

	t.Chdir(dir)
	wd, err := os.Getwd()
	require.NoError(t, err)
	return wd
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestBuildCommand(t *testing.T) {
	dir := newProject(t)

	out, err := executeCommand(t, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "Compiled 1 of 1 template(s)")

	lib := filepath.Join(dir, "build", "lib")
	assert.FileExists(t, filepath.Join(lib, "app", "app.go"))
	assert.FileExists(t, filepath.Join(lib, "app", "views", "views.go"))
	assert.FileExists(t, filepath.Join(lib, "go.mod"))

	generated, err := os.ReadFile(filepath.Join(lib, "app", "views", "page.go"))
	require.NoError(t, err)
	assert.Equal(t, "package views\n", string(generated))

	out, err = executeCommand(t, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "Compiled 0 of 1 template(s)")
}

func TestBuildCommandFlags(t *testing.T) {
	dir := newProject(t)

	_, err := executeCommand(t, "build", "--build-base", "out", "--force")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "out", "lib", "app", "views", "page.go"))
	assert.NoDirExists(t, filepath.Join(dir, "build"))
}

func TestBuildCommandInvalidConfig(t *testing.T) {
	dir := newProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmplbuild.yml"), []byte("packages: [bad-name]\n"), 0o644))

	_, err := executeCommand(t, "build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad-name")
}

func TestBuildCommandWritesMetrics(t *testing.T) {
	dir := newProject(t)
	metrics := filepath.Join(dir, "metrics.prom")

	_, err := executeCommand(t, "build", "--metrics-file", metrics)
	require.NoError(t, err)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), `tmplbuild_templates_total{result="compiled"} 1`)
	assert.Contains(t, string(data), `tmplbuild_build_outcomes_total{outcome="success"} 1`)
}

func TestOutputsCommand(t *testing.T) {
	dir := newProject(t)
	lib := filepath.Join(dir, "build", "lib")
	page := filepath.Join(lib, "app", "views", "page.go")

	out, err := executeCommand(t, "outputs", "-o", "json", "--include-bytecode")
	require.NoError(t, err)

	var outputs []string
	require.NoError(t, json.Unmarshal([]byte(out), &outputs))
	assert.Contains(t, outputs, filepath.Join(lib, "app", "app.go"))
	assert.Contains(t, outputs, filepath.Join(lib, "app", "app.go")+"c")
	assert.Equal(t, []string{page, page + "c"}, outputs[len(outputs)-2:])

	out, err = executeCommand(t, "outputs")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, page, lines[len(lines)-1])
	assert.NotContains(t, out, page+"c")
}

func TestOutputsCommandInvalidFormat(t *testing.T) {
	newProject(t)

	_, err := executeCommand(t, "outputs", "-o", "xml")
	assert.Error(t, err)
}

func TestConfigCommand(t *testing.T) {
	dir := newProject(t)
	t.Setenv("TMPLBUILD_BUILD_OPTIMIZE", "2")

	out, err := executeCommand(t, "config")
	require.NoError(t, err)

	var decoded struct {
		Packages []string `yaml:"packages"`
		Build    struct {
			BuildLib string `yaml:"build_lib"`
			Optimize int    `yaml:"optimize"`
		} `yaml:"build"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, []string{"app", "app.views"}, decoded.Packages)
	assert.Equal(t, filepath.Join(dir, "build", "lib"), decoded.Build.BuildLib)
	assert.Equal(t, 2, decoded.Build.Optimize)
}

func TestConfigFileFlag(t *testing.T) {
	dir := newProject(t)
	alt := filepath.Join(dir, "alt.yml")
	require.NoError(t, os.WriteFile(alt, []byte("packages: [other]\n"), 0o644))

	out, err := executeCommand(t, "config", "--config", alt, "-o", "json")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, []interface{}{"other"}, decoded["packages"])
}

func TestBuildRejectsUnreadableConfig(t *testing.T) {
	t.Run("malformed default file", func(t *testing.T) {
		dir := newProject(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmplbuild.yml"), []byte("packages: [app\n  bad: :\n"), 0o644))

		out, err := executeCommand(t, "build")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot read config file")
		assert.NotContains(t, out, "template(s)")
		assert.NoDirExists(t, filepath.Join(dir, "build"))
	})

	t.Run("missing explicit file", func(t *testing.T) {
		dir := newProject(t)

		_, err := executeCommand(t, "build", "--config", filepath.Join(dir, "missing.yml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing.yml")
	})

	t.Run("missing file from environment", func(t *testing.T) {
		dir := newProject(t)
		t.Setenv("TMPLBUILD_CONFIG_FILE", filepath.Join(dir, "missing.yml"))

		_, err := executeCommand(t, "config")
		require.Error(t, err)
	})
}

func TestBuildWithoutConfigFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := executeCommand(t, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "Compiled 0 of 0 template(s)")
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version", "--short")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))

	_, err = executeCommand(t, "version", "--format", "xml")
	assert.Error(t, err)
}

func TestInvalidLogFormat(t *testing.T) {
	_, err := executeCommand(t, "version", "--log-format", "xml")
	assert.Error(t, err)
}

func TestLintCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("loads packages with the go command")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not available")
	}
	dir := newProject(t)

	_, err := executeCommand(t, "lint")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "build", "lib", "app", "views", "page.go"))
}
