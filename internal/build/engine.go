package build

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/conneroisu/tmplbuild/internal/validation"
)

// Engine turns one template into generated source text.
type Engine interface {
	Compile(ctx context.Context, sourcePath, moduleName string) (string, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, sourcePath, moduleName string) (string, error)

// Compile calls f.
func (f EngineFunc) Compile(ctx context.Context, sourcePath, moduleName string) (string, error) {
	return f(ctx, sourcePath, moduleName)
}

// Placeholders substituted into CommandEngine arguments.
const (
	PlaceholderSource = "{source}"
	PlaceholderModule = "{module}"
)

// CommandEngine runs an external template compiler and captures its
// standard output as the generated source.
type CommandEngine struct {
	command string
	args    []string
}

// NewCommandEngine parses a command line such as
// "templ generate -stdout -f {source}".
func NewCommandEngine(commandLine string) (*CommandEngine, error) {
	words := strings.Fields(commandLine)
	if err := validation.ValidateCommandLine(words); err != nil {
		return nil, fmt.Errorf("command validation failed: %w", err)
	}
	return &CommandEngine{command: words[0], args: words[1:]}, nil
}

// Available reports whether the engine's program can be found.
func (e *CommandEngine) Available() error {
	_, err := exec.LookPath(e.command)
	return err
}

// Compile runs the command for one template.
func (e *CommandEngine) Compile(ctx context.Context, sourcePath, moduleName string) (string, error) {
	replacer := strings.NewReplacer(PlaceholderSource, sourcePath, PlaceholderModule, moduleName)
	args := make([]string, len(e.args))
	for i, a := range e.args {
		args[i] = replacer.Replace(a)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s cancelled: %w", e.command, ctx.Err())
		}
		return "", fmt.Errorf("%s failed: %w\n%s", e.command, err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}
