package build

import (
	"context"
	"fmt"
	"sync"

	"github.com/conneroisu/tmplbuild/internal/testutils"
)

// countingEngine renders "// module <name>" and counts its invocations.
type countingEngine struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (e *countingEngine) Compile(_ context.Context, sourcePath, moduleName string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, sourcePath)
	if err, ok := e.fail[moduleName]; ok {
		return "", err
	}
	return fmt.Sprintf("// module %s\n", moduleName), nil
}

func (e *countingEngine) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// fakeBase is a BaseStep with fixed outputs.
type fakeBase struct {
	outputs []string
	runs    int
	err     error
}

func (b *fakeBase) Run(context.Context) error {
	b.runs++
	return b.err
}

func (b *fakeBase) Outputs(bool) []string {
	return append([]string(nil), b.outputs...)
}

var (
	writeFile  = testutils.WriteFile
	setMtime   = testutils.SetMtime
	newProject = testutils.NewProject
)
