package compiler

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/conneroisu/sandcastle/internal/errors"
)

// ExecEngine compiles by piping source through an external binary such as
// dart-sass. Stdout is the compiled CSS; a non-zero exit surfaces stderr as
// the diagnostic.
type ExecEngine struct {
	Binary string
	Args   []string
}

// Compile runs the binary with source on stdin.
func (e *ExecEngine) Compile(source, path string) (string, map[string]string, error) {
	cmd := exec.Command(e.Binary, e.Args...)
	cmd.Stdin = strings.NewReader(source)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", nil, errors.NewInternal(msg)
	}
	return stdout.String(), map[string]string{"engine": e.Binary}, nil
}

// SupportsSync reports true; subprocess invocation has no async variant.
func (e *ExecEngine) SupportsSync() bool { return true }

// ExecEngineLoader resolves an external compiler binary on first use. Sass
// defaults to `sass --stdin --no-source-map` when no args are given.
type ExecEngineLoader struct {
	Binary string
	Args   []string
}

// Load verifies the binary is on PATH and returns the engine.
func (l *ExecEngineLoader) Load(ctx context.Context) (Engine, error) {
	resolved, err := exec.LookPath(l.Binary)
	if err != nil {
		return nil, errors.NewNetwork("EFETCH", "compiler binary not found: "+l.Binary).WithCause(err)
	}
	args := l.Args
	if args == nil && strings.Contains(l.Binary, "sass") {
		args = []string{"--stdin", "--no-source-map"}
	}
	return &ExecEngine{Binary: resolved, Args: args}, nil
}
