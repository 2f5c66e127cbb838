package compiler

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecEngineLoaderResolvesBinary(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}

	loader := &ExecEngineLoader{Binary: "cat"}
	engine, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, engine.SupportsSync())

	css, meta, err := engine.Compile("a { color: red }", "/src/a.scss")
	require.NoError(t, err)
	assert.Equal(t, "a { color: red }", css)
	assert.NotEmpty(t, meta["engine"])
}

func TestExecEngineLoaderMissingBinary(t *testing.T) {
	loader := &ExecEngineLoader{Binary: "definitely-not-a-real-compiler"}
	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestExecEngineFailureSurfacesDiagnostic(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not available")
	}

	engine := &ExecEngine{Binary: "false"}
	_, _, err := engine.Compile("a {}", "/a.scss")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status")
}
