package compiler

import (
	"context"
	"errors"
	"testing"

	"github.com/conneroisu/sandcastle/internal/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerEngineCompile(t *testing.T) {
	b := broker.NewLocal(func(ctx context.Context, req broker.Request) (any, error) {
		payload, ok := req.Payload.(CompileRequest)
		require.True(t, ok)
		return map[string]any{
			"css":  "/* " + payload.Path + " */",
			"meta": map[string]any{"lines": 1},
		}, nil
	}, broker.Options{})

	loader := &BrokerEngineLoader{Broker: b}
	engine, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, engine.SupportsSync())

	css, meta, err := engine.Compile("a {}", "/src/a.scss")
	require.NoError(t, err)
	assert.Equal(t, "/* /src/a.scss */", css)
	assert.Equal(t, "1", meta["lines"])
}

func TestBrokerEngineBareStringResult(t *testing.T) {
	b := broker.NewLocal(func(ctx context.Context, req broker.Request) (any, error) {
		return "compiled", nil
	}, broker.Options{})

	engine := &BrokerEngine{Broker: b}
	css, meta, err := engine.Compile("a {}", "/a.scss")
	require.NoError(t, err)
	assert.Equal(t, "compiled", css)
	assert.Empty(t, meta)
}

func TestBrokerEngineWorkerError(t *testing.T) {
	b := broker.NewLocal(func(ctx context.Context, req broker.Request) (any, error) {
		return nil, errors.New("engine crashed")
	}, broker.Options{})

	engine := &BrokerEngine{Broker: b}
	_, _, err := engine.Compile("a {}", "/a.scss")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine crashed")
}
