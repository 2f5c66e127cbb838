package compiler

import (
	"context"
	"fmt"

	"github.com/conneroisu/sandcastle/internal/broker"
)

// CompileRequest is the payload a BrokerEngine sends to its worker.
type CompileRequest struct {
	Source string `json:"source"`
	Path   string `json:"path"`
}

// BrokerEngine adapts a request/response broker into an Engine, for engines
// hosted in a separate worker. The worker answers "compile" requests with
// either a bare CSS string or a map carrying "css" and optional "meta".
type BrokerEngine struct {
	Broker *broker.Broker
}

// Compile forwards the source to the worker and decodes its answer.
func (e *BrokerEngine) Compile(source, path string) (string, map[string]string, error) {
	result, err := e.Broker.Call(context.Background(), "compile", CompileRequest{
		Source: source,
		Path:   path,
	})
	if err != nil {
		return "", nil, err
	}

	switch v := result.(type) {
	case string:
		return v, nil, nil
	case map[string]any:
		css, _ := v["css"].(string)
		meta := make(map[string]string)
		if raw, ok := v["meta"].(map[string]any); ok {
			for key, value := range raw {
				meta[key] = fmt.Sprint(value)
			}
		}
		return css, meta, nil
	default:
		return "", nil, fmt.Errorf("unexpected compile result type %T", result)
	}
}

// SupportsSync reports false; every call crosses the worker boundary.
func (e *BrokerEngine) SupportsSync() bool { return false }

// BrokerEngineLoader waits for the worker to announce readiness and returns
// the engine.
type BrokerEngineLoader struct {
	Broker *broker.Broker
}

// Load blocks until the worker is ready.
func (l *BrokerEngineLoader) Load(ctx context.Context) (Engine, error) {
	if err := l.Broker.WaitReady(ctx); err != nil {
		return nil, err
	}
	return &BrokerEngine{Broker: l.Broker}, nil
}
