package compiler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/conneroisu/sandcastle/internal/errors"
)

// Engine is a loaded compilation backend, typically a native or wasm bundle
// fetched at first use.
type Engine interface {
	// Compile transforms source into CSS plus optional metadata. A non-nil
	// error is an engine diagnostic and will be downgraded to a warning by
	// the owning compiler.
	Compile(source, path string) (css string, meta map[string]string, err error)

	// SupportsSync reports whether the engine has a native synchronous API.
	SupportsSync() bool
}

// EngineLoader produces an Engine on demand. Loading is expected to be
// expensive (network fetch); compilers share one in-flight load across
// concurrent first calls.
type EngineLoader interface {
	Load(ctx context.Context) (Engine, error)
}

// EngineFactory turns a fetched engine bundle into a usable Engine.
type EngineFactory func(bundle []byte) (Engine, error)

// HTTPEngineLoader fetches an engine bundle from a URL and instantiates it
// through a factory. Retry and backoff around the fetch belong to the
// caller, not here.
type HTTPEngineLoader struct {
	URL     string
	Client  *http.Client
	Factory EngineFactory
}

// Load fetches and instantiates the engine.
func (l *HTTPEngineLoader) Load(ctx context.Context) (Engine, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return nil, errors.NewNetwork("EFETCH", "building engine request").WithCause(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.NewNetwork("EFETCH", "fetching compiler engine").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewNetwork("EFETCH",
			fmt.Sprintf("fetching compiler engine: unexpected status %d", resp.StatusCode))
	}

	bundle, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetwork("EFETCH", "reading engine bundle").WithCause(err)
	}

	return l.Factory(bundle)
}

// StaticEngineLoader wraps an already-constructed engine, for embedders that
// ship their engine in-process.
type StaticEngineLoader struct {
	Engine Engine
}

// Load returns the wrapped engine.
func (l *StaticEngineLoader) Load(ctx context.Context) (Engine, error) {
	return l.Engine, nil
}
