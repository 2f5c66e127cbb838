package compiler

import (
	"context"
	"fmt"
	"sync"
)

// engineState tracks the lazy engine lifecycle. The transitions are
// uninitialized → loading → ready; a failed load returns to uninitialized so
// a later call may retry under the caller's retry policy.
type engineState int

const (
	engineUninitialized engineState = iota
	engineLoading
	engineReady
)

// SCSSCompiler compiles .scss/.sass sources through a lazily loaded engine.
// The first Compile call triggers the engine load; concurrent first calls
// share a single in-flight load instead of racing duplicate downloads.
type SCSSCompiler struct {
	loader EngineLoader

	mu      sync.Mutex
	state   engineState
	engine  Engine
	loadErr error
	loadCh  chan struct{}
}

var _ Compiler = (*SCSSCompiler)(nil)

var scssExtensions = []string{".scss", ".sass"}

// NewSCSSCompiler creates an SCSS compiler that loads its engine from loader
// on first use.
func NewSCSSCompiler(loader EngineLoader) *SCSSCompiler {
	return &SCSSCompiler{loader: loader}
}

// Name returns the compiler name.
func (c *SCSSCompiler) Name() string { return "scss" }

// Extensions returns the handled extensions.
func (c *SCSSCompiler) Extensions() []string { return scssExtensions }

// CanHandle reports whether path has an scss/sass extension.
func (c *SCSSCompiler) CanHandle(path string) bool {
	return matchExtension(path, scssExtensions)
}

// Initialized reports whether the engine is loaded and ready.
func (c *SCSSCompiler) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == engineReady
}

// ensureEngine resolves the engine, loading it on first use. Exactly one
// caller performs the load; the rest wait on the shared channel.
func (c *SCSSCompiler) ensureEngine(ctx context.Context) (Engine, error) {
	c.mu.Lock()
	switch c.state {
	case engineReady:
		engine := c.engine
		c.mu.Unlock()
		return engine, nil

	case engineLoading:
		ch := c.loadCh
		c.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.state == engineReady {
			return c.engine, nil
		}
		return nil, c.loadErr

	default:
		c.state = engineLoading
		c.loadCh = make(chan struct{})
		ch := c.loadCh
		c.mu.Unlock()

		engine, err := c.loader.Load(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.state = engineUninitialized
			c.loadErr = err
			close(ch)
			return nil, err
		}
		c.state = engineReady
		c.engine = engine
		c.loadErr = nil
		close(ch)
		return engine, nil
	}
}

// Compile compiles SCSS source. Engine load failures and context
// cancellation are returned as errors (the caller owns retry policy);
// engine compile errors become warnings in the Result.
func (c *SCSSCompiler) Compile(ctx context.Context, source []byte, path string) (Result, error) {
	engine, err := c.ensureEngine(ctx)
	if err != nil {
		return Result{}, err
	}

	css, meta, compileErr := engine.Compile(string(source), path)
	if compileErr != nil {
		return Result{
			Warnings: []string{fmt.Sprintf("scss: %v", compileErr)},
		}, nil
	}

	return Result{CSS: css, CSSMetadata: meta}, nil
}

// CompileSync is the best-effort fast path. It degrades to a warning-only
// Result while the engine is not yet loaded or has no synchronous API.
func (c *SCSSCompiler) CompileSync(source []byte, path string) Result {
	c.mu.Lock()
	ready := c.state == engineReady
	engine := c.engine
	c.mu.Unlock()

	if !ready {
		return Result{Warnings: []string{"scss: engine not initialized, synchronous compilation unavailable"}}
	}
	if !engine.SupportsSync() {
		return Result{Warnings: []string{"scss: engine has no synchronous API"}}
	}

	css, meta, err := engine.Compile(string(source), path)
	if err != nil {
		return Result{Warnings: []string{fmt.Sprintf("scss: %v", err)}}
	}
	return Result{CSS: css, CSSMetadata: meta}
}
