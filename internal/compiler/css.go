package compiler

import (
	"context"
)

// PlainCSSCompiler passes .css files through unchanged so the build driver
// treats stylesheets uniformly regardless of their source language.
type PlainCSSCompiler struct{}

var _ Compiler = (*PlainCSSCompiler)(nil)

var cssExtensions = []string{".css"}

// NewPlainCSSCompiler creates the passthrough CSS compiler.
func NewPlainCSSCompiler() *PlainCSSCompiler { return &PlainCSSCompiler{} }

// Name returns the compiler name.
func (c *PlainCSSCompiler) Name() string { return "css" }

// Extensions returns the handled extensions.
func (c *PlainCSSCompiler) Extensions() []string { return cssExtensions }

// CanHandle reports whether path has a css extension.
func (c *PlainCSSCompiler) CanHandle(path string) bool {
	return matchExtension(path, cssExtensions)
}

// Compile returns the source unchanged.
func (c *PlainCSSCompiler) Compile(ctx context.Context, source []byte, path string) (Result, error) {
	return Result{CSS: string(source)}, nil
}

// CompileSync returns the source unchanged; passthrough is always sync-safe.
func (c *PlainCSSCompiler) CompileSync(source []byte, path string) Result {
	return Result{CSS: string(source)}
}
