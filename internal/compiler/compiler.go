// Package compiler implements the pluggable source-to-CSS/JS compiler
// pipeline: per-extension compilers registered in an ordered list and
// dispatched first-match-wins by the build driver.
//
// Engine failures are policy, not exceptions: a compilation error from an
// underlying engine is converted into a Result carrying warnings, never
// returned as an error, so one broken stylesheet can not abort an entire
// project build.
package compiler

import (
	"context"
	"strings"

	"github.com/conneroisu/sandcastle/internal/vfs"
)

// Result is the outcome of compiling one source file.
type Result struct {
	// Code is the compiled JS output, empty for pure stylesheets.
	Code string
	// CSS is the compiled stylesheet output.
	CSS string
	// Warnings carries engine diagnostics, including converted compile
	// errors. A failed compile has empty Code/CSS and a non-empty Warnings.
	Warnings []string
	// CSSMetadata holds optional engine-specific output metadata.
	CSSMetadata map[string]string
}

// Failed reports whether the compilation produced no output but warnings.
func (r Result) Failed() bool {
	return r.Code == "" && r.CSS == "" && len(r.Warnings) > 0
}

// Compiler compiles sources of the extensions it claims.
type Compiler interface {
	// Name returns the compiler's unique name.
	Name() string

	// Extensions returns the dot-prefixed lowercase extensions handled.
	Extensions() []string

	// CanHandle reports whether path's extension is claimed. Relative
	// prefixes like "./" and "../" are irrelevant to the match.
	CanHandle(path string) bool

	// Compile compiles source. The returned error is reserved for context
	// cancellation and engine transport failures; engine compile errors
	// surface as Result warnings.
	Compile(ctx context.Context, source []byte, path string) (Result, error)

	// CompileSync is the best-effort synchronous fast path. Until the
	// compiler's engine is initialized it returns a warning-only Result
	// instead of blocking or failing.
	CompileSync(source []byte, path string) Result
}

// matchExtension reports whether path's extension is in exts. Paths are
// slash-normalized first so "./x.scss", "../x.scss" and "x.scss" all match.
func matchExtension(path string, exts []string) bool {
	ext := vfs.Ext(strings.ReplaceAll(path, "\\", "/"))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
