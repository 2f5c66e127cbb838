// Package errors provides structured error types for the sandcastle runtime.
// Filesystem errors carry POSIX-style string codes (ENOENT, EISDIR, ...) that
// are part of the public contract: callers branch on the code, never on the
// message text.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeFS       ErrorType = "fs"
	ErrorTypeLockfile ErrorType = "lockfile"
	ErrorTypeCompile  ErrorType = "compile"
	ErrorTypeNetwork  ErrorType = "network"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeInternal ErrorType = "internal"
)

// Filesystem error codes. These are stable identifiers shared with the
// build driver and preview renderer.
const (
	CodeNotExist  = "ENOENT"
	CodeIsDir     = "EISDIR"
	CodeNotDir    = "ENOTDIR"
	CodeNotEmpty  = "ENOTEMPTY"
	CodeExist     = "EEXIST"
	CodeInvalid   = "EINVAL"
	CodeBadJSON   = "EBADJSON"
	CodeTimeout   = "ETIMEDOUT"
)

// Error is a structured error with a category, a stable code, and optional
// path/cause context.
type Error struct {
	Type    ErrorType
	Code    string
	Message string
	Path    string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Path != "" {
		parts = append(parts, e.Path)
	}
	parts = append(parts, e.Message)
	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}
	return result
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is compares errors by type and code, ignoring message and path.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// WithCause attaches an underlying cause.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// NewFS creates a filesystem error with the given code for path.
func NewFS(code, path, message string) *Error {
	return &Error{Type: ErrorTypeFS, Code: code, Path: path, Message: message}
}

// ErrNotExist reports that path does not exist.
func ErrNotExist(path string) *Error {
	return NewFS(CodeNotExist, path, "no such file or directory")
}

// ErrIsDir reports that path is a directory where a file was required.
func ErrIsDir(path string) *Error {
	return NewFS(CodeIsDir, path, "is a directory")
}

// ErrNotDir reports that path is not a directory where one was required.
func ErrNotDir(path string) *Error {
	return NewFS(CodeNotDir, path, "not a directory")
}

// ErrNotEmpty reports that a directory still has children.
func ErrNotEmpty(path string) *Error {
	return NewFS(CodeNotEmpty, path, "directory not empty")
}

// ErrExist reports that path already exists.
func ErrExist(path string) *Error {
	return NewFS(CodeExist, path, "file exists")
}

// ErrUnsafePath reports a path whose ".." traversal escapes the tree root.
func ErrUnsafePath(path string) *Error {
	return NewFS(CodeInvalid, path, "path escapes filesystem root")
}

// NewLockfile creates a lockfile error.
func NewLockfile(code, message string) *Error {
	return &Error{Type: ErrorTypeLockfile, Code: code, Message: message}
}

// NewNetwork creates a network error.
func NewNetwork(code, message string) *Error {
	return &Error{Type: ErrorTypeNetwork, Code: code, Message: message}
}

// NewInternal creates an internal error.
func NewInternal(message string) *Error {
	return &Error{Type: ErrorTypeInternal, Message: message}
}

// Code extracts the stable code from err, or "" if err is not an *Error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotExist reports whether err carries ENOENT.
func IsNotExist(err error) bool { return Code(err) == CodeNotExist }

// IsDir reports whether err carries EISDIR.
func IsDir(err error) bool { return Code(err) == CodeIsDir }

// IsNotDir reports whether err carries ENOTDIR.
func IsNotDir(err error) bool { return Code(err) == CodeNotDir }

// IsNotEmpty reports whether err carries ENOTEMPTY.
func IsNotEmpty(err error) bool { return Code(err) == CodeNotEmpty }

// IsExist reports whether err carries EEXIST.
func IsExist(err error) bool { return Code(err) == CodeExist }
