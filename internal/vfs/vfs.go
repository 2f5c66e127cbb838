// Package vfs implements the virtual filesystem for the sandcastle runtime:
// a backend-abstracted tree of files and directories with POSIX-like error
// semantics. Every backend implements the same FileSystem surface, so
// swapping durability is a constructor choice, not a call-site change.
package vfs

import (
	"context"
	"time"
)

// Capabilities describes the durability and synchronicity guarantees of a
// backend. Callers read it to decide whether completion must be awaited
// before, for example, letting the session end.
type Capabilities struct {
	// Persistent is true when writes survive the process.
	Persistent bool
	// SyncAccess is true when operations complete without real I/O waits.
	SyncAccess bool
}

// FileInfo describes a single node.
type FileInfo struct {
	IsFile      bool
	IsDirectory bool
	Size        int64
	ModTime     time.Time
}

// DirEntry is one entry of a directory listing with type information.
type DirEntry struct {
	Name        string
	IsFile      bool
	IsDirectory bool
}

// MkdirOptions controls Mkdir behavior.
type MkdirOptions struct {
	// Recursive creates the full ancestor chain idempotently.
	Recursive bool
}

// RmdirOptions controls Rmdir behavior.
type RmdirOptions struct {
	// Recursive deletes the subtree unconditionally.
	Recursive bool
}

// FileSystem is the backend-agnostic filesystem contract. All operations are
// context-aware and return typed errors carrying the POSIX-style codes
// ENOENT, EISDIR, ENOTDIR, ENOTEMPTY and EEXIST; callers branch on the code
// via the errors package helpers.
//
// Operations issued against one instance from one logical caller are
// observed in issue order. Write-write races on the same path are the
// caller's responsibility to serialize.
type FileSystem interface {
	// Capabilities reports the backend's capability descriptor.
	Capabilities() Capabilities

	// ReadFile returns the file's bytes. ENOENT if missing, EISDIR if path
	// names a directory.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile creates or overwrites the file. Missing parent directories
	// are not created implicitly (ENOENT).
	WriteFile(ctx context.Context, path string, data []byte) error

	// Unlink removes a file. ENOENT if missing, EISDIR for directories.
	Unlink(ctx context.Context, path string) error

	// Mkdir creates a directory. Without Recursive every ancestor must
	// already exist (ENOENT); with Recursive the chain is created
	// idempotently.
	Mkdir(ctx context.Context, path string, opts MkdirOptions) error

	// Rmdir removes a directory. Without Recursive a non-empty directory
	// fails ENOTEMPTY; with Recursive the subtree is deleted.
	Rmdir(ctx context.Context, path string, opts RmdirOptions) error

	// ReadDir lists child names.
	ReadDir(ctx context.Context, path string) ([]string, error)

	// ReadDirWithTypes lists children with type information.
	ReadDirWithTypes(ctx context.Context, path string) ([]DirEntry, error)

	// Stat describes the node at path. ENOENT if missing.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// Rename moves a file or an entire directory subtree. Atomic from the
	// caller's perspective.
	Rename(ctx context.Context, from, to string) error

	// CopyFile duplicates a file byte for byte into independent storage.
	CopyFile(ctx context.Context, from, to string) error

	// Exists reports whether path names any node. Never returns an error.
	Exists(ctx context.Context, path string) bool
}
