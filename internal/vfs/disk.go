package vfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/conneroisu/sandcastle/internal/errors"
)

// DiskFS is the persistent backend: the virtual tree is rooted at a host
// directory and every operation is jailed below it. Capabilities report
// Persistent so callers know writes survive the process.
type DiskFS struct {
	root string
}

var _ FileSystem = (*DiskFS)(nil)

// NewDiskFS creates a disk-backed filesystem rooted at dir, creating the
// root directory if needed.
func NewDiskFS(dir string) (*DiskFS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.NewInternal("resolving filesystem root").WithCause(err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.NewInternal("creating filesystem root").WithCause(err)
	}
	return &DiskFS{root: abs}, nil
}

// Capabilities reports the backend capability descriptor.
func (d *DiskFS) Capabilities() Capabilities {
	return Capabilities{Persistent: true, SyncAccess: true}
}

// hostPath maps a virtual path onto the host, refusing paths that would
// escape the root.
func (d *DiskFS) hostPath(path string) (string, error) {
	if !IsSafe(path) {
		return "", errors.ErrUnsafePath(path)
	}
	return filepath.Join(d.root, filepath.FromSlash(Normalize(path))), nil
}

// statNode describes the host node, translating absence into ENOENT.
func (d *DiskFS) statNode(path string) (os.FileInfo, string, error) {
	host, err := d.hostPath(path)
	if err != nil {
		return nil, "", err
	}
	info, err := os.Stat(host)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", errors.ErrNotExist(path)
		}
		return nil, "", errors.NewFS(errors.CodeInvalid, path, "stat failed").WithCause(err)
	}
	return info, host, nil
}

// ReadFile returns the file's bytes.
func (d *DiskFS) ReadFile(ctx context.Context, path string) ([]byte, error) {
	info, host, err := d.statNode(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errors.ErrIsDir(path)
	}
	data, err := os.ReadFile(host)
	if err != nil {
		return nil, errors.NewFS(errors.CodeInvalid, path, "read failed").WithCause(err)
	}
	return data, nil
}

// WriteFile creates or overwrites the file. Missing parents are not created.
func (d *DiskFS) WriteFile(ctx context.Context, path string, data []byte) error {
	host, err := d.hostPath(path)
	if err != nil {
		return err
	}

	parentInfo, err := os.Stat(filepath.Dir(host))
	if err != nil {
		if os.IsNotExist(err) {
			return errors.ErrNotExist(Dir(path))
		}
		return errors.NewFS(errors.CodeInvalid, path, "stat parent failed").WithCause(err)
	}
	if !parentInfo.IsDir() {
		return errors.ErrNotDir(Dir(path))
	}
	if info, statErr := os.Stat(host); statErr == nil && info.IsDir() {
		return errors.ErrIsDir(path)
	}

	if err := os.WriteFile(host, data, 0o644); err != nil {
		return errors.NewFS(errors.CodeInvalid, path, "write failed").WithCause(err)
	}
	return nil
}

// Unlink removes a file.
func (d *DiskFS) Unlink(ctx context.Context, path string) error {
	info, host, err := d.statNode(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.ErrIsDir(path)
	}
	if err := os.Remove(host); err != nil {
		return errors.NewFS(errors.CodeInvalid, path, "unlink failed").WithCause(err)
	}
	return nil
}

// Mkdir creates a directory.
func (d *DiskFS) Mkdir(ctx context.Context, path string, opts MkdirOptions) error {
	host, err := d.hostPath(path)
	if err != nil {
		return err
	}

	if opts.Recursive {
		if info, statErr := os.Stat(host); statErr == nil {
			if info.IsDir() {
				return nil
			}
			return errors.ErrExist(path)
		}
		if err := os.MkdirAll(host, 0o755); err != nil {
			// The leaf was handled by the stat above, so a file found here is
			// an ancestor blocking the chain: ENOTDIR, matching the in-memory
			// backend.
			for p := Dir(Normalize(path)); p != "/"; p = Dir(p) {
				h, hostErr := d.hostPath(p)
				if hostErr != nil {
					break
				}
				if info, statErr := os.Stat(h); statErr == nil && !info.IsDir() {
					return errors.ErrNotDir(path)
				}
			}
			return errors.NewFS(errors.CodeInvalid, path, "mkdir failed").WithCause(err)
		}
		return nil
	}

	parentInfo, err := os.Stat(filepath.Dir(host))
	if err != nil {
		if os.IsNotExist(err) {
			return errors.ErrNotExist(Dir(path))
		}
		return errors.NewFS(errors.CodeInvalid, path, "stat parent failed").WithCause(err)
	}
	if !parentInfo.IsDir() {
		return errors.ErrNotDir(Dir(path))
	}
	if _, statErr := os.Stat(host); statErr == nil {
		return errors.ErrExist(path)
	}
	if err := os.Mkdir(host, 0o755); err != nil {
		return errors.NewFS(errors.CodeInvalid, path, "mkdir failed").WithCause(err)
	}
	return nil
}

// Rmdir removes a directory.
func (d *DiskFS) Rmdir(ctx context.Context, path string, opts RmdirOptions) error {
	info, host, err := d.statNode(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.ErrNotDir(path)
	}

	if opts.Recursive {
		if err := os.RemoveAll(host); err != nil {
			return errors.NewFS(errors.CodeInvalid, path, "rmdir failed").WithCause(err)
		}
		return nil
	}

	entries, err := os.ReadDir(host)
	if err != nil {
		return errors.NewFS(errors.CodeInvalid, path, "readdir failed").WithCause(err)
	}
	if len(entries) > 0 {
		return errors.ErrNotEmpty(path)
	}
	if err := os.Remove(host); err != nil {
		return errors.NewFS(errors.CodeInvalid, path, "rmdir failed").WithCause(err)
	}
	return nil
}

// ReadDir lists child names sorted lexically.
func (d *DiskFS) ReadDir(ctx context.Context, path string) ([]string, error) {
	entries, err := d.ReadDirWithTypes(ctx, path)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names, nil
}

// ReadDirWithTypes lists children with type information.
func (d *DiskFS) ReadDirWithTypes(ctx context.Context, path string) ([]DirEntry, error) {
	info, host, err := d.statNode(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.ErrNotDir(path)
	}
	raw, err := os.ReadDir(host)
	if err != nil {
		return nil, errors.NewFS(errors.CodeInvalid, path, "readdir failed").WithCause(err)
	}
	entries := make([]DirEntry, 0, len(raw))
	for _, e := range raw {
		entries = append(entries, DirEntry{
			Name:        e.Name(),
			IsFile:      !e.IsDir(),
			IsDirectory: e.IsDir(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Stat describes the node at path.
func (d *DiskFS) Stat(ctx context.Context, path string) (FileInfo, error) {
	info, _, err := d.statNode(path)
	if err != nil {
		return FileInfo{}, err
	}
	fi := FileInfo{
		IsFile:      !info.IsDir(),
		IsDirectory: info.IsDir(),
		ModTime:     info.ModTime(),
	}
	if fi.IsFile {
		fi.Size = info.Size()
	}
	return fi, nil
}

// Rename moves a file or directory subtree.
func (d *DiskFS) Rename(ctx context.Context, from, to string) error {
	if err := checkRenamePaths(from, to); err != nil {
		return err
	}
	if _, _, err := d.statNode(from); err != nil {
		return err
	}
	toHost, err := d.hostPath(to)
	if err != nil {
		return err
	}
	fromHost, err := d.hostPath(from)
	if err != nil {
		return err
	}

	parentInfo, err := os.Stat(filepath.Dir(toHost))
	if err != nil {
		if os.IsNotExist(err) {
			return errors.ErrNotExist(Dir(to))
		}
		return errors.NewFS(errors.CodeInvalid, to, "stat parent failed").WithCause(err)
	}
	if !parentInfo.IsDir() {
		return errors.ErrNotDir(Dir(to))
	}
	if info, statErr := os.Stat(toHost); statErr == nil && info.IsDir() {
		return errors.ErrExist(to)
	}

	if err := os.Rename(fromHost, toHost); err != nil {
		return errors.NewFS(errors.CodeInvalid, from, "rename failed").WithCause(err)
	}
	return nil
}

// CopyFile duplicates a file byte for byte.
func (d *DiskFS) CopyFile(ctx context.Context, from, to string) error {
	info, fromHost, err := d.statNode(from)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.ErrIsDir(from)
	}
	toHost, err := d.hostPath(to)
	if err != nil {
		return err
	}
	if toInfo, statErr := os.Stat(toHost); statErr == nil && toInfo.IsDir() {
		return errors.ErrIsDir(to)
	}

	src, err := os.Open(fromHost)
	if err != nil {
		return errors.NewFS(errors.CodeInvalid, from, "open failed").WithCause(err)
	}
	defer src.Close()

	dst, err := os.OpenFile(toHost, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.ErrNotExist(Dir(to))
		}
		return errors.NewFS(errors.CodeInvalid, to, "open failed").WithCause(err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return errors.NewFS(errors.CodeInvalid, to, "copy failed").WithCause(err)
	}
	return nil
}

// Exists reports whether path names any node.
func (d *DiskFS) Exists(ctx context.Context, path string) bool {
	_, _, err := d.statNode(path)
	return err == nil
}
