package vfs

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/sandcastle/internal/errors"
)

// memNode is one node of the in-memory tree: either a file (data+mtime) or a
// directory (children). A file never has children.
type memNode struct {
	file     bool
	data     []byte
	mtime    time.Time
	children map[string]*memNode
}

func newDirNode(now time.Time) *memNode {
	return &memNode{mtime: now, children: make(map[string]*memNode)}
}

// MemoryFS is the ephemeral in-memory backend. It satisfies the full
// FileSystem contract with Capabilities{Persistent: false, SyncAccess: true}.
type MemoryFS struct {
	mu    sync.RWMutex
	root  *memNode
	clock func() time.Time
}

var _ FileSystem = (*MemoryFS)(nil)

// NewMemoryFS creates an empty in-memory filesystem.
func NewMemoryFS() *MemoryFS {
	clock := time.Now
	return &MemoryFS{root: newDirNode(clock()), clock: clock}
}

// Capabilities reports the backend capability descriptor.
func (m *MemoryFS) Capabilities() Capabilities {
	return Capabilities{Persistent: false, SyncAccess: true}
}

// lookup walks the tree to the node at path. Missing nodes yield ENOENT; a
// file in the middle of the chain yields ENOTDIR.
func (m *MemoryFS) lookup(path string) (*memNode, error) {
	node := m.root
	for _, seg := range Split(path) {
		if node.file {
			return nil, errors.ErrNotDir(path)
		}
		child, ok := node.children[seg]
		if !ok {
			return nil, errors.ErrNotExist(path)
		}
		node = child
	}
	return node, nil
}

// lookupParent resolves the parent directory of path. The parent must exist
// and be a directory.
func (m *MemoryFS) lookupParent(path string) (*memNode, string, error) {
	segs := Split(path)
	if len(segs) == 0 {
		return nil, "", errors.ErrIsDir("/")
	}
	parent, err := m.lookup(Dir(path))
	if err != nil {
		return nil, "", err
	}
	if parent.file {
		return nil, "", errors.ErrNotDir(Dir(path))
	}
	return parent, segs[len(segs)-1], nil
}

func checkSafe(path string) error {
	if !IsSafe(path) {
		return errors.ErrUnsafePath(path)
	}
	return nil
}

// checkRenamePaths rejects a rename whose destination equals the source or
// lives inside it. Both backends share the check so the EINVAL contract is
// identical.
func checkRenamePaths(from, to string) error {
	from = Normalize(from)
	to = Normalize(to)
	if to == from || strings.HasPrefix(to, from+"/") {
		return errors.NewFS(errors.CodeInvalid, to, "rename destination inside source")
	}
	return nil
}

// ReadFile returns the file's bytes.
func (m *MemoryFS) ReadFile(ctx context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, err := m.lookup(path)
	if err != nil {
		return nil, err
	}
	if !node.file {
		return nil, errors.ErrIsDir(path)
	}
	out := make([]byte, len(node.data))
	copy(out, node.data)
	return out, nil
}

// WriteFile creates or overwrites the file at path. Parents are not created
// implicitly.
func (m *MemoryFS) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := checkSafe(path); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	parent, name, err := m.lookupParent(path)
	if err != nil {
		return err
	}
	if existing, ok := parent.children[name]; ok && !existing.file {
		return errors.ErrIsDir(path)
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	parent.children[name] = &memNode{file: true, data: stored, mtime: m.clock()}
	return nil
}

// Unlink removes a file.
func (m *MemoryFS) Unlink(ctx context.Context, path string) error {
	if err := checkSafe(path); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	parent, name, err := m.lookupParent(path)
	if err != nil {
		return err
	}
	node, ok := parent.children[name]
	if !ok {
		return errors.ErrNotExist(path)
	}
	if !node.file {
		return errors.ErrIsDir(path)
	}
	delete(parent.children, name)
	return nil
}

// Mkdir creates a directory at path.
func (m *MemoryFS) Mkdir(ctx context.Context, path string, opts MkdirOptions) error {
	if err := checkSafe(path); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if opts.Recursive {
		segs := Split(path)
		node := m.root
		for i, seg := range segs {
			child, ok := node.children[seg]
			if !ok {
				child = newDirNode(m.clock())
				node.children[seg] = child
			} else if child.file {
				// A file at the leaf is EEXIST; a file blocking the chain
				// above it is ENOTDIR.
				if i == len(segs)-1 {
					return errors.ErrExist(path)
				}
				return errors.ErrNotDir(path)
			}
			node = child
		}
		return nil
	}

	parent, name, err := m.lookupParent(path)
	if err != nil {
		return err
	}
	if _, ok := parent.children[name]; ok {
		return errors.ErrExist(path)
	}
	parent.children[name] = newDirNode(m.clock())
	return nil
}

// Rmdir removes a directory.
func (m *MemoryFS) Rmdir(ctx context.Context, path string, opts RmdirOptions) error {
	if err := checkSafe(path); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	parent, name, err := m.lookupParent(path)
	if err != nil {
		return err
	}
	node, ok := parent.children[name]
	if !ok {
		return errors.ErrNotExist(path)
	}
	if node.file {
		return errors.ErrNotDir(path)
	}
	if !opts.Recursive && len(node.children) > 0 {
		return errors.ErrNotEmpty(path)
	}
	delete(parent.children, name)
	return nil
}

// ReadDir lists child names sorted lexically.
func (m *MemoryFS) ReadDir(ctx context.Context, path string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, err := m.lookup(path)
	if err != nil {
		return nil, err
	}
	if node.file {
		return nil, errors.ErrNotDir(path)
	}
	names := make([]string, 0, len(node.children))
	for name := range node.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ReadDirWithTypes lists children with type information.
func (m *MemoryFS) ReadDirWithTypes(ctx context.Context, path string) ([]DirEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, err := m.lookup(path)
	if err != nil {
		return nil, err
	}
	if node.file {
		return nil, errors.ErrNotDir(path)
	}
	entries := make([]DirEntry, 0, len(node.children))
	for name, child := range node.children {
		entries = append(entries, DirEntry{
			Name:        name,
			IsFile:      child.file,
			IsDirectory: !child.file,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Stat describes the node at path.
func (m *MemoryFS) Stat(ctx context.Context, path string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, err := m.lookup(path)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		IsFile:      node.file,
		IsDirectory: !node.file,
		Size:        int64(len(node.data)),
		ModTime:     node.mtime,
	}, nil
}

// Rename moves a file or directory subtree from one path to another. The
// destination must not equal the source or sit inside it; moving a directory
// into its own subtree would detach it from every reachable root.
func (m *MemoryFS) Rename(ctx context.Context, from, to string) error {
	if err := checkSafe(from); err != nil {
		return err
	}
	if err := checkSafe(to); err != nil {
		return err
	}
	if err := checkRenamePaths(from, to); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fromParent, fromName, err := m.lookupParent(from)
	if err != nil {
		return err
	}
	node, ok := fromParent.children[fromName]
	if !ok {
		return errors.ErrNotExist(from)
	}

	toParent, toName, err := m.lookupParent(to)
	if err != nil {
		return err
	}
	if existing, ok := toParent.children[toName]; ok && !existing.file {
		return errors.ErrExist(to)
	}

	delete(fromParent.children, fromName)
	toParent.children[toName] = node
	return nil
}

// CopyFile duplicates a file into independent storage.
func (m *MemoryFS) CopyFile(ctx context.Context, from, to string) error {
	if err := checkSafe(to); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	src, err := m.lookup(from)
	if err != nil {
		return err
	}
	if !src.file {
		return errors.ErrIsDir(from)
	}

	parent, name, err := m.lookupParent(to)
	if err != nil {
		return err
	}
	if existing, ok := parent.children[name]; ok && !existing.file {
		return errors.ErrIsDir(to)
	}

	data := make([]byte, len(src.data))
	copy(data, src.data)
	parent.children[name] = &memNode{file: true, data: data, mtime: m.clock()}
	return nil
}

// Exists reports whether path names any node.
func (m *MemoryFS) Exists(ctx context.Context, path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, err := m.lookup(path)
	return err == nil
}
