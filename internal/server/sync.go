package server

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/conneroisu/sandcastle/internal/errors"
	"github.com/conneroisu/sandcastle/internal/logging"
	"github.com/conneroisu/sandcastle/internal/vfs"
	"github.com/fsnotify/fsnotify"
)

// Syncer mirrors a host directory into the virtual filesystem and reports
// debounced change batches so the caller can trigger rebuilds.
type Syncer struct {
	fs       vfs.FileSystem
	hostDir  string
	target   string
	debounce time.Duration
	ignore   []string
	logger   logging.Logger
	onChange func(paths []string)
}

// SyncOptions configures a Syncer.
type SyncOptions struct {
	// Target is the VFS directory the host tree mirrors into, "/" by default.
	Target string
	// Debounce groups rapid change bursts into one notification.
	Debounce time.Duration
	// Ignore lists directory or file names skipped entirely.
	Ignore []string
	Logger logging.Logger
	// OnChange receives the mirrored VFS paths of each debounced batch.
	OnChange func(paths []string)
}

// NewSyncer creates a syncer for hostDir.
func NewSyncer(fs vfs.FileSystem, hostDir string, opts SyncOptions) *Syncer {
	if opts.Target == "" {
		opts.Target = "/"
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Syncer{
		fs:       fs,
		hostDir:  filepath.Clean(hostDir),
		target:   vfs.Normalize(opts.Target),
		debounce: opts.Debounce,
		ignore:   opts.Ignore,
		logger:   opts.Logger.WithComponent("sync"),
		onChange: opts.OnChange,
	}
}

// Mirror copies the current host tree into the VFS.
func (s *Syncer) Mirror(ctx context.Context) error {
	return filepath.Walk(s.hostDir, func(hostPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if s.ignored(hostPath) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		target, ok := s.targetPath(hostPath)
		if !ok {
			return nil
		}
		if info.IsDir() {
			return s.fs.Mkdir(ctx, target, vfs.MkdirOptions{Recursive: true})
		}
		data, err := os.ReadFile(hostPath)
		if err != nil {
			return err
		}
		return s.fs.WriteFile(ctx, target, data)
	})
}

// Run mirrors the host tree, then watches it until ctx is cancelled,
// applying changes to the VFS and reporting each debounced batch.
func (s *Syncer) Run(ctx context.Context) error {
	if err := s.Mirror(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := s.watchRecursive(watcher, s.hostDir); err != nil {
		return err
	}
	s.logger.Info(ctx, "watching host directory", "dir", s.hostDir)

	var timer *time.Timer
	var timerC <-chan time.Time
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if s.ignored(event.Name) {
				continue
			}
			if err := s.apply(ctx, watcher, event); err != nil {
				s.logger.Warn(ctx, err, "sync apply failed", "path", event.Name)
				continue
			}
			if target, ok := s.targetPath(event.Name); ok {
				pending[target] = struct{}{}
			}
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for path := range pending {
				batch = append(batch, path)
			}
			sort.Strings(batch)
			pending = make(map[string]struct{})
			s.logger.Debug(ctx, "change batch", "count", len(batch))
			if s.onChange != nil {
				s.onChange(batch)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn(ctx, err, "watcher error")
		}
	}
}

func (s *Syncer) apply(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) error {
	target, ok := s.targetPath(event.Name)
	if !ok {
		return nil
	}

	switch {
	case event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			// Raced with a delete; the Remove event handles it.
			return nil
		}
		if info.IsDir() {
			if err := s.fs.Mkdir(ctx, target, vfs.MkdirOptions{Recursive: true}); err != nil {
				return err
			}
			// New directories need their own watch and an initial copy of
			// anything created before the watch landed.
			if err := s.watchRecursive(watcher, event.Name); err != nil {
				return err
			}
			return s.mirrorSubtree(ctx, event.Name)
		}
		data, err := os.ReadFile(event.Name)
		if err != nil {
			return err
		}
		return s.fs.WriteFile(ctx, target, data)

	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		err := s.fs.Unlink(ctx, target)
		if errors.IsDir(err) {
			err = s.fs.Rmdir(ctx, target, vfs.RmdirOptions{Recursive: true})
		}
		if errors.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Syncer) mirrorSubtree(ctx context.Context, hostDir string) error {
	return filepath.Walk(hostDir, func(hostPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if s.ignored(hostPath) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		target, ok := s.targetPath(hostPath)
		if !ok || info.IsDir() {
			return nil
		}
		data, err := os.ReadFile(hostPath)
		if err != nil {
			return err
		}
		return s.fs.WriteFile(ctx, target, data)
	})
}

func (s *Syncer) watchRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if s.ignored(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// targetPath maps a host path to its VFS mirror path. Paths outside hostDir
// report ok=false.
func (s *Syncer) targetPath(hostPath string) (string, bool) {
	rel, err := filepath.Rel(s.hostDir, hostPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	if rel == "." {
		return s.target, true
	}
	return vfs.Join(s.target, filepath.ToSlash(rel)), true
}

func (s *Syncer) ignored(hostPath string) bool {
	rel, err := filepath.Rel(s.hostDir, hostPath)
	if err != nil || rel == "." {
		return false
	}
	for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, name := range s.ignore {
			if segment == name {
				return true
			}
		}
	}
	return false
}
