package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/conneroisu/sandcastle/internal/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHostFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSyncerMirror(t *testing.T) {
	hostDir := t.TempDir()
	writeHostFile(t, hostDir, "index.html", "<html></html>")
	writeHostFile(t, hostDir, "src/app.scss", "a {}")
	writeHostFile(t, hostDir, "node_modules/x/index.js", "ignored")
	writeHostFile(t, hostDir, ".git/HEAD", "ignored")

	fs := vfs.NewMemoryFS()
	syncer := NewSyncer(fs, hostDir, SyncOptions{Ignore: []string{".git", "node_modules"}})

	ctx := context.Background()
	require.NoError(t, syncer.Mirror(ctx))

	data, err := fs.ReadFile(ctx, "/index.html")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))

	data, err = fs.ReadFile(ctx, "/src/app.scss")
	require.NoError(t, err)
	assert.Equal(t, "a {}", string(data))

	assert.False(t, fs.Exists(ctx, "/node_modules"))
	assert.False(t, fs.Exists(ctx, "/.git"))
}

func TestSyncerMirrorIntoSubdir(t *testing.T) {
	hostDir := t.TempDir()
	writeHostFile(t, hostDir, "a.css", "x {}")

	fs := vfs.NewMemoryFS()
	ctx := context.Background()
	require.NoError(t, fs.Mkdir(ctx, "/project", vfs.MkdirOptions{}))
	syncer := NewSyncer(fs, hostDir, SyncOptions{Target: "/project"})

	require.NoError(t, syncer.Mirror(ctx))
	assert.True(t, fs.Exists(ctx, "/project/a.css"))
}

func TestSyncerRunAppliesChanges(t *testing.T) {
	hostDir := t.TempDir()
	writeHostFile(t, hostDir, "start.css", "s {}")

	fs := vfs.NewMemoryFS()
	batches := make(chan []string, 10)
	syncer := NewSyncer(fs, hostDir, SyncOptions{
		Debounce: 20 * time.Millisecond,
		OnChange: func(paths []string) { batches <- paths },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- syncer.Run(ctx) }()

	// Let the initial mirror and watch registration settle.
	require.Eventually(t, func() bool { return fs.Exists(context.Background(), "/start.css") },
		2*time.Second, 10*time.Millisecond)
	// The watch registers just after the mirror; give it a beat.
	time.Sleep(100 * time.Millisecond)

	writeHostFile(t, hostDir, "added.css", "n {}")

	select {
	case batch := <-batches:
		assert.Contains(t, batch, "/added.css")
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch arrived")
	}

	data, err := fs.ReadFile(context.Background(), "/added.css")
	require.NoError(t, err)
	assert.Equal(t, "n {}", string(data))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("syncer did not stop")
	}
}

func TestSyncerRunRemovesDeletedFiles(t *testing.T) {
	hostDir := t.TempDir()
	writeHostFile(t, hostDir, "gone.css", "g {}")

	fs := vfs.NewMemoryFS()
	batches := make(chan []string, 10)
	syncer := NewSyncer(fs, hostDir, SyncOptions{
		Debounce: 20 * time.Millisecond,
		OnChange: func(paths []string) { batches <- paths },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = syncer.Run(ctx) }()

	require.Eventually(t, func() bool { return fs.Exists(context.Background(), "/gone.css") },
		2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(hostDir, "gone.css")))

	select {
	case <-batches:
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch arrived")
	}
	assert.False(t, fs.Exists(context.Background(), "/gone.css"))
}
