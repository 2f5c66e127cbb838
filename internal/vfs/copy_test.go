package vfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyTreeBetweenFilesystems(t *testing.T) {
	ctx := context.Background()
	src := NewMemoryFS()
	require.NoError(t, src.Mkdir(ctx, "/pkg/sub", MkdirOptions{Recursive: true}))
	require.NoError(t, src.WriteFile(ctx, "/pkg/a.txt", []byte("a")))
	require.NoError(t, src.WriteFile(ctx, "/pkg/sub/b.txt", []byte("b")))

	dst, err := NewDiskFS(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, CopyTree(ctx, src, dst, "/pkg"))

	data, err := dst.ReadFile(ctx, "/pkg/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	data, err = dst.ReadFile(ctx, "/pkg/sub/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
}

func TestCopyTreeSingleFile(t *testing.T) {
	ctx := context.Background()
	src := NewMemoryFS()
	require.NoError(t, src.Mkdir(ctx, "/dir", MkdirOptions{}))
	require.NoError(t, src.WriteFile(ctx, "/dir/only.css", []byte("x {}")))

	dst := NewMemoryFS()
	require.NoError(t, CopyTree(ctx, src, dst, "/dir/only.css"))

	data, err := dst.ReadFile(ctx, "/dir/only.css")
	require.NoError(t, err)
	assert.Equal(t, "x {}", string(data))
}

func TestCopyTreeMissingSource(t *testing.T) {
	ctx := context.Background()
	err := CopyTree(ctx, NewMemoryFS(), NewMemoryFS(), "/nope")
	assert.Error(t, err)
}
