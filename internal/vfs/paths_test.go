package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"a/b", "/a/b"},
		{"/a/b", "/a/b"},
		{"//a///b//", "/a/b"},
		{"/a/./b", "/a/b"},
		{"/a/b/../c", "/a/c"},
		{"/../a", "/a"},
		{"..", "/"},
		{"\\a\\b", "/a/b"},
		{"./src/app.scss", "/src/app.scss"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestIsSafe(t *testing.T) {
	assert.True(t, IsSafe("/a/b/c"))
	assert.True(t, IsSafe("a/b/../c"))
	assert.True(t, IsSafe("./x"))
	assert.False(t, IsSafe("../x"))
	assert.False(t, IsSafe("/a/../../x"))
	assert.False(t, IsSafe("a/b/../../../c"))
}

func TestJoinAndSplit(t *testing.T) {
	assert.Equal(t, "/a/b/c", Join("a", "b", "c"))
	assert.Equal(t, "/a/c", Join("/a", "b", "..", "c"))
	assert.Equal(t, []string{"a", "b"}, Split("/a//b/"))
	assert.Nil(t, Split("/"))
}

func TestDirBaseExt(t *testing.T) {
	assert.Equal(t, "/a/b", Dir("/a/b/c.scss"))
	assert.Equal(t, "/", Dir("/a"))
	assert.Equal(t, "/", Dir("/"))
	assert.Equal(t, "c.scss", Base("/a/b/c.scss"))
	assert.Equal(t, "", Base("/"))
	assert.Equal(t, ".scss", Ext("/a/b/c.SCSS"))
	assert.Equal(t, "", Ext("/a/b/Makefile"))
	assert.Equal(t, "", Ext("/a/.gitignore"))
}

func TestContentHash(t *testing.T) {
	h1 := ContentHash([]byte("body { color: red }"))
	h2 := ContentHash([]byte("body { color: red }"))
	h3 := ContentHash([]byte("body { color: blue }"))

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 32)
}
