package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		code  string
	}{
		{"not exist", ErrNotExist("/a/b"), IsNotExist, "ENOENT"},
		{"is dir", ErrIsDir("/a"), IsDir, "EISDIR"},
		{"not dir", ErrNotDir("/a/file"), IsNotDir, "ENOTDIR"},
		{"not empty", ErrNotEmpty("/a"), IsNotEmpty, "ENOTEMPTY"},
		{"exist", ErrExist("/a"), IsExist, "EEXIST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.Equal(t, tt.code, Code(tt.err))
		})
	}
}

func TestCodeSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("reading project: %w", ErrNotExist("/src/app.ts"))
	assert.True(t, IsNotExist(err))
	assert.False(t, IsDir(err))
	assert.Equal(t, "ENOENT", Code(err))
}

func TestErrorMessageContainsCodeAndPath(t *testing.T) {
	err := ErrIsDir("/src")
	assert.Contains(t, err.Error(), "[EISDIR]")
	assert.Contains(t, err.Error(), "/src")
}

func TestCodeOnForeignError(t *testing.T) {
	assert.Equal(t, "", Code(fmt.Errorf("plain")))
	assert.False(t, IsNotExist(fmt.Errorf("plain")))
	assert.False(t, IsNotExist(nil))
}

func TestIsMatchesTypeAndCode(t *testing.T) {
	assert.ErrorIs(t, ErrNotExist("/x"), ErrNotExist("/y"))
	assert.NotErrorIs(t, ErrNotExist("/x"), ErrIsDir("/x"))
}
