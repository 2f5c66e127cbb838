package build

import (
	"context"
	"errors"
	"testing"

	"github.com/conneroisu/sandcastle/internal/cache"
	"github.com/conneroisu/sandcastle/internal/compiler"
	"github.com/conneroisu/sandcastle/internal/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEngine compiles scss by uppercasing, or fails on marker content.
type testEngine struct{}

func (testEngine) Compile(source, path string) (string, map[string]string, error) {
	if source == "@broken" {
		return "", nil, errors.New("parse error on line 1, column 1")
	}
	return "/* from " + path + " */\n" + source, nil, nil
}

func (testEngine) SupportsSync() bool { return true }

func newTestDriver(t *testing.T) (*Driver, vfs.FileSystem) {
	t.Helper()

	fs := vfs.NewMemoryFS()
	registry := compiler.NewRegistry()
	registry.Register(compiler.NewSCSSCompiler(&compiler.StaticEngineLoader{Engine: testEngine{}}))
	registry.Register(compiler.NewPlainCSSCompiler())

	return NewDriver(fs, Options{Registry: registry}), fs
}

func seedProject(t *testing.T, fs vfs.FileSystem) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, fs.Mkdir(ctx, "/src", vfs.MkdirOptions{}))
	require.NoError(t, fs.WriteFile(ctx, "/src/app.scss", []byte("body { color: red }")))
	require.NoError(t, fs.WriteFile(ctx, "/src/theme.css", []byte(".t {}")))
	require.NoError(t, fs.WriteFile(ctx, "/src/readme.md", []byte("# hi")))
}

func TestBuildProjectCompilesAndWritesOutputs(t *testing.T) {
	driver, fs := newTestDriver(t)
	seedProject(t, fs)
	ctx := context.Background()

	report, err := driver.BuildProject(ctx, "/")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Built)
	assert.Equal(t, 0, report.Cached)
	assert.Equal(t, 1, report.Skipped, "readme.md has no compiler")
	assert.Empty(t, report.Warnings)

	css, err := fs.ReadFile(ctx, "/build/src/app.css")
	require.NoError(t, err)
	assert.Contains(t, string(css), "color: red")

	theme, err := fs.ReadFile(ctx, "/build/src/theme.css")
	require.NoError(t, err)
	assert.Equal(t, ".t {}", string(theme))
}

func TestBuildProjectUsesCacheOnRebuild(t *testing.T) {
	driver, fs := newTestDriver(t)
	seedProject(t, fs)
	ctx := context.Background()

	_, err := driver.BuildProject(ctx, "/")
	require.NoError(t, err)

	report, err := driver.BuildProject(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Built)
	assert.Equal(t, 2, report.Cached)

	// Changing content misses the cache again.
	require.NoError(t, fs.WriteFile(ctx, "/src/app.scss", []byte("body { color: blue }")))
	report, err = driver.BuildProject(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Built)
	assert.Equal(t, 1, report.Cached)
}

func TestBuildProjectBrokenFileWarnsButDoesNotAbort(t *testing.T) {
	driver, fs := newTestDriver(t)
	ctx := context.Background()
	require.NoError(t, fs.Mkdir(ctx, "/src", vfs.MkdirOptions{}))
	require.NoError(t, fs.WriteFile(ctx, "/src/bad.scss", []byte("@broken")))
	require.NoError(t, fs.WriteFile(ctx, "/src/good.scss", []byte("a {}")))

	report, err := driver.BuildProject(ctx, "/")
	require.NoError(t, err, "one broken stylesheet must not abort the build")

	require.Contains(t, report.Warnings, "/src/bad.scss")
	assert.Contains(t, report.Warnings["/src/bad.scss"][0], "parse error")

	// The broken file wrote no output; the good one did.
	assert.False(t, fs.Exists(ctx, "/build/src/bad.css"))
	assert.True(t, fs.Exists(ctx, "/build/src/good.css"))
}

func TestBuildProjectSkipsOutputAndModules(t *testing.T) {
	driver, fs := newTestDriver(t)
	ctx := context.Background()
	require.NoError(t, fs.Mkdir(ctx, "/src", vfs.MkdirOptions{}))
	require.NoError(t, fs.WriteFile(ctx, "/src/a.scss", []byte("a {}")))
	require.NoError(t, fs.Mkdir(ctx, "/node_modules/x", vfs.MkdirOptions{Recursive: true}))
	require.NoError(t, fs.WriteFile(ctx, "/node_modules/x/ignored.scss", []byte("n {}")))

	_, err := driver.BuildProject(ctx, "/")
	require.NoError(t, err)

	// A second build over previous outputs must not recompile /build.
	report, err := driver.BuildProject(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Built)
	assert.False(t, fs.Exists(ctx, "/build/build"))
	assert.False(t, fs.Exists(ctx, "/build/node_modules"))
}

func TestInstallDeps(t *testing.T) {
	driver, fs := newTestDriver(t)
	ctx := context.Background()

	content := `{"name":"p","version":"1.0.0","lockfileVersion":3,"packages":{
		"":{"version":"1.0.0"},
		"node_modules/lodash":{"version":"4.17.21","resolved":"https://registry.npmjs.org/lodash/-/lodash-4.17.21.tgz"},
		"node_modules/@scope/util":{"version":"2.0.0"}
	}}`

	report, err := driver.InstallDeps(ctx, []byte(content))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Installed)
	assert.Empty(t, report.Warnings)

	record, err := fs.ReadFile(ctx, "/node_modules/lodash/package.json")
	require.NoError(t, err)
	assert.Contains(t, string(record), `"version": "4.17.21"`)

	assert.True(t, fs.Exists(ctx, "/node_modules/@scope/util/package.json"))
	assert.True(t, fs.Exists(ctx, LockfilePath))
}

func TestInstallDepsCorruptLockfileDegrades(t *testing.T) {
	driver, fs := newTestDriver(t)
	ctx := context.Background()

	report, err := driver.InstallDeps(ctx, []byte("{{{"))
	require.NoError(t, err, "non-strict parse degrades instead of failing")
	assert.Equal(t, 0, report.Installed)
	require.NotEmpty(t, report.Warnings)
	assert.Contains(t, report.Warnings[0], "Invalid JSON")

	// The placeholder lockfile still persists in canonical form.
	lock, err := fs.ReadFile(ctx, LockfilePath)
	require.NoError(t, err)
	assert.Contains(t, string(lock), `"name": "unknown"`)
}

func TestBuildProjectCacheSharing(t *testing.T) {
	// Two files with identical content share one cache entry.
	shared := cache.New[compiler.Result](cache.Options{})
	fs := vfs.NewMemoryFS()
	registry := compiler.NewRegistry()
	registry.Register(compiler.NewSCSSCompiler(&compiler.StaticEngineLoader{Engine: testEngine{}}))
	driver := NewDriver(fs, Options{Registry: registry, Cache: shared})

	ctx := context.Background()
	require.NoError(t, fs.Mkdir(ctx, "/src", vfs.MkdirOptions{}))
	require.NoError(t, fs.WriteFile(ctx, "/src/one.scss", []byte("same {}")))
	require.NoError(t, fs.WriteFile(ctx, "/src/two.scss", []byte("same {}")))

	report, err := driver.BuildProject(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Built)
	assert.Equal(t, 1, report.Cached)
	assert.Equal(t, 1, shared.Len())
}
