// Package build implements the build driver: it reads project sources from
// the virtual filesystem, resolves dependencies through the lockfile
// resolver, compiles through the registry consulting the cache first, and
// yields between chunks so long builds stay cooperative.
package build

import (
	"context"
	"encoding/json"
	"time"

	"github.com/conneroisu/sandcastle/internal/cache"
	"github.com/conneroisu/sandcastle/internal/compiler"
	"github.com/conneroisu/sandcastle/internal/lockfile"
	"github.com/conneroisu/sandcastle/internal/logging"
	"github.com/conneroisu/sandcastle/internal/scheduler"
	"github.com/conneroisu/sandcastle/internal/vfs"
)

// Well-known project paths.
const (
	OutputDir    = "/build"
	LockfilePath = "/package-lock.json"
	ModulesDir   = "/node_modules"
)

// DefaultChunkSize is how many files compile between yields.
const DefaultChunkSize = 8

// Driver owns one build session: one filesystem, one cache, one compiler
// registry, one yielder. Sessions are constructed explicitly and passed by
// reference; there is no process-global instance.
type Driver struct {
	fs        vfs.FileSystem
	cache     *cache.Cache[compiler.Result]
	registry  *compiler.Registry
	yielder   scheduler.Yielder
	logger    logging.Logger
	chunkSize int
}

// Options configures a Driver.
type Options struct {
	Cache     *cache.Cache[compiler.Result]
	Registry  *compiler.Registry
	Yielder   scheduler.Yielder
	Logger    logging.Logger
	ChunkSize int
}

// Report summarizes one project build. A file with compile warnings still
// counts as built output; warnings never abort the build.
type Report struct {
	Built    int
	Cached   int
	Skipped  int
	Warnings map[string][]string
	Duration time.Duration
}

// InstallReport summarizes a dependency install.
type InstallReport struct {
	Installed int
	Warnings  []string
}

// NewDriver creates a build driver over fs.
func NewDriver(fs vfs.FileSystem, opts Options) *Driver {
	if opts.Cache == nil {
		opts.Cache = cache.New[compiler.Result](cache.Options{})
	}
	if opts.Registry == nil {
		opts.Registry = compiler.NewRegistry()
	}
	if opts.Yielder == nil {
		opts.Yielder = scheduler.New(scheduler.Options{})
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &Driver{
		fs:        fs,
		cache:     opts.Cache,
		registry:  opts.Registry,
		yielder:   opts.Yielder,
		logger:    opts.Logger.WithComponent("build"),
		chunkSize: opts.ChunkSize,
	}
}

// Cache exposes the session cache for housekeeping (stats, pruning).
func (d *Driver) Cache() *cache.Cache[compiler.Result] { return d.cache }

// Registry exposes the session's compiler registry.
func (d *Driver) Registry() *compiler.Registry { return d.registry }

// BuildProject compiles every handled source under root and writes outputs
// under /build, mirroring the source layout. Compile failures surface as
// per-file warnings in the report.
func (d *Driver) BuildProject(ctx context.Context, root string) (*Report, error) {
	start := time.Now()
	root = vfs.Normalize(root)

	files, err := d.collectSources(ctx, root)
	if err != nil {
		return nil, err
	}

	report := &Report{Warnings: make(map[string][]string)}

	type buildOutcome struct{}
	_, err = scheduler.ProcessInChunks(ctx, d.yielder, files,
		func(ctx context.Context, path string) (buildOutcome, error) {
			if err := d.buildFile(ctx, root, path, report); err != nil {
				return buildOutcome{}, err
			}
			return buildOutcome{}, nil
		}, d.chunkSize)
	if err != nil {
		return report, err
	}

	report.Duration = time.Since(start)
	d.logger.Info(ctx, "project build finished",
		"root", root,
		"built", report.Built,
		"cached", report.Cached,
		"skipped", report.Skipped,
		"duration", report.Duration.String())
	return report, nil
}

// collectSources walks the tree under root, skipping the output directory
// and installed modules.
func (d *Driver) collectSources(ctx context.Context, root string) ([]string, error) {
	var files []string

	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := d.fs.ReadDirWithTypes(ctx, dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			path := vfs.Join(dir, entry.Name)
			if path == vfs.Join(root, OutputDir) || path == vfs.Join(root, ModulesDir) {
				continue
			}
			if entry.IsDirectory {
				if err := walk(path); err != nil {
					return err
				}
				continue
			}
			files = append(files, path)
		}
		return nil
	}

	if err := walk(root); err != nil {
		return nil, err
	}
	return files, nil
}

func (d *Driver) buildFile(ctx context.Context, root, path string, report *Report) error {
	comp := d.registry.ForPath(path)
	if comp == nil {
		report.Skipped++
		return nil
	}

	source, err := d.fs.ReadFile(ctx, path)
	if err != nil {
		return err
	}

	key := comp.Name() + ":" + vfs.ContentHash(source)
	result, hit := d.cache.Get(key)
	if hit {
		report.Cached++
	} else {
		result, err = comp.Compile(ctx, source, path)
		if err != nil {
			// Transport failure or cancellation; not a compile diagnostic.
			return err
		}
		d.cache.Set(key, result)
		report.Built++
	}

	if len(result.Warnings) > 0 {
		report.Warnings[path] = append(report.Warnings[path], result.Warnings...)
		d.logger.Warn(ctx, nil, "compile warnings", "path", path, "count", len(result.Warnings))
	}

	return d.writeOutputs(ctx, root, path, result)
}

// writeOutputs mirrors path under /build with the compiled artifacts. A
// failed result writes nothing.
func (d *Driver) writeOutputs(ctx context.Context, root, path string, result compiler.Result) error {
	if result.CSS == "" && result.Code == "" {
		return nil
	}

	rel := path
	if root != "/" && len(path) > len(root) {
		rel = path[len(root):]
	}

	base := rel
	if ext := vfs.Ext(rel); ext != "" {
		base = rel[:len(rel)-len(ext)]
	}

	outDir := vfs.Join(root, OutputDir, vfs.Dir(rel))
	if err := d.fs.Mkdir(ctx, outDir, vfs.MkdirOptions{Recursive: true}); err != nil {
		return err
	}

	if result.CSS != "" {
		out := vfs.Join(root, OutputDir, base+".css")
		if err := d.fs.WriteFile(ctx, out, []byte(result.CSS)); err != nil {
			return err
		}
	}
	if result.Code != "" {
		out := vfs.Join(root, OutputDir, base+".js")
		if err := d.fs.WriteFile(ctx, out, []byte(result.Code)); err != nil {
			return err
		}
	}
	return nil
}

// InstallDeps parses lockfile content (tolerantly), flattens it, and
// materializes one package.json record per dependency under /node_modules so
// the preview can resolve module specifiers. The parsed lockfile is also
// persisted at /package-lock.json in canonical form.
func (d *Driver) InstallDeps(ctx context.Context, content []byte) (*InstallReport, error) {
	lf, warnings, err := lockfile.Parse(content, lockfile.ParseOptions{})
	if err != nil {
		return nil, err
	}

	report := &InstallReport{Warnings: warnings}
	deps := lockfile.ExtractFlatDeps(lf)

	paths := make([]string, 0, len(deps))
	for path := range deps {
		paths = append(paths, path)
	}

	_, err = scheduler.ProcessInChunks(ctx, d.yielder, paths,
		func(ctx context.Context, path string) (struct{}, error) {
			dep := deps[path]
			dir := vfs.Join("/", path)
			if err := d.fs.Mkdir(ctx, dir, vfs.MkdirOptions{Recursive: true}); err != nil {
				return struct{}{}, err
			}
			record, err := json.MarshalIndent(map[string]string{
				"name":      dep.Name,
				"version":   dep.Version,
				"resolved":  dep.Resolved,
				"integrity": dep.Integrity,
			}, "", "  ")
			if err != nil {
				return struct{}{}, err
			}
			if err := d.fs.WriteFile(ctx, vfs.Join(dir, "package.json"), record); err != nil {
				return struct{}{}, err
			}
			report.Installed++
			return struct{}{}, nil
		}, d.chunkSize)
	if err != nil {
		return report, err
	}

	canonical, err := lockfile.Stringify(lf)
	if err != nil {
		return report, err
	}
	if err := d.fs.WriteFile(ctx, LockfilePath, []byte(canonical)); err != nil {
		return report, err
	}

	d.logger.Info(ctx, "dependencies installed", "count", report.Installed)
	return report, nil
}
