package cmd

import (
	"os"

	"github.com/conneroisu/sandcastle/internal/build"
	"github.com/conneroisu/sandcastle/internal/cache"
	"github.com/conneroisu/sandcastle/internal/compiler"
	"github.com/conneroisu/sandcastle/internal/config"
	"github.com/conneroisu/sandcastle/internal/logging"
	"github.com/conneroisu/sandcastle/internal/vfs"
)

func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// newRegistry wires the compiler pipeline. SCSS loads its engine lazily: from
// the configured URL when one is set, otherwise from a local sass binary.
func newRegistry(cfg *config.Config) *compiler.Registry {
	var loader compiler.EngineLoader = &compiler.ExecEngineLoader{Binary: cfg.Compilers.SassBinary}

	registry := compiler.NewRegistry()
	registry.Register(compiler.NewSCSSCompiler(loader))
	registry.Register(compiler.NewPlainCSSCompiler())
	return registry
}

func newDriver(cfg *config.Config, fs vfs.FileSystem, logger logging.Logger) *build.Driver {
	return build.NewDriver(fs, build.Options{
		Cache: cache.New[compiler.Result](cache.Options{
			MaxEntries: cfg.Cache.MaxEntries,
			TTL:        cfg.Cache.TTL,
		}),
		Registry:  newRegistry(cfg),
		Logger:    logger,
		ChunkSize: cfg.Build.ChunkSize,
	})
}
