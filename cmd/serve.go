package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/conneroisu/sandcastle/internal/build"
	"github.com/conneroisu/sandcastle/internal/config"
	"github.com/conneroisu/sandcastle/internal/logging"
	"github.com/conneroisu/sandcastle/internal/server"
	"github.com/conneroisu/sandcastle/internal/vfs"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [dir]",
	Short: "Start the preview server with live reload",
	Long: `Start the preview server over a project directory.

The directory is mirrored into an in-memory filesystem, dependencies from
package-lock.json are installed, the project is built, and changes on disk
trigger incremental rebuilds pushed to the browser over websocket.

Examples:
  sandcastle serve              # Serve the current directory
  sandcastle serve ./site       # Serve a specific directory
  sandcastle serve -p 3000      # Serve on another port`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8787, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().String("sass-binary", "sass", "External scss compiler binary")

	mustBindFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindFlag("compilers.sass_binary", serveCmd.Flags().Lookup("sass-binary"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	hostDir := "."
	if len(args) == 1 {
		hostDir = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg)
	fs := vfs.NewMemoryFS()
	driver := newDriver(cfg, fs, logger)
	srv := server.New(cfg, fs, driver, logger)

	syncer := server.NewSyncer(fs, hostDir, server.SyncOptions{
		Target:   cfg.Build.Root,
		Debounce: cfg.Sync.Debounce,
		Ignore:   cfg.Sync.Ignore,
		Logger:   logger,
		OnChange: func(paths []string) {
			for _, path := range paths {
				if path == build.LockfilePath {
					installFromVFS(ctx, fs, driver, logger)
					break
				}
			}
			if err := srv.Rebuild(ctx); err != nil {
				logger.Error(ctx, err, "rebuild failed")
			}
		},
	})

	if err := syncer.Mirror(ctx); err != nil {
		return fmt.Errorf("mirroring %s: %w", hostDir, err)
	}
	installFromVFS(ctx, fs, driver, logger)
	if _, err := driver.BuildProject(ctx, cfg.Build.Root); err != nil {
		return fmt.Errorf("initial build: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- syncer.Run(ctx) }()

	if err := srv.Start(ctx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// installFromVFS installs dependencies when the mirrored tree carries a
// lockfile. A missing lockfile is not an error.
func installFromVFS(ctx context.Context, fs vfs.FileSystem, driver *build.Driver, logger logging.Logger) {
	content, err := fs.ReadFile(ctx, build.LockfilePath)
	if err != nil {
		return
	}
	report, err := driver.InstallDeps(ctx, content)
	if err != nil {
		logger.Warn(ctx, err, "dependency install failed")
		return
	}
	for _, warning := range report.Warnings {
		logger.Warn(ctx, nil, warning)
	}
}
