package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/conneroisu/sandcastle/internal/config"
	"github.com/conneroisu/sandcastle/internal/lockfile"
	"github.com/conneroisu/sandcastle/internal/server"
	"github.com/conneroisu/sandcastle/internal/vfs"
	"github.com/spf13/cobra"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Inspect and manipulate npm lockfiles",
}

var depsListCmd = &cobra.Command{
	Use:   "list [lockfile]",
	Short: "Show the flat dependency set of a lockfile",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDepsList,
}

var depsInstallCmd = &cobra.Command{
	Use:   "install [dir]",
	Short: "Materialize lockfile dependencies under node_modules",
	Long: `Read <dir>/package-lock.json, flatten it, and write one package.json
record per dependency under <dir>/node_modules. Malformed lockfiles degrade
to an empty dependency set with a warning instead of failing.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDepsInstall,
}

var depsMergeCmd = &cobra.Command{
	Use:   "merge <base> <update>",
	Short: "Merge two lockfiles, update entries winning on conflict",
	Args:  cobra.ExactArgs(2),
	RunE:  runDepsMerge,
}

func init() {
	rootCmd.AddCommand(depsCmd)
	depsCmd.AddCommand(depsListCmd, depsInstallCmd, depsMergeCmd)

	depsMergeCmd.Flags().StringP("output", "o", "", "Write the merged lockfile here instead of stdout")
}

func runDepsList(cmd *cobra.Command, args []string) error {
	path := "package-lock.json"
	if len(args) == 1 {
		path = args[0]
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	lf, warnings, err := lockfile.Parse(content, lockfile.ParseOptions{})
	if err != nil {
		return err
	}
	for _, warning := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", warning)
	}

	deps := lockfile.ExtractFlatDeps(lf)
	paths := make([]string, 0, len(deps))
	for p := range deps {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		dep := deps[p]
		fmt.Printf("%s@%s\n", dep.Name, dep.Version)
	}
	return nil
}

func runDepsInstall(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	logger := newLogger(cfg)
	fs := vfs.NewMemoryFS()
	driver := newDriver(cfg, fs, logger)
	ctx := cmd.Context()

	// Mirror the host tree so the lockfile and install targets live in the
	// same filesystem, then write node_modules back out.
	syncer := server.NewSyncer(fs, dir, server.SyncOptions{Ignore: cfg.Sync.Ignore, Logger: logger})
	if err := syncer.Mirror(ctx); err != nil {
		return err
	}

	content, err := fs.ReadFile(ctx, "/package-lock.json")
	if err != nil {
		return fmt.Errorf("no package-lock.json in %s: %w", dir, err)
	}

	report, err := driver.InstallDeps(ctx, content)
	if err != nil {
		return err
	}
	for _, warning := range report.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", warning)
	}

	disk, err := vfs.NewDiskFS(dir)
	if err != nil {
		return err
	}
	if err := vfs.CopyTree(ctx, fs, disk, "/node_modules"); err != nil {
		return err
	}

	fmt.Printf("installed %d dependencies\n", report.Installed)
	return nil
}

func runDepsMerge(cmd *cobra.Command, args []string) error {
	base, err := readLockfile(args[0])
	if err != nil {
		return err
	}
	update, err := readLockfile(args[1])
	if err != nil {
		return err
	}

	merged := lockfile.Merge(base, update)
	out, err := lockfile.Stringify(merged)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		return os.WriteFile(path, []byte(out), 0o644)
	}
	fmt.Print(out)
	return nil
}

func readLockfile(path string) (*lockfile.Lockfile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lf, warnings, err := lockfile.Parse(content, lockfile.ParseOptions{Strict: true})
	if err != nil {
		return nil, err
	}
	for _, warning := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", warning)
	}
	return lf, nil
}
