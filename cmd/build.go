package cmd

import (
	"fmt"

	"github.com/conneroisu/sandcastle/internal/config"
	"github.com/conneroisu/sandcastle/internal/vfs"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [dir]",
	Short: "Compile the project once",
	Long: `Compile every handled source file in a project directory, writing
artifacts under <dir>/build. The build operates directly on disk; the cache
only helps within one invocation (files with identical content compile once).

Examples:
  sandcastle build              # Build the current directory
  sandcastle build ./site       # Build a specific directory
  sandcastle build --stats      # Print cache statistics afterwards`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().Bool("stats", false, "Print cache statistics after the build")
	buildCmd.Flags().Int("chunk-size", 8, "Files compiled between scheduler yields")
	buildCmd.Flags().String("sass-binary", "sass", "External scss compiler binary")

	mustBindFlag("build.chunk_size", buildCmd.Flags().Lookup("chunk-size"))
	mustBindFlag("compilers.sass_binary", buildCmd.Flags().Lookup("sass-binary"))
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	logger := newLogger(cfg)
	fs, err := vfs.NewDiskFS(dir)
	if err != nil {
		return err
	}
	driver := newDriver(cfg, fs, logger)

	report, err := driver.BuildProject(cmd.Context(), "/")
	if err != nil {
		return err
	}

	fmt.Printf("built %d, cached %d, skipped %d in %s\n",
		report.Built, report.Cached, report.Skipped, report.Duration.Round(0))
	for path, warnings := range report.Warnings {
		for _, warning := range warnings {
			fmt.Printf("warning: %s: %s\n", path, warning)
		}
	}

	if showStats, _ := cmd.Flags().GetBool("stats"); showStats {
		stats := driver.Cache().GetStats()
		fmt.Printf("cache: %d/%d entries, %d hits, %d misses, %d evictions (hit rate %.0f%%)\n",
			stats.Entries, stats.MaxSize, stats.Hits, stats.Misses, stats.Evictions,
			driver.Cache().HitRate()*100)
	}

	if len(report.Warnings) > 0 {
		return fmt.Errorf("build finished with warnings in %d file(s)", len(report.Warnings))
	}
	return nil
}
