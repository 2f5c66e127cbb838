package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/conneroisu/sandcastle/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := version.Get()
	format, _ := cmd.Flags().GetString("format")

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case "text":
		fmt.Printf("sandcastle %s (%s, %s, %s)\n",
			info.Version, info.GitCommit, info.GoVersion, info.Platform)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", format)
	}
}
