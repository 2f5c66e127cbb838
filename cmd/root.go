// Package cmd provides the sandcastle command-line interface.
//
// Configuration loads from three sources with clear precedence:
//  1. Command-line flags (--port, --config, ...) — highest priority
//  2. Environment variables with the SANDCASTLE_ prefix
//     (SANDCASTLE_SERVER_PORT, SANDCASTLE_CACHE_MAX_ENTRIES, ...)
//  3. A configuration file, .sandcastle.yml by default
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sandcastle",
	Short: "A project runtime with a virtual filesystem, build cache, and live preview",
	Long: `Sandcastle runs browser-style projects locally: it mirrors sources into a
virtual filesystem, resolves npm lockfiles, compiles stylesheets through a
cached per-extension pipeline, and serves the result with live reload.

Quick Start:
  sandcastle serve            Start the preview server over the current directory
  sandcastle build            Compile the project once
  sandcastle deps list        Show the flat dependency set of a lockfile`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .sandcastle.yml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	mustBindFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// mustBindFlag panics on a nil or unbindable flag; both are programmer
// errors caught at startup.
func mustBindFlag(key string, flag *pflag.Flag) {
	if flag == nil {
		panic(fmt.Sprintf("flag for %s not defined", key))
	}
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envFile := os.Getenv("SANDCASTLE_CONFIG_FILE"); envFile != "" {
		viper.SetConfigFile(envFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".sandcastle")
		viper.SetConfigType("yml")
	}

	viper.SetEnvPrefix("SANDCASTLE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing config file is fine; flags and env cover everything.
	_ = viper.ReadInConfig()
}
