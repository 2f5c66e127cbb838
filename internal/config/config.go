// Package config provides configuration management for the sandcastle
// runtime using Viper for flexible loading from files, environment
// variables, and command-line flags.
//
// The configuration system supports YAML files and environment variable
// overrides with the SANDCASTLE_ prefix. It manages the preview server, the
// build pipeline, cache policy, compiler engines, and directory sync.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Build     BuildConfig     `yaml:"build"`
	Cache     CacheConfig     `yaml:"cache"`
	Compilers CompilersConfig `yaml:"compilers"`
	Sync      SyncConfig      `yaml:"sync"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type BuildConfig struct {
	ChunkSize int    `yaml:"chunk_size"`
	Root      string `yaml:"root"`
}

type CacheConfig struct {
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

type CompilersConfig struct {
	SCSSEngineURL string `yaml:"scss_engine_url"`
	SassBinary    string `yaml:"sass_binary"`
}

type SyncConfig struct {
	Dir      string        `yaml:"dir"`
	Debounce time.Duration `yaml:"debounce"`
	Ignore   []string      `yaml:"ignore"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load unmarshals the active viper state into a validated Config, filling
// defaults for anything unset.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Server.Port == 0 {
		config.Server.Port = 8787
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.Build.ChunkSize == 0 {
		config.Build.ChunkSize = 8
	}
	if config.Build.Root == "" {
		config.Build.Root = "/"
	}
	if config.Cache.MaxEntries == 0 {
		config.Cache.MaxEntries = 150
	}
	if config.Cache.TTL == 0 {
		config.Cache.TTL = time.Hour
	}
	if config.Compilers.SassBinary == "" {
		config.Compilers.SassBinary = "sass"
	}
	if config.Sync.Debounce == 0 {
		config.Sync.Debounce = 100 * time.Millisecond
	}
	if len(config.Sync.Ignore) == 0 {
		config.Sync.Ignore = []string{".git", "node_modules"}
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func validate(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", config.Server.Port)
	}
	if config.Build.ChunkSize < 1 {
		return fmt.Errorf("build chunk_size must be positive, got %d", config.Build.ChunkSize)
	}
	if config.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache max_entries must be positive, got %d", config.Cache.MaxEntries)
	}
	if config.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative, got %s", config.Cache.TTL)
	}
	return nil
}
