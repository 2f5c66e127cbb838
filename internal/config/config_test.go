package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8787, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8, config.Build.ChunkSize)
	assert.Equal(t, "/", config.Build.Root)
	assert.Equal(t, 150, config.Cache.MaxEntries)
	assert.Equal(t, time.Hour, config.Cache.TTL)
	assert.Equal(t, []string{".git", "node_modules"}, config.Sync.Ignore)
	assert.Equal(t, "info", config.Log.Level)
}

func TestLoadOverrides(t *testing.T) {
	resetViper(t)
	viper.Set("server.port", 9000)
	viper.Set("cache.max_entries", 10)
	viper.Set("cache.ttl", "5m")
	viper.Set("compilers.scss_engine_url", "https://cdn.example.com/sass.wasm")

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, 10, config.Cache.MaxEntries)
	assert.Equal(t, 5*time.Minute, config.Cache.TTL)
	assert.Equal(t, "https://cdn.example.com/sass.wasm", config.Compilers.SCSSEngineURL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	resetViper(t)
	viper.Set("server.port", 70000)
	_, err := Load()
	assert.Error(t, err)

	resetViper(t)
	viper.Set("build.chunk_size", -2)
	_, err = Load()
	assert.Error(t, err)

	resetViper(t)
	viper.Set("cache.max_entries", -1)
	_, err = Load()
	assert.Error(t, err)
}
