package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsFromEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
compute:
  use_gpu: true
storage:
  compression: lz4
  chunk_size: 4096
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Compute.UseGPU)
	assert.Equal(t, "lz4", cfg.Storage.Compression)
	assert.Equal(t, 4096, cfg.Storage.ChunkSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OPTIMED_GPU", "1")
	t.Setenv("OPTIMED_STORAGE_COMPRESSION", "none")
	cfg, err := Load(writeConfig(t, "storage:\n  compression: lz4\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Compute.UseGPU)
	assert.Equal(t, "none", cfg.Storage.Compression)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "storage:\n  compression: brotli\n"))
	assert.ErrorContains(t, err, "storage.compression")

	_, err = Load(writeConfig(t, "logging:\n  level: loud\n"))
	assert.ErrorContains(t, err, "logging.level")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	t.Setenv("OPTIMED_TEST_DIR", "/tmp/x")
	assert.Equal(t, "/tmp/x/log.txt", expandPath("$OPTIMED_TEST_DIR/log.txt"))
}
