package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 1024, cfg.MaxStorageMB)
	assert.Equal(t, 10*time.Second, cfg.ImageValidationTimeout)
	assert.True(t, cfg.ImageRequireHTTPS)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GOFR_DOC_DATA_DIR", "/srv/gofr")
	t.Setenv("GOFR_DOC_MAX_STORAGE_MB", "256")
	t.Setenv("GOFR_DOC_HOUSEKEEPING_INTERVAL_MINS", "15")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/srv/gofr", cfg.DataDir)
	assert.Equal(t, 256, cfg.MaxStorageMB)
	assert.Equal(t, 15*time.Minute, cfg.HousekeepingInterval)
}

func TestLoad_FileThenEnv(t *testing.T) {
	t.Setenv("GOFR_DOC_PORT", "9100")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 8080\nhost: 10.0.0.1\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Environment wins over the file; untouched file keys still apply.
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "10.0.0.1", cfg.Host)
}

func TestLoad_RejectsBadPort(t *testing.T) {
	t.Setenv("GOFR_DOC_PORT", "-1")
	_, err := Load("")
	require.Error(t, err)
}

func TestMaxStorageBytes(t *testing.T) {
	t.Parallel()

	cfg := &Config{MaxStorageMB: 2}
	assert.Equal(t, int64(2*1024*1024), cfg.MaxStorageBytes())
}
