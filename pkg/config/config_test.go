package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithMemoryDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", StoreMemory)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 4*time.Second, cfg.BannerDuration)
	assert.Equal(t, 7*24*time.Hour, cfg.NotificationTTL)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "courtside.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_port: \"9000\"\nstore_driver: memory\ngif_limit: 5\n"), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("BANNER_DURATION", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.ServerPort)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, 5, cfg.GifLimit)
	assert.Equal(t, 2*time.Second, cfg.BannerDuration)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := defaults()
	cfg.StoreDriver = "postgres"
	assert.Error(t, cfg.Validate())

	cfg = defaults()
	cfg.StoreDriver = StoreFirestore
	cfg.FirebaseProject = ""
	assert.Error(t, cfg.Validate())

	cfg = defaults()
	cfg.StoreDriver = StoreMemory
	cfg.RetentionCron = "every day"
	assert.Error(t, cfg.Validate())

	cfg = defaults()
	cfg.StoreDriver = StoreMemory
	cfg.BannerDuration = 0
	assert.Error(t, cfg.Validate())
}
