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
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.KV.Driver)
	assert.Equal(t, "background", cfg.Dispatch.Mode)
	assert.True(t, cfg.Dispatch.Background())
	assert.Equal(t, 30*time.Second, cfg.Providers.HTTPTimeout)
	assert.Equal(t, int64(256*1024), cfg.Server.MaxBodyBytes)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9000
kv:
  driver: memory
dispatch:
  mode: sync
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("KV_DRIVER", "redis")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.KV.Driver)
	assert.False(t, cfg.Dispatch.Background())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_RejectsUnknownDispatchMode(t *testing.T) {
	for _, mode := range []string{"Sync", "async", "backgroud"} {
		t.Run(mode, func(t *testing.T) {
			t.Setenv("DISPATCH_MODE", mode)
			_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "dispatch.mode")
		})
	}
}
