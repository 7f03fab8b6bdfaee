package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylarkml/skylark/pkg/skyerrors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "skylark", cfg.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Online.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Online.Addr)
	assert.Equal(t, "snappy", cfg.Offline.Compression)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("empty path loads defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default().Server.Port, cfg.Server.Port)
	})

	t.Run("yaml file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "skylark.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
name: orders-store
server:
  port: 9090
online:
  enabled: false
offline:
  root_path: /var/lib/skylark
  compression: zstd
  request_timeout: 45s
logging:
  level: debug
`), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "orders-store", cfg.Name)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.False(t, cfg.Online.Enabled)
		assert.Equal(t, "/var/lib/skylark", cfg.Offline.RootPath)
		assert.Equal(t, "zstd", cfg.Offline.Compression)
		assert.Equal(t, 45*time.Second, cfg.Offline.RequestTimeout)
		assert.Equal(t, "debug", cfg.Logging.Level)
		// untouched keys keep their defaults
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("SKYLARK_SERVER_PORT", "7070")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 7070, cfg.Server.Port)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.True(t, skyerrors.IsType(err, skyerrors.ErrorTypeConfig))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "online enabled without addr",
			mutate:  func(c *Config) { c.Online.Addr = "" },
			wantErr: "no addr configured",
		},
		{
			name:    "empty offline root",
			mutate:  func(c *Config) { c.Offline.RootPath = "" },
			wantErr: "root_path must not be empty",
		},
		{
			name:    "unsupported compression",
			mutate:  func(c *Config) { c.Offline.Compression = "lz77" },
			wantErr: "unsupported parquet compression",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, skyerrors.IsType(err, skyerrors.ErrorTypeConfig))
		})
	}

	t.Run("zero timeouts filled with defaults", func(t *testing.T) {
		cfg := Default()
		cfg.Online.RequestTimeout = 0
		cfg.Offline.RequestTimeout = 0
		require.NoError(t, cfg.Validate())
		assert.Equal(t, 2*time.Second, cfg.Online.RequestTimeout)
		assert.Equal(t, 30*time.Second, cfg.Offline.RequestTimeout)
	})
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")

	cfg := Default()
	cfg.Name = "roundtrip"
	cfg.Server.Port = 8181
	cfg.Online.Enabled = false
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip", loaded.Name)
	assert.Equal(t, 8181, loaded.Server.Port)
	assert.False(t, loaded.Online.Enabled)
}
