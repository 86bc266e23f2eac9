package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 500, cfg.Tenant.DefaultStorageLimitMB)
	assert.Equal(t, 90, cfg.Tenant.DefaultExpiryDays)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  addr: ":9090"
tenant:
  default_storage_limit_mb: 1000
dns:
  base_domain: example.com
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	t.Setenv("PORTAL_CONFIG_FILE", path)
	t.Setenv("DEFAULT_STORAGE_LIMIT_MB", "250")
	t.Setenv("TOKEN_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	// File overrides default, env overrides file.
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 250, cfg.Tenant.DefaultStorageLimitMB)
	assert.Equal(t, "example.com", cfg.DNS.BaseDomain)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Setenv("PORTAL_CONFIG_FILE", "/nonexistent/config.yaml")
	_, err := Load()
	assert.Error(t, err)
}
