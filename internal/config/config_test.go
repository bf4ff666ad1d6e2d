package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	dir := writeConfig(t, `
server:
  mode: debug
database:
  driver: postgres
  conn_max_lifetime_minutes: 30
jwt:
  secret: test-secret
  expire_hours: 2
storage:
  type: minio
cors:
  allowed_origins:
    - http://localhost:3000
    - https://split.example.com
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "session", cfg.JWT.CookieName)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 600, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 10, cfg.Upload.MaxReceiptMB)
	assert.Equal(t, []string{"http://localhost:3000", "https://split.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, dir, cfg.ConfigDir)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("SERVER_PORT", "9090")
	dir := writeConfig(t, "jwt:\n  secret: from-file\nstorage:\n  type: oss\n")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig(writeConfig(t, "storage:\n  type: oss\n"))
	assert.ErrorContains(t, err, "jwt secret")

	_, err = LoadConfig(writeConfig(t, "server:\n  mode: release\njwt:\n  secret: short\nstorage:\n  type: oss\n"))
	assert.ErrorContains(t, err, "too short")

	_, err = LoadConfig(writeConfig(t, "database:\n  driver: sqlite\njwt:\n  secret: x\nstorage:\n  type: oss\n"))
	assert.ErrorContains(t, err, "unsupported database driver")

	_, err = LoadConfig(t.TempDir())
	assert.Error(t, err)
}
