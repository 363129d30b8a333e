package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("AUTH_JWTSECRET", "test-secret")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "local", cfg.Blob.Driver)
	assert.Equal(t, 1<<20, cfg.Notes.MaxContentBytes)
	assert.True(t, cfg.Notes.CompensateCreate)
	assert.False(t, cfg.Reconcile.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Reconcile.GracePeriod)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  address: ":9000"
auth:
  jwtSecret: from-file
gate:
  password: pk2space
blob:
  driver: memory
reconcile:
  enabled: true
  gracePeriod: 1m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "pk2space", cfg.Gate.Password)
	assert.Equal(t, "memory", cfg.Blob.Driver)
	assert.True(t, cfg.Reconcile.Enabled)
	assert.Equal(t, time.Minute, cfg.Reconcile.GracePeriod)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("AUTH_JWTSECRET", "test-secret")
	t.Setenv("SERVER_MODE", "debug")
	t.Setenv("BLOB_DRIVER", "s3")
	t.Setenv("BLOB_S3_BUCKET", "notes-bucket")
	t.Setenv("BLOB_S3_ENDPOINT", "http://127.0.0.1:9000")
	t.Setenv("BLOB_S3_USEPATHSTYLE", "true")
	t.Setenv("LOG_OUTPUT", "/var/log/space-notes.log")
	t.Setenv("RECONCILE_DRYRUN", "true")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "s3", cfg.Blob.Driver)
	assert.Equal(t, "notes-bucket", cfg.Blob.S3.Bucket)
	assert.Equal(t, "http://127.0.0.1:9000", cfg.Blob.S3.Endpoint)
	assert.True(t, cfg.Blob.S3.UsePathStyle)
	assert.Equal(t, "/var/log/space-notes.log", cfg.Log.Output)
	assert.True(t, cfg.Reconcile.DryRun)
}
