package startup

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/SlpAus/space-notes-backend/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", Sqlite: config.SqliteConfig{Path: filepath.Join(dir, "notes.db")}},
		Blob:     config.BlobConfig{Driver: "local", Local: config.LocalBlobConfig{Root: filepath.Join(dir, "blobs")}},
		Auth:     config.AuthConfig{JWTSecret: "secret", TokenTTL: time.Hour},
		Gate:     config.GateConfig{TTL: time.Hour},
		Notes:    config.NotesConfig{MaxContentBytes: 1024, CompensateCreate: true, ListConcurrency: 2},
		Reconcile: config.ReconcileConfig{
			Enabled:     true,
			GracePeriod: time.Minute,
		},
	}
}

func TestInitializeApplicationWithoutGate(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	app, err := InitializeApplication(ctx, cfg, io.Discard)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	assert.Nil(t, app.RDB)
	assert.False(t, app.Gate.Enabled())
	require.NotNil(t, app.Sweeper)

	n, err := app.Notes.Create(ctx, "owner-1", "Hello", []byte("world"))
	require.NoError(t, err)
	got, err := app.Notes.Read(ctx, n.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "world", string(got.Content))

	report, err := app.Sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Empty(t, report.Orphans)
}

func TestInitializeApplicationRejectsUnknownBlobDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Blob.Driver = "ftp"

	_, err := InitializeApplication(context.Background(), cfg, io.Discard)
	assert.Error(t, err)
}

func TestCloseDB(t *testing.T) {
	cfg := testConfig(t)

	db, _, err := OpenStores(context.Background(), cfg, io.Discard)
	require.NoError(t, err)
	require.NoError(t, CloseDB(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping())
}
