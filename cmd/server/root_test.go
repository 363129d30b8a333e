package main

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	yaml := "database:\n  sqlite:\n    path: " + filepath.Join(dir, "notes.db") + "\n" +
		"blob:\n  driver: local\n  local:\n    root: " + filepath.Join(dir, "blobs") + "\n" +
		"auth:\n  jwtSecret: test-secret\n" +
		"log:\n  level: warn\n  output: " + filepath.Join(dir, "app.log") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	return dir
}

func TestMigrateCommand(t *testing.T) {
	dir := writeConfig(t)

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"migrate", "--config", dir})
	require.NoError(t, cmd.Execute())
	assert.FileExists(t, filepath.Join(dir, "notes.db"))
}

func TestReconcileCommandReportsOrphans(t *testing.T) {
	dir := writeConfig(t)
	orphan := filepath.Join(dir, "blobs", "owner-1", "stray.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(orphan), 0o750))
	require.NoError(t, os.WriteFile(orphan, []byte("stray"), 0o640))

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	// 宽限期为0，刚写入的文件也算孤儿
	t.Setenv("RECONCILE_GRACEPERIOD", "0s")
	cmd.SetArgs([]string{"reconcile", "--dry-run", "--config", dir})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "orphan owner-1/stray.md")
	assert.FileExists(t, orphan)
}

func TestGateRevokeRequiresPassword(t *testing.T) {
	dir := writeConfig(t)

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"gate", "revoke", "--config", dir})
	assert.Error(t, cmd.Execute())
}

func TestServeReturnsListenError(t *testing.T) {
	dir := writeConfig(t)
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	t.Setenv("SERVER_ADDRESS", busy.Addr().String())
	t.Setenv("SERVER_MODE", "test")

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"serve", "--config", dir})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
}
