package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "coldb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
app_name: test
storage:
  workdir: /tmp/coldb
  persistence: false
index:
  tree_degree: 8
log:
  level: debug
  format: json
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "test", cfg.AppName)
	require.Equal(t, "/tmp/coldb", cfg.Storage.Workdir)
	require.False(t, cfg.Storage.Persistence)
	require.Equal(t, 8, cfg.Index.TreeDegree)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Empty(t, cfg.Log.SeqURL)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "storage:\n  workdir: /from/file\n")
	t.Setenv("COLDB_STORAGE_WORKDIR", "/from/env")
	t.Setenv("COLDB_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/from/env", cfg.Storage.Workdir)
	require.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "index:\n  tree_degree: 1\n"))
	require.Error(t, err)
}
