package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfdesk/pkg/errors"
	"pdfdesk/pkg/kvstore"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, kvstore.BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.Quotes.Timeout)
	assert.Equal(t, 2, cfg.Quotes.Retries)
	assert.Empty(t, cfg.File)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_path: /srv/pdfdesk
storage:
  backend: sqlite
listen_addr: 0.0.0.0:9000
quotes:
  timeout: 3s
  retries: 5
`), 0644))

	t.Setenv("PDFDESK_LOG_LEVEL", "debug")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen_addr", "", "")
	require.NoError(t, flags.Parse([]string{"--listen_addr", "127.0.0.1:7000"}))

	cfg, err := Load(flags, path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "/srv/pdfdesk", cfg.DataPath)
	assert.Equal(t, kvstore.BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:7000", cfg.ListenAddr)
	assert.Equal(t, 3*time.Second, cfg.Quotes.Timeout)
	assert.Equal(t, 5, cfg.Quotes.Retries)
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pdfdesk.yaml"),
		[]byte("storage:\n  backend: memory\n"), 0644))

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, kvstore.BackendMemory, cfg.Storage.Backend)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	dir := isolate(t)

	_, err := Load(nil, filepath.Join(dir, "nope.yaml"))
	require.Error(t, err)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrConfigLoadFailed.Code, appErr.Code)
}

func TestValidate(t *testing.T) {
	cfg := &Config{DataPath: "/tmp/x", Storage: StorageConfig{Backend: "redis"}, LogLevel: "info"}
	assert.Error(t, cfg.Validate())

	cfg.Storage.Backend = kvstore.BackendSQLite
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())

	cfg.LogLevel = "warn"
	cfg.Quotes.Retries = -1
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0, cfg.Quotes.Retries)
}

func TestSaveThenLoad(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "pdfdesk.yaml")

	cfg := &Config{
		DataPath:   filepath.Join(dir, "data"),
		Storage:    StorageConfig{Backend: kvstore.BackendSQLite},
		ListenAddr: ":8081",
		LogLevel:   "error",
		Quotes:     QuotesConfig{Timeout: 4 * time.Second, Retries: 1},
		StaticDir:  "web",
	}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, cfg.DataPath, loaded.DataPath)
	assert.Equal(t, cfg.Storage, loaded.Storage)
	assert.Equal(t, cfg.ListenAddr, loaded.ListenAddr)
	assert.Equal(t, cfg.Quotes, loaded.Quotes)
	assert.Equal(t, "web", loaded.StaticDir)

	require.NoError(t, loaded.EnsureDirs())
	assert.DirExists(t, cfg.DataPath)
}
