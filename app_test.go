package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfdesk/pkg/config"
	"pdfdesk/pkg/kvstore"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	return &config.Config{
		DataPath:   t.TempDir(),
		Storage:    config.StorageConfig{Backend: backend},
		ListenAddr: "127.0.0.1:0",
		LogLevel:   "error",
	}
}

func TestAppSessionSurvivesRestart(t *testing.T) {
	cfg := testConfig(t, kvstore.BackendSQLite)

	first := NewApp(cfg)
	require.NoError(t, first.Startup(context.Background()))
	srv := httptest.NewServer(first.Handler())

	resp, err := http.Post(srv.URL+"/api/admin/pin", "application/json", strings.NewReader(`{"pin":"1989"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	srv.Close()
	first.Shutdown()

	second := NewApp(cfg)
	require.NoError(t, second.Startup(context.Background()))
	defer second.Shutdown()
	assert.True(t, second.session.IsAuthenticated())

	srv = httptest.NewServer(second.Handler())
	defer srv.Close()
	resp, err = http.Get(srv.URL + "/api/admin/documents")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAppServeStopsOnCancel(t *testing.T) {
	app := NewApp(testConfig(t, kvstore.BackendMemory))
	require.NoError(t, app.Startup(context.Background()))
	defer app.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.Execute()
	return out.String(), err
}

func TestCLIPINStatusLogout(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	common := []string{"--data_path", dir, "--storage.backend", "sqlite", "--log_level", "error"}

	out, err := runCLI(t, "0000\n", append([]string{"pin"}, common...)...)
	assert.Error(t, err)
	assert.Contains(t, out, "Invalid PIN")

	out, err = runCLI(t, "1989\n", append([]string{"pin"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "logged in since")

	out, err = runCLI(t, "", append([]string{"status"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "logged in since")

	out, err = runCLI(t, "", append([]string{"logout"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "logged out")

	out, err = runCLI(t, "", append([]string{"status"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Admin session: logged out")
}
