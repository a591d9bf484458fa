package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chirp-social/chirp/internal/app"
)

func TestBootstrapRuntimeWiresStack(t *testing.T) {
	cfg, err := app.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Database.Path = filepath.Join(t.TempDir(), "chirp.sqlite")

	_, err = app.ApplyRuntimeDefaults(cfg)
	require.NoError(t, err)

	log := zap.NewNop()
	stack, err := bootstrapRuntime(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { stack.Shutdown(context.Background(), log) })

	require.NotNil(t, stack.DB)
	require.NotNil(t, stack.Auth)
	require.NotNil(t, stack.Hub)
	require.NotNil(t, stack.RateStore)
	require.NotNil(t, stack.Router)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	stack.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoadApplicationConfigRejectsMissingPath(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

func TestLoadApplicationConfigAcceptsFileAndDirectory(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadApplicationConfig(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o600))

	cfg, err = loadApplicationConfig(path)
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Server.Port)
}
