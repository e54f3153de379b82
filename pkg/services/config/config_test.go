package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_NoFile_UsesDefaults(t *testing.T) {
	// When
	cfg, err := LoadConfig("")

	// Then
	require.NoError(t, err)
	assert.Equal(t, DefaultBackendBaseURL, cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout())
	assert.Equal(t, 0, cfg.Backend.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout())
}

func TestLoadConfig_ValidYAML_PopulatesAllFields(t *testing.T) {
	// Given
	dir := t.TempDir()
	path := filepath.Join(dir, "autofixer.yaml")
	content := `backend:
  base_url: "http://backend:9000/api/v1"
  timeout_ms: 1500
  max_retries: 3
  retry_backoff_ms: 50
server:
  host: "0.0.0.0"
  port: "9090"`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	// When
	cfg, err := LoadConfig(path)

	// Then
	require.NoError(t, err)
	assert.Equal(t, "http://backend:9000/api/v1", cfg.Backend.BaseURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.Backend.Timeout())
	assert.Equal(t, 3, cfg.Backend.MaxRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.Backend.RetryBackoff())
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestLoadConfig_EnvOverridesDefaults(t *testing.T) {
	// Given
	t.Setenv("AUTOFIXER_BACKEND_BASE_URL", "http://env-backend/api/v1")
	t.Setenv("AUTOFIXER_BACKEND_MAX_RETRIES", "2")

	// When
	cfg, err := LoadConfig("")

	// Then
	require.NoError(t, err)
	assert.Equal(t, "http://env-backend/api/v1", cfg.Backend.BaseURL)
	assert.Equal(t, 2, cfg.Backend.MaxRetries)
}

func TestLoadConfig_InvalidYAML_ReturnsError(t *testing.T) {
	// Given
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: base_url: bad: yaml"), 0o644))

	// When
	_, err := LoadConfig(path)

	// Then
	assert.Error(t, err)
}

func TestLoadConfig_NonPositiveTimeout_ReturnsError(t *testing.T) {
	// Given
	dir := t.TempDir()
	path := filepath.Join(dir, "timeout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  timeout_ms: 0\n"), 0o644))

	// When
	_, err := LoadConfig(path)

	// Then
	assert.ErrorContains(t, err, "timeout_ms")
}

func TestRegistry_Profiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backends.ini")
	content := `[staging]
base_url = http://staging:8000/api/v1
timeout_ms = 15000
max_retries = 2

[local]
base_url = http://127.0.0.1:8000/api/v1

[broken]
timeout_ms = 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	registry, err := NewRegistry(path)
	require.NoError(t, err)
	ctx := context.Background()

	profiles, err := registry.GetProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"staging", "local", "broken"}, profiles)

	staging, err := registry.GetBackend(ctx, "staging")
	require.NoError(t, err)
	assert.Equal(t, BackendConfig{
		BaseURL:        "http://staging:8000/api/v1",
		TimeoutMs:      15000,
		MaxRetries:     2,
		RetryBackoffMs: DefaultRetryBackoffMs,
	}, *staging)

	local, err := registry.GetBackend(ctx, "local")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeoutMs, local.TimeoutMs)

	_, err = registry.GetBackend(ctx, "broken")
	assert.ErrorContains(t, err, "base_url is required")

	_, err = registry.GetBackend(ctx, "missing")
	assert.ErrorContains(t, err, "not found")
}

func TestApplyProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backends.ini")
	require.NoError(t, os.WriteFile(path, []byte("[prod]\nbase_url = http://prod/api/v1\nmax_retries = 1\n"), 0o644))

	registry, err := NewRegistry(path)
	require.NoError(t, err)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	require.NoError(t, ApplyProfile(context.Background(), cfg, registry, "prod"))
	assert.Equal(t, "http://prod/api/v1", cfg.Backend.BaseURL)
	assert.Equal(t, 1, cfg.Backend.MaxRetries)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	profiles := filepath.Join(dir, "backends.ini")
	require.NoError(t, os.WriteFile(profiles, []byte("[prod]\nbase_url = https://prod/api/v1\n"), 0o644))
	ctx := context.Background()

	t.Run("no profile keeps file values", func(t *testing.T) {
		cfg, err := Resolve(ctx, "", filepath.Join(dir, "missing.ini"), "")
		require.NoError(t, err)
		assert.Equal(t, DefaultBackendBaseURL, cfg.Backend.BaseURL)
	})

	t.Run("profile overrides backend", func(t *testing.T) {
		cfg, err := Resolve(ctx, "", profiles, "prod")
		require.NoError(t, err)
		assert.Equal(t, "https://prod/api/v1", cfg.Backend.BaseURL)
		assert.Equal(t, "8080", cfg.Server.Port)
	})

	t.Run("missing profiles file", func(t *testing.T) {
		_, err := Resolve(ctx, "", filepath.Join(dir, "missing.ini"), "prod")
		assert.ErrorContains(t, err, "failed to load profiles")
	})
}

func TestResolve_ProfileOverlaysOnlyItsOwnKeys(t *testing.T) {
	// Given
	t.Setenv("AUTOFIXER_BACKEND_MAX_RETRIES", "3")
	t.Setenv("AUTOFIXER_BACKEND_TIMEOUT_MS", "5000")
	t.Setenv("AUTOFIXER_BACKEND_RETRY_BACKOFF_MS", "50")

	dir := t.TempDir()
	profiles := filepath.Join(dir, "backends.ini")
	content := "[staging]\nbase_url = https://staging/api/v1\ntimeout_ms = 15000\n"
	require.NoError(t, os.WriteFile(profiles, []byte(content), 0o644))

	// When
	cfg, err := Resolve(context.Background(), "", profiles, "staging")

	// Then
	require.NoError(t, err)
	assert.Equal(t, "https://staging/api/v1", cfg.Backend.BaseURL)
	assert.Equal(t, 15000, cfg.Backend.TimeoutMs, "keys set by the profile win")
	assert.Equal(t, 3, cfg.Backend.MaxRetries, "env values survive for keys the profile leaves out")
	assert.Equal(t, 50, cfg.Backend.RetryBackoffMs)
}
