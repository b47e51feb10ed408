package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "localhost:8080", cfg.Addr())
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "graphchart.yaml", `
server:
  port: 9090
  allowed_origins:
    - https://dss.example.com
backend:
  url: http://dss:11200/web-apps-backends/PROJ/abc
  timeout: 30s
webapp:
  descriptor: webapp.yaml
  debounce: 500ms
cache:
  kind: memory
  strategy: lfu
`)

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, []string{"https://dss.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "http://dss:11200/web-apps-backends/PROJ/abc", cfg.Backend.URL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "webapp.yaml", cfg.Webapp.Descriptor)
	assert.Equal(t, 500*time.Millisecond, cfg.Webapp.Debounce)
	assert.True(t, cfg.Webapp.Watch)
	assert.Equal(t, "memory", cfg.Cache.Kind)
	assert.Equal(t, 128, cfg.Cache.MaxEntries)

	gc := cfg.GraphCache()
	assert.Equal(t, "lfu", gc.Strategy.String())
	assert.Equal(t, 10*time.Minute, gc.MaxAge)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "graphchart.yaml", "backend:\n  url: http://from-file\n")
	t.Setenv("GRAPHCHART_BACKEND_URL", "http://from-env")
	t.Setenv("GRAPHCHART_SERVER_PORT", "7000")

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env", cfg.Backend.URL)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoad_ExplicitOverride(t *testing.T) {
	v := New()
	v.Set("server.port", 6000)

	t.Setenv("HOME", t.TempDir())
	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.Server.Port)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := writeFile(t, "graphchart.yaml", "server: [\n")
		_, err := Load(New(), path)
		assert.Error(t, err)
	})

	t.Run("bad cache kind", func(t *testing.T) {
		path := writeFile(t, "graphchart.yaml", "cache:\n  kind: memcached\n")
		_, err := Load(New(), path)
		assert.ErrorContains(t, err, "cache.kind")
	})

	t.Run("bad strategy", func(t *testing.T) {
		path := writeFile(t, "graphchart.yaml", "cache:\n  strategy: random\n")
		_, err := Load(New(), path)
		assert.ErrorContains(t, err, "cache.strategy")
	})

	t.Run("bad port", func(t *testing.T) {
		path := writeFile(t, "graphchart.yaml", "server:\n  port: 70000\n")
		_, err := Load(New(), path)
		assert.ErrorContains(t, err, "server.port")
	})
}
