package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name     string        `yaml:"name" env:"APP_NAME"`
	Port     int           `yaml:"port" env:"APP_PORT"`
	Debug    bool          `yaml:"debug" env:"APP_DEBUG"`
	Timeout  time.Duration `yaml:"timeout" env:"APP_TIMEOUT"`
	Keywords []string      `yaml:"keywords" env:"APP_KEYWORDS"`
	Database struct {
		DSN string `yaml:"dsn" env:"DATABASE_URL"`
	} `yaml:"database"`
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_DSN", "file:news.db")
	path := writeFile(t, `
name: test-app
port: 8080
timeout: 90s
keywords: [a, b]
database:
  dsn: ${TEST_DSN}
`)

	var cfg testConfig
	require.NoError(t, Load(path, &cfg))
	assert.Equal(t, "test-app", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"a", "b"}, cfg.Keywords)
	assert.Equal(t, "file:news.db", cfg.Database.DSN)
}

func TestEnvOverride(t *testing.T) {
	path := writeFile(t, "name: default\nport: 3000\n")
	t.Setenv("APP_NAME", "from-env")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_DEBUG", "true")
	t.Setenv("APP_TIMEOUT", "2m")
	t.Setenv("APP_KEYWORDS", "breaking, live ,,alert")
	t.Setenv("DATABASE_URL", "postgres://x")

	var cfg testConfig
	require.NoError(t, Load(path, &cfg))
	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, []string{"breaking", "live", "alert"}, cfg.Keywords)
	assert.Equal(t, "postgres://x", cfg.Database.DSN)
}

func TestEnvOverrideInvalid(t *testing.T) {
	t.Setenv("APP_TIMEOUT", "soon")
	var cfg testConfig
	err := ApplyEnv(&cfg)
	assert.ErrorContains(t, err, "APP_TIMEOUT")
}

func TestLoadOrDefault(t *testing.T) {
	cfg := testConfig{Name: "kept", Port: 1}
	t.Setenv("APP_PORT", "2")

	require.NoError(t, LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"), &cfg))
	assert.Equal(t, "kept", cfg.Name)
	assert.Equal(t, 2, cfg.Port)

	bad := writeFile(t, "port: [unclosed")
	assert.Error(t, LoadOrDefault(bad, &cfg))
}
