package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mock.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMockConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  dispatchAddr: ":9090"
  pathPrefix: /mock
storage:
  type: mysql
database:
  host: db.local
  port: 3307
  username: mock
  database: mocks
redis:
  enabled: true
  host: cache.local
  ttl: 30m
remote:
  attempts: 5
  delay: 1s
`)
	cfg, err := LoadMockConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerConfig.DispatchAddr)
	assert.Equal(t, "/mock", cfg.ServerConfig.PathPrefix)
	assert.Equal(t, "http://127.0.0.1:8081", cfg.ServerConfig.PublicBaseURL, "unset keys keep defaults")
	assert.Equal(t, StorageMySQL, cfg.StorageConfig.Type)
	assert.Equal(t, "cache.local:6379", cfg.RedisConfig.Addr())
	assert.Equal(t, 30*time.Minute, cfg.RedisConfig.TTL)
	assert.Equal(t, 5, cfg.RemoteConfig.Attempts)
	assert.Equal(t, time.Second, cfg.RemoteConfig.Delay)
	assert.Contains(t, cfg.DatabaseConfig.GetDSN(), "mock:@tcp(db.local:3307)/mocks?")
	assert.Contains(t, cfg.DatabaseConfig.GetDSN(), "parseTime=True")
}

func TestLoadMockConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad storage", "storage:\n  type: mongo\n", "storage type"},
		{"mysql without db", "storage:\n  type: mysql\n", "database username is required"},
		{"bad prefix", "server:\n  pathPrefix: mock\n", "pathPrefix"},
		{"bad pool", "callback:\n  poolSize: -1\n", "callback poolSize"},
		{"broken yaml", "server: [", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMockConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMockConfigMissingFile(t *testing.T) {
	_, err := LoadMockConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err, "an explicit path must exist")

	t.Setenv("MOCK_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := LoadMockConfig("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("MOCK_CONFIG_PATH", "")
	t.Setenv("MOCK_ENV", "")
	assert.Equal(t, "mock.local.yaml", getConfigPath())

	t.Setenv("MOCK_ENV", "prod")
	assert.Equal(t, "mock.prod.yaml", getConfigPath())

	t.Setenv("MOCK_CONFIG_PATH", "/etc/mock.yaml")
	assert.Equal(t, "/etc/mock.yaml", getConfigPath())
}

func TestDatabaseLogLevel(t *testing.T) {
	assert.Equal(t, "warn", (&DatabaseOptionConfig{}).NormalizedLogLevel())
	assert.Equal(t, "info", (&DatabaseOptionConfig{LogLevel: "INFO"}).NormalizedLogLevel())
}
