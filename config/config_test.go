package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "America/New_York", cfg.Providers.TimeZone)
	assert.Equal(t, "gemini/gemini-2.5-flash", cfg.Models.DefaultModel)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
server:
  addr: ":9090"
  read_timeout: 5s
store:
  backend: redis
  redis_addr: localhost:6379
logger:
  backend: zap
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	t.Setenv("AGENTFACTORY_SERVER_AUTH_TOKEN", "tok")
	t.Setenv("AGENTFACTORY_SMTP_PORT", "2525")
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "tok", cfg.Server.AuthToken)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "zap", cfg.Logger.Backend)
	assert.Equal(t, 2525, cfg.Providers.SMTP.Port)
	assert.Equal(t, "g-key", cfg.Models.GeminiAPIKey)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Server.Addr, cfg.Server.Addr)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Backend = "redis"

	err := cfg.Validate()
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "store.redis_addr", vErr.Field)

	cfg = Defaults()
	cfg.Providers.TimeZone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
}
