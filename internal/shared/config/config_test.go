package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URL", "RABBITMQ_URL", "PEDIDOS_QUEUE", "REDIS_URL",
		"PRODUTOS_CACHE_TTL", "CACHE_TIMEOUT_MS", "HTTP_PORT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultDatabaseURL, cfg.Database.URL)
	assert.Equal(t, DefaultRabbitMQURL, cfg.RabbitMQ.URL)
	assert.Equal(t, "pedidos", cfg.RabbitMQ.Queue)
	assert.Equal(t, DefaultRedisURL, cfg.Redis.URL)
	assert.Equal(t, 60*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, 200*time.Millisecond, cfg.Redis.Timeout)
	assert.Equal(t, DefaultHTTPPort, cfg.HTTP.Port)
	assert.True(t, cfg.CacheEnabled())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
# local overrides
database:
  url: "postgres://u:p@db:5432/buildflow"
rabbitmq:
  url: amqp://guest:guest@mq:5672/
  queue: pedidos-dev
redis:
  url: off
  ttl_seconds: 5
http:
  port: 9000
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("PRODUTOS_CACHE_TTL", "30")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/buildflow", cfg.Database.URL)
	assert.Equal(t, "pedidos-dev", cfg.RabbitMQ.Queue)
	assert.False(t, cfg.CacheEnabled())
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, 9100, cfg.HTTP.Port)
}

func TestLoad_ValidationJoinsProblems(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "mysql://x")
	t.Setenv("RABBITMQ_URL", "http://mq")
	t.Setenv("HTTP_PORT", "70000")

	_, err := Load("")
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "database.url")
	assert.Contains(t, msg, "rabbitmq.url")
	assert.Contains(t, msg, "http.port")
}

func TestLoad_BadEnvNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv("CACHE_TIMEOUT_MS", "soon")

	_, err := Load("")
	require.ErrorContains(t, err, "CACHE_TIMEOUT_MS")
}

func TestParseYAML_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown section": "kafka:\n  url: x\n",
		"duplicate":       "http:\n  port: 1\nhttp:\n  port: 2\n",
		"orphan key":      "  port: 1\n",
		"bad int":         "http:\n  port: abc\n",
		"unknown key":     "redis:\n  host: x\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var cfg Config
			assert.Error(t, parseYAML(strings.NewReader(body), &cfg))
		})
	}
}
