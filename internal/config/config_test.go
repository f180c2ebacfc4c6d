package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 9090
postgres:
  dsn: ${TEST_QUOTES_DSN}
analytics:
  driver: kafka
  kafka:
    brokers: ["k1:9092", "k2:9092"]
smtp:
  host: smtp.example.com
  agent_recipients: ["agents@example.com"]
fanout:
  channel_timeout: 4s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quotes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileExpandsEnv(t *testing.T) {
	t.Setenv("TEST_QUOTES_DSN", "postgres://u:p@db/quotes")

	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres://u:p@db/quotes", cfg.Postgres.DSN)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Analytics.Kafka.Brokers)
	assert.Equal(t, 4*time.Second, cfg.Fanout.ChannelTimeout)
}

func TestLoadAppliesEnvOverridesAndDefaults(t *testing.T) {
	t.Setenv("TEST_QUOTES_DSN", "postgres://from-yaml")
	t.Setenv("CONFIG_PATH", writeConfig(t, sampleYAML))
	t.Setenv("PORT", "7000")
	t.Setenv("AGENT_EMAILS", "a@x.com, b@x.com")
	t.Setenv("CRM_LINK_WAIT", "500ms")
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.True(t, cfg.Server.TrustProxy)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, cfg.SMTP.AgentRecipients)
	assert.Equal(t, 500*time.Millisecond, cfg.Fanout.CRMLinkWait)
	assert.Equal(t, 4*time.Second, cfg.Fanout.ChannelTimeout)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "kafka", cfg.Analytics.Driver)
	assert.Equal(t, "quote-funnel-events", cfg.Analytics.Kafka.Topic)
}

func TestLoadWithoutFileUsesEnvironment(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DATABASE_URL", "postgres://env-only")
	t.Setenv("TRUST_PROXY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://env-only", cfg.Postgres.DSN)
	assert.Equal(t, "postgres", cfg.Analytics.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Server.TrustProxy)
	assert.Equal(t, 10*time.Second, cfg.Fanout.ChannelTimeout)
}

func TestLoadUncheckedSkipsValidation(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "9000")
	t.Setenv("TRACKER_SWEEP_EVERY", "5s")

	_, err := Load()
	require.Error(t, err)

	cfg, err := LoadUnchecked()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.Tracker.EndpointBase)
	assert.Equal(t, 5*time.Second, cfg.Tracker.SweepEvery)
	assert.Equal(t, 30*time.Minute, cfg.Tracker.IdleTimeout)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	assert.Error(t, cfg.Validate())

	cfg.Postgres.DSN = "postgres://x"
	assert.NoError(t, cfg.Validate())

	cfg.Analytics.Driver = "clickhouse"
	assert.Error(t, cfg.Validate())

	cfg.Analytics.Driver = "bigquery"
	assert.Error(t, cfg.Validate())
}
