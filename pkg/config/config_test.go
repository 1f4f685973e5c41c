package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsMatchUpstreamCadence(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, 15*time.Second, c.Upstream.PullInterval)
	assert.Equal(t, 10*time.Second, c.Upstream.Reconnect.Delay)
	assert.False(t, c.Upstream.Reconnect.Backoff.Enabled)
	assert.Equal(t, 500, c.Store.Capacity)
	assert.Equal(t, 120, c.Upstream.BootstrapLimit)
	assert.Equal(t, 5, c.View.TopModels)
	assert.Equal(t, 20, c.View.TrendWindow)
	assert.True(t, c.Metrics.Enabled)
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: staging
metrics:
  enabled: false
upstream:
  push_url: wss://signals.example.com/ws
  pull_url: https://signals.example.com/signals
  pull_interval: 5s
  reconnect:
    backoff:
      enabled: true
store:
  capacity: 200
`))
	require.NoError(t, err)
	assert.Equal(t, "staging", c.Environment)
	assert.False(t, c.Metrics.Enabled)
	assert.Equal(t, 5*time.Second, c.Upstream.PullInterval)
	assert.Equal(t, 10*time.Second, c.Upstream.Reconnect.Delay)
	assert.True(t, c.Upstream.Reconnect.Backoff.Enabled)
	assert.Equal(t, 2*time.Minute, c.Upstream.Reconnect.Backoff.MaxDelay)
	assert.Equal(t, 200, c.Store.Capacity)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"http push url":   "upstream:\n  push_url: http://x/ws\n",
		"ws pull url":     "upstream:\n  pull_url: ws://x/signals\n",
		"zero capacity":   "store:\n  capacity: 0\n",
		"kafka no broker": "sinks:\n  kafka:\n    enabled: true\n",
		"collector alone": "log:\n  collector:\n    enabled: true\n",
		"mirror backend":  "sinks:\n  redis:\n    enabled: true\n    backend: etcd\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	env := map[string]string{
		"SIGMA_PUSH_URL":        "ws://edge:9000/ws",
		"KAFKA_BROKERS":         "k1:9092,k2:9092",
		"SIGMA_STORE_CAPACITY":  "64",
		"SIGMA_RATE_PER_SECOND": "2.5",
	}
	c.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "ws://edge:9000/ws", c.Upstream.PushURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Sinks.Kafka.Brokers)
	assert.Equal(t, 64, c.Store.Capacity)
	assert.InDelta(t, 2.5, c.Server.RateLimit.PerSecond, 1e-9)
}
