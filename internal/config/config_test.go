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
logger:
  format: json
  level: debug
rpc:
  primary: https://primary.example
  fast: https://lite.example
  ws_overrides:
    https://primary.example: wss://primary-ws.example
price:
  ws_endpoint: wss://price.example
  reconnect_delay: 2s
http:
  addr: ":8080"
kafka:
  brokers: "k1:9092, k2:9092"
storage:
  use_memory: true
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "json", c.Logger.Format)
	assert.Equal(t, "https://lite.example", c.RPC.Fast)
	assert.Equal(t, "wss://primary-ws.example", c.RPC.WSOverrides["https://primary.example"])
	assert.Equal(t, 2*time.Second, c.Price.ReconnectDelay)
	assert.True(t, c.Storage.UseMemory)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.KafkaBrokers())
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("rpc:\n  primry: x\n"))
	assert.Error(t, err)
}

func TestParse_Empty(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, c.RPC.Primary)
}

func TestApplyDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()

	assert.Equal(t, DefaultHTTPAddr, c.HTTP.Addr)
	assert.Equal(t, DefaultRequestsPerMinute, c.HTTP.RequestsPerMinute)
	assert.Equal(t, DefaultKafkaWorkers, c.Kafka.Workers)
	assert.Equal(t, DefaultReconnectDelay, c.Price.ReconnectDelay)
	assert.Equal(t, DefaultMetricsAddr, c.MetricsAddr)
	assert.Nil(t, c.Kafka.KafkaBrokers())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvPrimaryRPC:  "https://triton.example",
		EnvPriceWS:     "wss://engine.example",
		EnvPostgresDSN: "postgres://u:p@db/engine",
		EnvRedisAddr:   "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	c := &Config{Redis: RedisConfig{Addr: "redis:6379"}}
	c.ApplyEnv(lookup)

	assert.Equal(t, "https://triton.example", c.RPC.Primary)
	assert.Equal(t, "wss://engine.example", c.Price.WSEndpoint)
	assert.Equal(t, "postgres://u:p@db/engine", c.Storage.PostgresDSN)
	assert.Equal(t, "redis:6379", c.Redis.Addr, "empty env value must not clear file value")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"missing primary", Config{Price: PriceConfig{WSEndpoint: "wss://p"}, Storage: StorageConfig{UseMemory: true}}, true},
		{"missing price ws", Config{RPC: RPCConfig{Primary: "https://r"}, Storage: StorageConfig{UseMemory: true}}, true},
		{"missing postgres", Config{RPC: RPCConfig{Primary: "https://r"}, Price: PriceConfig{WSEndpoint: "wss://p"}}, true},
		{"memory", Config{RPC: RPCConfig{Primary: "https://r"}, Price: PriceConfig{WSEndpoint: "wss://p"}, Storage: StorageConfig{UseMemory: true}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	t.Setenv(EnvFastRPC, "https://lite-override.example")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://lite-override.example", c.RPC.Fast)
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, DefaultBurst, c.HTTP.Burst)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
