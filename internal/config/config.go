// Package config loads the engine configuration from YAML and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"solana-tx-engine/internal/logger"
)

// Environment variables that override file values.
const (
	EnvPrimaryRPC    = "TRITON_PRO_RPC"
	EnvFastRPC       = "LITE_RPC_URL"
	EnvPriceWS       = "PRICE_ENGINE_WS"
	EnvQuoteAPI      = "TRITON_JUP_API"
	EnvPriceAPI      = "JUP_PRICE_API"
	EnvPostgresDSN   = "POSTGRES_DSN"
	EnvClickhouseDSN = "CLICKHOUSE_DSN"
	EnvRedisAddr     = "REDIS_ADDR"
	EnvKafkaBrokers  = "KAFKA_BROKERS"
)

// Defaults.
const (
	DefaultHTTPAddr          = ":3000"
	DefaultMetricsAddr       = ":9090"
	DefaultRequestsPerMinute = 600
	DefaultBurst             = 50
	DefaultKafkaGroupID      = "solana-tx-engine"
	DefaultKafkaTopic        = "transactions"
	DefaultKafkaWorkers      = 8
	DefaultReconnectDelay    = time.Second
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// LogConfig configures the logger.
type LogConfig struct {
	Format   string `yaml:"format"`   // console or json
	LogDir   string `yaml:"log_dir"`  // rotate files here when set
	Level    string `yaml:"level"`    // debug / info / warn / error
	Compress bool   `yaml:"compress"` // compress rotated files
}

// ToLogOption converts to logger options.
func (c *LogConfig) ToLogOption() logger.Option {
	return logger.Option{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// RPCConfig holds the JSON-RPC endpoints.
type RPCConfig struct {
	Primary string `yaml:"primary"` // simulation, blockhash, settled records
	Fast    string `yaml:"fast"`    // optional send and confirm path

	// WSOverrides maps an HTTP endpoint to an explicit WebSocket endpoint.
	WSOverrides map[string]string `yaml:"ws_overrides"`
}

// PriceConfig configures the live price stream.
type PriceConfig struct {
	WSEndpoint     string        `yaml:"ws_endpoint"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

// JupiterConfig holds the quote and price API endpoints.
type JupiterConfig struct {
	QuoteAPI string `yaml:"quote_api"`
	PriceAPI string `yaml:"price_api"`
}

// HTTPConfig configures the HTTP front-end.
type HTTPConfig struct {
	Addr              string `yaml:"addr"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	Burst             int    `yaml:"burst"`
}

// KafkaConfig configures the Kafka consumer. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers string `yaml:"brokers"` // comma separated
	GroupID string `yaml:"group_id"`
	Topic   string `yaml:"topic"`
	Workers int    `yaml:"workers"`
}

// StorageConfig selects the metrics stores.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"` // optional analytics mirror
	UseMemory     bool   `yaml:"use_memory"`
}

// RedisConfig configures the shared decimals cache. Empty Addr disables it.
type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the root configuration of the engine.
type Config struct {
	Logger      LogConfig     `yaml:"logger"`
	RPC         RPCConfig     `yaml:"rpc"`
	Price       PriceConfig   `yaml:"price"`
	Jupiter     JupiterConfig `yaml:"jupiter"`
	HTTP        HTTPConfig    `yaml:"http"`
	Kafka       KafkaConfig   `yaml:"kafka"`
	Storage     StorageConfig `yaml:"storage"`
	Redis       RedisConfig   `yaml:"redis"`
	MetricsAddr string        `yaml:"metrics_addr"`
}

// Load reads .env (if present), the YAML file at path, applies environment
// overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	// Existing environment variables win over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	c.ApplyEnv(os.LookupEnv)
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse decodes YAML. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &c, nil
}

// ApplyEnv overrides endpoints and secrets from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.RPC.Primary, EnvPrimaryRPC)
	set(&c.RPC.Fast, EnvFastRPC)
	set(&c.Price.WSEndpoint, EnvPriceWS)
	set(&c.Jupiter.QuoteAPI, EnvQuoteAPI)
	set(&c.Jupiter.PriceAPI, EnvPriceAPI)
	set(&c.Storage.PostgresDSN, EnvPostgresDSN)
	set(&c.Storage.ClickhouseDSN, EnvClickhouseDSN)
	set(&c.Redis.Addr, EnvRedisAddr)
	set(&c.Kafka.Brokers, EnvKafkaBrokers)
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
	if c.HTTP.RequestsPerMinute <= 0 {
		c.HTTP.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if c.HTTP.Burst <= 0 {
		c.HTTP.Burst = DefaultBurst
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = DefaultKafkaGroupID
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = DefaultKafkaTopic
	}
	if c.Kafka.Workers <= 0 {
		c.Kafka.Workers = DefaultKafkaWorkers
	}
	if c.Price.ReconnectDelay <= 0 {
		c.Price.ReconnectDelay = DefaultReconnectDelay
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = DefaultMetricsAddr
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.RPC.Primary == "" {
		return fmt.Errorf("%w: rpc.primary (or %s) is required", ErrInvalidConfig, EnvPrimaryRPC)
	}
	if c.Price.WSEndpoint == "" {
		return fmt.Errorf("%w: price.ws_endpoint (or %s) is required", ErrInvalidConfig, EnvPriceWS)
	}
	if !c.Storage.UseMemory && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("%w: storage.postgres_dsn is required unless storage.use_memory is set", ErrInvalidConfig)
	}
	return nil
}

// KafkaBrokers returns the broker list, nil when Kafka is disabled.
func (c *KafkaConfig) KafkaBrokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
