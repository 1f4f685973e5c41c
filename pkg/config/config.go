package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"SigmaSync/pkg/util"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level     string `yaml:"level" default:"info"`
		Format    string `yaml:"format" default:"console"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled   bool          `yaml:"enabled"`
			Interval  time.Duration `yaml:"interval" default:"30s"`
			Threshold int           `yaml:"threshold" default:"100"`
			Topic     string        `yaml:"topic" default:"sigmasync.logs"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       struct {
			Burst     float64 `yaml:"burst" default:"20"`
			PerSecond float64 `yaml:"per_second" default:"10"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"metrics"`
	Upstream struct {
		PushURL        string        `yaml:"push_url" default:"ws://localhost:8000/ws"`
		PullURL        string        `yaml:"pull_url" default:"http://localhost:8000/signals"`
		PullInterval   time.Duration `yaml:"pull_interval" default:"15s"`
		PullLimit      int           `yaml:"pull_limit" default:"1"`
		BootstrapLimit int           `yaml:"bootstrap_limit" default:"120"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		Reconnect      struct {
			Delay   time.Duration `yaml:"delay" default:"10s"`
			Backoff struct {
				Enabled    bool          `yaml:"enabled"`
				Multiplier float64       `yaml:"multiplier" default:"2"`
				MaxDelay   time.Duration `yaml:"max_delay" default:"2m"`
			} `yaml:"backoff"`
		} `yaml:"reconnect"`
	} `yaml:"upstream"`
	Store struct {
		Capacity int `yaml:"capacity" default:"500"`
	} `yaml:"store"`
	View struct {
		TopModels   int `yaml:"top_models" default:"5"`
		TrendWindow int `yaml:"trend_window" default:"20"`
	} `yaml:"view"`
	Sinks struct {
		BufferSize int `yaml:"buffer_size" default:"1024"`
		Kafka      struct {
			Enabled      bool     `yaml:"enabled"`
			Brokers      []string `yaml:"brokers"`
			Topic        string   `yaml:"topic" default:"sigmasync.snapshots"`
			RequiredAcks int      `yaml:"required_acks" default:"-1"`
			Compression  string   `yaml:"compression" default:"gzip"`
			Producer     struct {
				MaxAttempts  int           `yaml:"max_attempts" default:"3"`
				Linger       time.Duration `yaml:"linger" default:"100ms"`
				BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
				BatchSize    int           `yaml:"batch_size" default:"100"`
				WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
				ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
				Async        bool          `yaml:"async"`
			} `yaml:"producer"`
		} `yaml:"kafka"`
		ClickHouse struct {
			Enabled          bool          `yaml:"enabled"`
			Host             string        `yaml:"host" default:"localhost"`
			Port             int           `yaml:"port" default:"9000"`
			Database         string        `yaml:"database" default:"sigmasync"`
			Table            string        `yaml:"table" default:"snapshots"`
			User             string        `yaml:"user" default:"default"`
			Password         string        `yaml:"password"`
			UseHTTP          bool          `yaml:"use_http"`
			AsyncInsert      bool          `yaml:"async_insert" default:"true"`
			WaitForAsync     bool          `yaml:"wait_for_async_insert"`
			DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
			ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
			WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
			MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
		} `yaml:"clickhouse"`
		Redis struct {
			Enabled       bool          `yaml:"enabled"`
			Backend       string        `yaml:"backend" default:"redis"` // redis or memory
			Host          string        `yaml:"host" default:"localhost"`
			Port          int           `yaml:"port" default:"6379"`
			Password      string        `yaml:"password"`
			DB            int           `yaml:"db"`
			Prefix        string        `yaml:"prefix" default:"sigmasync"`
			TTL           time.Duration `yaml:"ttl" default:"10m"`
			History       int           `yaml:"history" default:"100"`
			MemoryMaxSize int           `yaml:"memory_max_size" default:"1000"`
		} `yaml:"redis"`
	} `yaml:"sinks"`
}

// Default returns a config populated from struct tag defaults only.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides selected fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("SIGMA_PUSH_URL"); v != "" {
		c.Upstream.PushURL = v
	}
	if v := getenv("SIGMA_PULL_URL"); v != "" {
		c.Upstream.PullURL = v
	}
	if v := getenv("SIGMA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("SIGMA_STORE_CAPACITY"); v != "" {
		c.Store.Capacity = util.ParseIntDefault(v, c.Store.Capacity)
	}
	if v := getenv("SIGMA_RATE_PER_SECOND"); v != "" {
		c.Server.RateLimit.PerSecond = util.ParseFloatDefault(v, c.Server.RateLimit.PerSecond)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Sinks.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Sinks.Kafka.Topic = v
	}
	if v := getenv("REDIS_HOST"); v != "" {
		c.Sinks.Redis.Host = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.Sinks.ClickHouse.Host = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if err := checkURL(c.Upstream.PushURL, "ws", "wss"); err != nil {
		return fmt.Errorf("upstream.push_url: %w", err)
	}
	if err := checkURL(c.Upstream.PullURL, "http", "https"); err != nil {
		return fmt.Errorf("upstream.pull_url: %w", err)
	}
	if c.Upstream.PullInterval <= 0 {
		return fmt.Errorf("upstream.pull_interval must be positive")
	}
	if c.Upstream.Reconnect.Delay <= 0 {
		return fmt.Errorf("upstream.reconnect.delay must be positive")
	}
	if b := c.Upstream.Reconnect.Backoff; b.Enabled {
		if b.Multiplier < 1 {
			return fmt.Errorf("upstream.reconnect.backoff.multiplier must be >= 1")
		}
		if b.MaxDelay < c.Upstream.Reconnect.Delay {
			return fmt.Errorf("upstream.reconnect.backoff.max_delay must be >= reconnect.delay")
		}
	}
	if c.Upstream.PullLimit < 1 {
		return fmt.Errorf("upstream.pull_limit must be >= 1")
	}
	if c.Store.Capacity < 1 {
		return fmt.Errorf("store.capacity must be >= 1")
	}
	if c.View.TopModels < 1 || c.View.TrendWindow < 1 {
		return fmt.Errorf("view.top_models and view.trend_window must be >= 1")
	}
	if c.Sinks.Kafka.Enabled && len(c.Sinks.Kafka.Brokers) == 0 {
		return fmt.Errorf("sinks.kafka.brokers cannot be empty when kafka is enabled")
	}
	if r := c.Sinks.Redis; r.Enabled {
		switch r.Backend {
		case "redis":
		case "memory":
			if r.MemoryMaxSize < 1 {
				return fmt.Errorf("sinks.redis.memory_max_size must be >= 1")
			}
		default:
			return fmt.Errorf("sinks.redis.backend %q must be redis or memory", r.Backend)
		}
	}
	if c.Log.Collector.Enabled && !c.Sinks.Kafka.Enabled {
		return fmt.Errorf("log.collector requires sinks.kafka")
	}
	return nil
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%q must be a %s URL", raw, strings.Join(schemes, "/"))
}
