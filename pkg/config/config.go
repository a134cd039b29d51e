package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       struct {
			Capacity int     `yaml:"capacity" default:"30"`
			Refill   float64 `yaml:"refill_per_sec" default:"5"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	// Backend selects how polled cones reach the scene hub: through Kafka
	// ("kafka") or handed straight to the cone handler ("direct").
	Backend struct {
		Type string `yaml:"type" default:"direct"`
	} `yaml:"backend"`
	Synth struct {
		BaseURL      string              `yaml:"base_url" default:"https://api.synthdata.co"`
		APIKey       string              `yaml:"api_key"`
		Timeout      time.Duration       `yaml:"timeout" default:"30s"`
		CacheTTL     time.Duration       `yaml:"cache_ttl" default:"300s"`
		Days         int                 `yaml:"days" default:"14"`
		Limit        int                 `yaml:"limit" default:"10"`
		ConePoints   int                 `yaml:"cone_points" default:"50"`
		PollInterval time.Duration       `yaml:"poll_interval" default:"60s"`
		Assets       []string            `yaml:"assets" default:"[\"BTC\",\"ETH\",\"SOL\",\"XAU\",\"SPY\",\"NVDA\",\"GOOGL\",\"TSLA\",\"AAPL\"]"`
		Horizons     map[string][]string `yaml:"horizons" default:"{\"BTC\":[\"1h\",\"24h\"],\"ETH\":[\"1h\",\"24h\"],\"SOL\":[\"1h\",\"24h\"],\"XAU\":[\"1h\",\"24h\"]}"`
	} `yaml:"synth"`
	Risk struct {
		ServiceURL string        `yaml:"service_url" default:"http://localhost:8000"`
		Timeout    time.Duration `yaml:"timeout" default:"10s"`
		MaxRetries int           `yaml:"max_retries" default:"2"`
	} `yaml:"risk"`
	Render struct {
		FrameRate      int           `yaml:"frame_rate" default:"60"`
		PriceAxisWidth float64       `yaml:"price_axis_width" default:"10"`
		SubscriberBuf  int           `yaml:"subscriber_buffer" default:"4"`
		ThrottleWindow time.Duration `yaml:"throttle_window" default:"5s"`
	} `yaml:"render"`
	Cache struct {
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Brokers      []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
		Topic        string   `yaml:"topic" default:"cones"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"prism-scenes"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"prism"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
}

// Default returns a configuration populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads a .env file if present, the YAML config, then applies
// environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := parse(path)
	if err != nil {
		return nil, err
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SYNTH_API_KEY"); v != "" {
		c.Synth.APIKey = v
	}
	if v := os.Getenv("SYNTH_BASE_URL"); v != "" {
		c.Synth.BaseURL = v
	}
	if v := os.Getenv("ASSETS"); v != "" {
		c.Synth.Assets = strings.Split(v, ",")
	}
	if v := os.Getenv("RISK_SERVICE_URL"); v != "" {
		c.Risk.ServiceURL = v
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "direct" {
		return fmt.Errorf("backend.type must be 'kafka' or 'direct', got '%s'", c.Backend.Type)
	}
	if c.Synth.BaseURL == "" {
		return fmt.Errorf("synth.base_url is required")
	}
	if c.Synth.APIKey == "" {
		return fmt.Errorf("synth.api_key is required")
	}
	if len(c.Synth.Assets) == 0 {
		return fmt.Errorf("synth.assets cannot be empty")
	}
	for asset, hs := range c.Synth.Horizons {
		for _, h := range hs {
			if h != "1h" && h != "24h" {
				return fmt.Errorf("synth.horizons.%s: unsupported horizon '%s'", asset, h)
			}
		}
	}
	if c.Synth.ConePoints < 2 {
		return fmt.Errorf("synth.cone_points must be at least 2")
	}
	if c.Render.FrameRate <= 0 {
		return fmt.Errorf("render.frame_rate must be positive")
	}
	if c.Backend.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when backend.type is 'kafka'")
	}
	return nil
}
