package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// ProviderConfig describes one external metric provider.
type ProviderConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	QuotaPerMinute int           `yaml:"quota_per_minute" default:"30"`
	CacheTTL       time.Duration `yaml:"cache_ttl" default:"5m"`
	Timeout        time.Duration `yaml:"timeout" default:"10s"`
	Required       bool          `yaml:"required"`
	Disabled       bool          `yaml:"disabled"`
}

// SubPillarConfig is a named weighted subset of metrics.
type SubPillarConfig struct {
	Name    string             `yaml:"name"`
	Weight  float64            `yaml:"weight"`
	Metrics map[string]float64 `yaml:"metrics"`
}

// PillarConfig lists the sub-pillars feeding one pillar.
type PillarConfig struct {
	SubPillars []SubPillarConfig `yaml:"sub_pillars"`
}

// WeightsConfig is a composite weight vector.
type WeightsConfig struct {
	Technical   float64 `yaml:"technical" default:"0.40"`
	Social      float64 `yaml:"social" default:"0.25"`
	Fundamental float64 `yaml:"fundamental" default:"0.20"`
	Astrology   float64 `yaml:"astrology" default:"0.15"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Asset       struct {
		Symbol      string `yaml:"symbol" default:"BTCUSDT"`
		CoinGeckoID string `yaml:"coingecko_id" default:"bitcoin"`
	} `yaml:"asset"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimitRPS    float64       `yaml:"rate_limit_rps" default:"20"`
		RateLimitBurst  int           `yaml:"rate_limit_burst" default:"40"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Backend struct {
		Type string `yaml:"type" default:"sqlite"`
	} `yaml:"backend"`
	SQLite struct {
		Path string `yaml:"path" default:"pillarcast.db"`
	} `yaml:"sqlite"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"pillarcast"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled          bool     `yaml:"enabled"`
		Brokers          []string `yaml:"brokers"`
		PredictionsTopic string   `yaml:"predictions_topic" default:"pillarcast.predictions"`
		WeightsTopic     string   `yaml:"weights_topic" default:"pillarcast.weights"`
		RequiredAcks     int      `yaml:"required_acks" default:"-1"`
		Compression      string   `yaml:"compression" default:"gzip"`
		AutoCreateTopics bool     `yaml:"auto_create_topics"`
		Producer         struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchSize    int           `yaml:"batch_size" default:"10"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"pillarcast"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Providers struct {
		Binance   ProviderConfig `yaml:"binance"`
		CoinGecko ProviderConfig `yaml:"coingecko"`
		FearGreed ProviderConfig `yaml:"feargreed"`
		Ephemeris ProviderConfig `yaml:"ephemeris"`
	} `yaml:"providers"`
	Cycle struct {
		Interval time.Duration `yaml:"interval" default:"15m"`
		Timeout  time.Duration `yaml:"timeout" default:"30s"`
	} `yaml:"cycle"`
	Normalization struct {
		RefitInterval time.Duration        `yaml:"refit_interval" default:"6h"`
		Lookback      time.Duration        `yaml:"lookback" default:"720h"`
		StaticBounds  map[string][]float64 `yaml:"static_bounds"`
	} `yaml:"normalization"`
	Scoring struct {
		Pillars map[string]PillarConfig `yaml:"pillars"`
	} `yaml:"scoring"`
	Prediction struct {
		FixedWeights      WeightsConfig `yaml:"fixed_weights"`
		BullishThreshold  float64       `yaml:"bullish_threshold" default:"2"`
		BearishThreshold  float64       `yaml:"bearish_threshold" default:"-2"`
		ModelURL          string        `yaml:"model_url"`
		ModelTimeout      time.Duration `yaml:"model_timeout" default:"5s"`
		LinearSensitivity float64       `yaml:"linear_sensitivity" default:"0.1"`
		WeightsMaxAge     time.Duration `yaml:"weights_max_age" default:"1h"`
	} `yaml:"prediction"`
	Broadcast struct {
		Buffer int `yaml:"buffer" default:"16"`
	} `yaml:"broadcast"`
	Telegram struct {
		Enabled    bool   `yaml:"enabled"`
		BotToken   string `yaml:"bot_token"`
		ChatID     string `yaml:"chat_id"`
		MaxRetries int    `yaml:"max_retries" default:"3"`
	} `yaml:"telegram"`
	Tracing struct {
		Endpoint    string  `yaml:"endpoint"`
		ServiceName string  `yaml:"service_name" default:"pillarcast"`
		SampleRatio float64 `yaml:"sample_ratio" default:"1"`
		Insecure    bool    `yaml:"insecure"`
	} `yaml:"tracing"`
}

// Load reads and parses a YAML configuration file.
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

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
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
	return Parse(b)
}

// Parse decodes YAML bytes on top of the default configuration.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyProviderDefaults()
	return &c, nil
}

func (c *Config) applyProviderDefaults() {
	if c.Providers.Binance.BaseURL == "" {
		c.Providers.Binance.BaseURL = "https://api.binance.com"
	}
	if c.Providers.CoinGecko.BaseURL == "" {
		c.Providers.CoinGecko.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if c.Providers.FearGreed.BaseURL == "" {
		c.Providers.FearGreed.BaseURL = "https://api.alternative.me"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		c.Providers.CoinGecko.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Providers.Binance.APIKey = v
	}
	if v := os.Getenv("SYMBOL"); v != "" {
		c.Asset.Symbol = v
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("MODEL_URL"); v != "" {
		c.Prediction.ModelURL = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Tracing.Endpoint = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type != "clickhouse" && c.Backend.Type != "sqlite" {
		return fmt.Errorf("backend.type must be 'clickhouse' or 'sqlite', got '%s'", c.Backend.Type)
	}
	if c.Asset.Symbol == "" {
		return fmt.Errorf("asset.symbol is required")
	}
	if c.Cycle.Interval <= 0 {
		return fmt.Errorf("cycle.interval must be positive")
	}
	if c.Cycle.Timeout <= 0 || c.Cycle.Timeout > c.Cycle.Interval {
		return fmt.Errorf("cycle.timeout must be positive and not exceed cycle.interval")
	}
	if c.Prediction.BullishThreshold < c.Prediction.BearishThreshold {
		return fmt.Errorf("prediction.bullish_threshold must be >= prediction.bearish_threshold")
	}
	for name, p := range c.providers() {
		if p.Disabled {
			continue
		}
		if p.Required && p.APIKey == "" {
			return fmt.Errorf("providers.%s.api_key is required", name)
		}
		if p.QuotaPerMinute <= 0 {
			return fmt.Errorf("providers.%s.quota_per_minute must be positive", name)
		}
	}
	for metric, b := range c.Normalization.StaticBounds {
		if len(b) != 2 || b[0] > b[1] {
			return fmt.Errorf("normalization.static_bounds.%s must be [min, max] with min <= max", metric)
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id are required when telegram is enabled")
	}
	return nil
}

func (c *Config) providers() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"binance":   c.Providers.Binance,
		"coingecko": c.Providers.CoinGecko,
		"feargreed": c.Providers.FearGreed,
		"ephemeris": c.Providers.Ephemeris,
	}
}
