package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/platform-resolver/internal/cost"
)

// Config holds the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Resolver   ResolverConfig   `yaml:"resolver" mapstructure:"resolver"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	SerpAPI    SerpAPIConfig    `yaml:"serpapi" mapstructure:"serpapi"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Circuit    CircuitConfig    `yaml:"circuit" mapstructure:"circuit"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Audit      AuditConfig      `yaml:"audit" mapstructure:"audit"`
	Pricing    cost.Rates       `yaml:"pricing" mapstructure:"pricing"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	BatchLimit  int      `yaml:"batch_limit" mapstructure:"batch_limit"`
}

// ResolverConfig holds cascade timeouts and fan-out.
type ResolverConfig struct {
	ScrapeTimeout time.Duration `yaml:"scrape_timeout" mapstructure:"scrape_timeout"`
	SearchTimeout time.Duration `yaml:"search_timeout" mapstructure:"search_timeout"`
	VerifyTimeout time.Duration `yaml:"verify_timeout" mapstructure:"verify_timeout"`
	AITimeout     time.Duration `yaml:"ai_timeout" mapstructure:"ai_timeout"`
	// RenderedTimeout bounds each Jina or Firecrawl fetch of a blocked site.
	RenderedTimeout time.Duration `yaml:"rendered_timeout" mapstructure:"rendered_timeout"`
	Budget          time.Duration `yaml:"budget" mapstructure:"budget"`
	MaxConcurrency  int           `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// CacheConfig selects the cache backend. Enabled is only the default;
// the persisted toggle wins once set.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Retention time.Duration `yaml:"retention" mapstructure:"retention"`
	Backend   string        `yaml:"backend" mapstructure:"backend"`
	RedisURL  string        `yaml:"redis_url" mapstructure:"redis_url"`
	KeyPrefix string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SerpAPIConfig holds SerpAPI settings.
type SerpAPIConfig struct {
	Key        string  `yaml:"key" mapstructure:"key"`
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	Country    string  `yaml:"country" mapstructure:"country"`
	Language   string  `yaml:"language" mapstructure:"language"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst      int     `yaml:"burst" mapstructure:"burst"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// JinaConfig holds Jina Reader settings. Reader works without a key at
// a lower rate limit, so Enabled gates it.
type JinaConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FirecrawlConfig holds Firecrawl settings.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// GoogleConfig holds Google Places API settings.
type GoogleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Region  string `yaml:"region" mapstructure:"region"`
}

// CircuitConfig configures the per-service circuit breakers.
type CircuitConfig struct {
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout" mapstructure:"reset_timeout"`
}

// RetryConfig configures retries of the place-details call.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier" mapstructure:"multiplier"`
}

// AuditConfig sizes the outcome queue.
type AuditConfig struct {
	Buffer int `yaml:"buffer" mapstructure:"buffer"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESOLVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default to empty so AutomaticEnv can bind them
	// during Unmarshal.
	for _, key := range []string{"serpapi.key", "openai.key", "openai.base_url", "gemini.key", "anthropic.key", "perplexity.key", "google.key", "jina.key", "firecrawl.key", "cache.redis_url"} {
		v.SetDefault(key, "")
	}
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.batch_limit", 50)
	v.SetDefault("resolver.scrape_timeout", 5*time.Second)
	v.SetDefault("resolver.search_timeout", 5*time.Second)
	v.SetDefault("resolver.verify_timeout", 5*time.Second)
	v.SetDefault("resolver.ai_timeout", 10*time.Second)
	v.SetDefault("resolver.rendered_timeout", 10*time.Second)
	v.SetDefault("resolver.budget", 30*time.Second)
	v.SetDefault("resolver.max_concurrency", 13)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.retention", 30*24*time.Hour)
	v.SetDefault("cache.backend", "store")
	v.SetDefault("cache.key_prefix", "platforms:cache:")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "platform-resolver.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("serpapi.base_url", "https://serpapi.com")
	v.SetDefault("serpapi.country", "uk")
	v.SetDefault("serpapi.language", "en")
	v.SetDefault("serpapi.rate_per_sec", 5.0)
	v.SetDefault("serpapi.burst", 5)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("jina.enabled", false)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("google.region", "gb")
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout", 30*time.Second)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff", 200*time.Millisecond)
	v.SetDefault("retry.max_backoff", 2*time.Second)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("audit.buffer", 256)
	v.SetDefault("pricing.serpapi.per_search", 0.015)
	v.SetDefault("pricing.places.per_details", 0.017)
	v.SetDefault("pricing.ai.per_call", 0.0004)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not sqlite or postgres", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch c.Cache.Backend {
	case "store", "memory":
	case "redis":
		if c.Cache.RedisURL == "" {
			errs = append(errs, "cache.redis_url is required for the redis backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("cache.backend %q is not store, redis or memory", c.Cache.Backend))
	}

	durations := []struct {
		key string
		d   time.Duration
	}{
		{"resolver.scrape_timeout", c.Resolver.ScrapeTimeout},
		{"resolver.search_timeout", c.Resolver.SearchTimeout},
		{"resolver.verify_timeout", c.Resolver.VerifyTimeout},
		{"resolver.ai_timeout", c.Resolver.AITimeout},
		{"resolver.rendered_timeout", c.Resolver.RenderedTimeout},
		{"resolver.budget", c.Resolver.Budget},
		{"cache.retention", c.Cache.Retention},
	}
	for _, d := range durations {
		if d.d <= 0 {
			errs = append(errs, d.key+" must be > 0")
		}
	}

	if c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}
	if c.Server.BatchLimit < 1 || c.Server.BatchLimit > 50 {
		errs = append(errs, "server.batch_limit must be between 1 and 50")
	}
	if c.Resolver.MaxConcurrency < 1 {
		errs = append(errs, "resolver.max_concurrency must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
