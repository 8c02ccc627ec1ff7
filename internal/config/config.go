package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// PricingInfo holds cost details per token for a specific model.
type PricingInfo struct {
	InputPerToken  float64 `mapstructure:"input_per_token"`
	OutputPerToken float64 `mapstructure:"output_per_token"`
}

type Config struct {
	GitHub struct {
		Account    string        `mapstructure:"account"`
		Token      string        `mapstructure:"token"`
		APIBaseURL string        `mapstructure:"api_base_url"`
		PerPage    int           `mapstructure:"per_page"`
		Timeout    time.Duration `mapstructure:"timeout"`
	} `mapstructure:"github"`

	Catalog struct {
		Path string `mapstructure:"path"` // empty uses the embedded catalog
	} `mapstructure:"catalog"`

	Classification struct {
		Type           string        `mapstructure:"type"`            // "llm" or "none"
		Provider       string        `mapstructure:"provider"`        // "openai", "gemini"
		Model          string        `mapstructure:"model"`           // Model name for the provider
		PromptTemplate string        `mapstructure:"prompt_template"` // Path to an override prompt template
		CacheTTL       time.Duration `mapstructure:"cache_ttl"`
		MaxConcurrency int           `mapstructure:"max_concurrency"` // 0: classify every pending entry at once
		OpenaiApiKey   string        `mapstructure:"openai_api_key"`
		OpenaiBaseURL  string        `mapstructure:"openai_base_url"`
		GoogleApiKey   string        `mapstructure:"google_api_key"`
	} `mapstructure:"classification"`

	Cache struct {
		Backend string        `mapstructure:"backend"` // "file", "sqlite" or "memory"
		Path    string        `mapstructure:"path"`
		TTL     time.Duration `mapstructure:"ttl"`
	} `mapstructure:"cache"`

	Server struct {
		Addr         string `mapstructure:"addr"`
		Port         string `mapstructure:"port"`
		WatchCatalog bool   `mapstructure:"watch_catalog"`
		ReleaseMode  bool   `mapstructure:"release_mode"`
	} `mapstructure:"server"`

	Redis struct {
		Address  string
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	}

	Worker struct {
		Concurrency int            `mapstructure:"concurrency"`
		Queues      map[string]int `mapstructure:"queues"`
		RefreshCron string         `mapstructure:"refresh_cron"`
	}

	Blog struct {
		CacheTTL  time.Duration `mapstructure:"cache_ttl"`
		UserAgent string        `mapstructure:"user_agent"`
		Timeout   time.Duration `mapstructure:"timeout"`
	} `mapstructure:"blog"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	// Pricing: map[provider][model] = struct{input_per_token, output_per_token}
	Pricing map[string]map[string]PricingInfo `mapstructure:"pricing"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("github.api_base_url", "https://api.github.com")
	v.SetDefault("github.per_page", 100)
	v.SetDefault("github.timeout", 20*time.Second)

	v.SetDefault("classification.type", "llm")
	v.SetDefault("classification.provider", "gemini")
	v.SetDefault("classification.model", "gemini-2.0-flash")
	v.SetDefault("classification.cache_ttl", time.Hour)
	v.SetDefault("classification.max_concurrency", 0)

	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.path", ".folio/cache") // directory; one file per key, or cache.db for sqlite
	v.SetDefault("cache.ttl", 6*time.Hour)

	v.SetDefault("server.addr", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.watch_catalog", true)

	v.SetDefault("redis.address", "127.0.0.1:6379")
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.queues", map[string]int{"catalog": 1})
	v.SetDefault("worker.refresh_cron", "@every 6h")

	v.SetDefault("blog.cache_ttl", 5*time.Minute)
	v.SetDefault("blog.timeout", 15*time.Second)
	v.SetDefault("blog.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig reads config.yaml from the working directory, if present, and the environment.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom("")
}

// LoadConfigFrom reads the given config file (or config.yaml in "." when path is empty).
func LoadConfigFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional variable names used by the hosting setup, no prefix.
	_ = v.BindEnv("github.token", "FOLIO_GITHUB_TOKEN", "GITHUB_PAT")
	_ = v.BindEnv("classification.openai_api_key", "FOLIO_CLASSIFICATION_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("classification.google_api_key", "FOLIO_CLASSIFICATION_GOOGLE_API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		// It's okay if the config file doesn't exist; defaults and env vars still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	// Model names such as "gemini-2.0-flash" contain the key delimiter, so the
	// pricing table is decoded from the raw section instead of flattened keys.
	config.Pricing = nil
	if raw := v.Get("pricing"); raw != nil {
		if err := mapstructure.Decode(raw, &config.Pricing); err != nil {
			return nil, fmt.Errorf("error decoding pricing: %w", err)
		}
	}
	return &config, nil
}
