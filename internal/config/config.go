package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for petrend.
type Config struct {
	StorePath string
	Fetch     FetchConfig
	LLM       LLMConfig
	Keywords  KeywordConfig
}

// FetchConfig controls the fetch orchestrator and source adapters.
type FetchConfig struct {
	Query          string        // base search term, e.g. "utvecklare"
	Timeout        time.Duration // per-request timeout for source calls
	MinDelay       time.Duration // minimum gap between requests to the same source
	MaxRetries     int           // additional attempts per batch after the first failure
	RetryBaseDelay time.Duration // delay before the first retry, doubled per attempt
}

// LLMConfig selects and configures the classification backend.
type LLMConfig struct {
	Backend string        // "kobold", "openai" or "deepseek"
	BaseURL string        // defaults per backend
	APIKey  string        // expanded from env var by Load
	Model   string        // backend model identifier
	Timeout time.Duration // per-request timeout
	Workers int           // concurrent classification calls
}

// KeywordConfig holds the injectable keyword partition for aggregation.
type KeywordConfig struct {
	LLMRelated []string // keywords tagged "llm" in aggregation output
}

const (
	defaultQuery          = "utvecklare"
	defaultOpenAIBaseURL  = "https://api.openai.com/v1"
	defaultDeepSeekBase   = "https://api.deepseek.com"
	defaultKoboldBaseURL  = "http://localhost:5001"
	defaultDeepSeekModel  = "deepseek-chat"
	defaultFetchTimeout   = 30 * time.Second
	defaultFetchMinDelay  = 1 * time.Second
	defaultRetryBaseDelay = 5 * time.Second
	defaultLLMTimeout     = 60 * time.Second
	defaultLLMWorkers     = 5
)

// defaultLLMRelated seeds the LLM-related keyword partition. Users extend
// or replace it in config; matching is case-insensitive.
var defaultLLMRelated = []string{
	"prompt engineering", "prompt design", "ai prompt", "llm prompt",
	"chatgpt", "gpt", "github copilot", "claude", "openai",
	"anthropic", "midjourney", "dall-e", "stable diffusion",
	"generative ai", "large language model", "llm", "genai",
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations
// as strings).
type rawConfig struct {
	StorePath string           `yaml:"store_path"`
	Fetch     rawFetchConfig   `yaml:"fetch"`
	LLM       rawLLMConfig     `yaml:"llm"`
	Keywords  rawKeywordConfig `yaml:"keywords"`
}

type rawFetchConfig struct {
	Query          string `yaml:"query"`
	Timeout        string `yaml:"timeout"`
	MinDelay       string `yaml:"min_delay"`
	MaxRetries     *int   `yaml:"max_retries"`
	RetryBaseDelay string `yaml:"retry_base_delay"`
}

type rawLLMConfig struct {
	Backend string `yaml:"backend"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
	Workers int    `yaml:"workers"`
}

type rawKeywordConfig struct {
	LLMRelated []string `yaml:"llm_related"`
}

// Default returns the configuration used when no config file exists: local
// store, DeepSeek backend with the key taken from the environment.
func Default() *Config {
	return &Config{
		StorePath: "petrend.db",
		Fetch: FetchConfig{
			Query:          defaultQuery,
			Timeout:        defaultFetchTimeout,
			MinDelay:       defaultFetchMinDelay,
			MaxRetries:     2,
			RetryBaseDelay: defaultRetryBaseDelay,
		},
		LLM: LLMConfig{
			Backend: "deepseek",
			BaseURL: defaultDeepSeekBase,
			APIKey:  os.Getenv("DEEPSEEK_API_KEY"),
			Model:   defaultDeepSeekModel,
			Timeout: defaultLLMTimeout,
			Workers: defaultLLMWorkers,
		},
		Keywords: KeywordConfig{LLMRelated: defaultLLMRelated},
	}
}

// Load reads and parses the YAML config file at path, applies defaults,
// validates it, and returns Config. Environment variables in the file are
// expanded before parsing so secrets stay out of the file itself.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()

	if raw.StorePath != "" {
		cfg.StorePath = raw.StorePath
	}
	if raw.Fetch.Query != "" {
		cfg.Fetch.Query = raw.Fetch.Query
	}
	if raw.Fetch.MaxRetries != nil {
		cfg.Fetch.MaxRetries = *raw.Fetch.MaxRetries
	}
	if cfg.Fetch.Timeout, err = parseDuration(raw.Fetch.Timeout, "fetch.timeout", cfg.Fetch.Timeout); err != nil {
		return nil, err
	}
	if cfg.Fetch.MinDelay, err = parseDuration(raw.Fetch.MinDelay, "fetch.min_delay", cfg.Fetch.MinDelay); err != nil {
		return nil, err
	}
	if cfg.Fetch.RetryBaseDelay, err = parseDuration(raw.Fetch.RetryBaseDelay, "fetch.retry_base_delay", cfg.Fetch.RetryBaseDelay); err != nil {
		return nil, err
	}

	if raw.LLM.Backend != "" {
		cfg.LLM.Backend = raw.LLM.Backend
		// A configured backend never inherits another backend's defaults.
		cfg.LLM.BaseURL = ""
		cfg.LLM.Model = ""
		cfg.LLM.APIKey = ""
	}
	if raw.LLM.BaseURL != "" {
		cfg.LLM.BaseURL = raw.LLM.BaseURL
	}
	if raw.LLM.APIKey != "" {
		cfg.LLM.APIKey = raw.LLM.APIKey
	}
	if raw.LLM.Model != "" {
		cfg.LLM.Model = raw.LLM.Model
	}
	if raw.LLM.Workers != 0 {
		cfg.LLM.Workers = raw.LLM.Workers
	}
	if cfg.LLM.Timeout, err = parseDuration(raw.LLM.Timeout, "llm.timeout", cfg.LLM.Timeout); err != nil {
		return nil, err
	}
	if cfg.LLM.BaseURL == "" {
		switch cfg.LLM.Backend {
		case "openai":
			cfg.LLM.BaseURL = defaultOpenAIBaseURL
		case "deepseek":
			cfg.LLM.BaseURL = defaultDeepSeekBase
		case "kobold":
			cfg.LLM.BaseURL = defaultKoboldBaseURL
		}
	}
	if cfg.LLM.Model == "" && cfg.LLM.Backend == "deepseek" {
		cfg.LLM.Model = defaultDeepSeekModel
	}

	if len(raw.Keywords.LLMRelated) > 0 {
		cfg.Keywords.LLMRelated = raw.Keywords.LLMRelated
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseDuration(raw, field string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return d, nil
}

// Validate checks a config for internal consistency.
func Validate(cfg *Config) error {
	if cfg.StorePath == "" {
		return fmt.Errorf("store_path must not be empty")
	}
	if cfg.Fetch.Query == "" {
		return fmt.Errorf("fetch.query must not be empty")
	}
	if cfg.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries must not be negative, got %d", cfg.Fetch.MaxRetries)
	}

	switch cfg.LLM.Backend {
	case "kobold", "openai", "deepseek":
	default:
		return fmt.Errorf("llm.backend must be one of kobold, openai, deepseek; got %q", cfg.LLM.Backend)
	}

	if cfg.LLM.Workers < 1 {
		return fmt.Errorf("llm.workers must be at least 1, got %d", cfg.LLM.Workers)
	}

	return nil
}

// ValidateLLM checks that the selected backend has everything it needs.
// Called only by commands that actually reach the backend, so fetch-only
// usage never demands an API key.
func ValidateLLM(cfg *Config) error {
	switch cfg.LLM.Backend {
	case "kobold":
		if cfg.LLM.BaseURL == "" {
			return fmt.Errorf("llm.base_url is required for the kobold backend")
		}
	case "openai", "deepseek":
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for the %s backend", cfg.LLM.Backend)
		}
		if cfg.LLM.Model == "" {
			return fmt.Errorf("llm.model is required for the %s backend", cfg.LLM.Backend)
		}
	}
	return nil
}
