package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the bshr service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Cache     CacheConfig     `yaml:"cache"`
	LLM       LLMConfig       `yaml:"llm"`
	Retry     RetryConfig     `yaml:"retry"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Cache drivers.
const (
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverNone   = "none"
)

// CacheConfig holds KV store settings for the completion cache, retrieval cache
// and budget counters.
type CacheConfig struct {
	Driver            string   `yaml:"driver"` // valkey, redis, none (default: valkey)
	Addrs             []string `yaml:"addrs"`
	Username          string   `yaml:"username"`
	Password          string   `yaml:"password"`
	DB                int      `yaml:"db"`
	ReadinessTimeout  int      `yaml:"readiness_timeout_sec"`
	CompletionTTLSec  int      `yaml:"completion_ttl_sec"`   // 0 disables the completion cache
	RetrievalTTLSec   int      `yaml:"retrieval_ttl_sec"`    // 0 disables the retrieval cache
	ClientCacheTTLSec int      `yaml:"client_cache_ttl_sec"` // 0 disables client-side caching
}

// Enabled reports whether a KV store is configured.
func (c CacheConfig) Enabled() bool { return c.Driver != DriverNone }

// LLM endpoints and models selected by the mock toggle.
const (
	RouterBaseURL = "https://openrouter.ai/api/v1"
	RouterModel   = "mistralai/mistral-7b-instruct"
	OpenAIBaseURL = "https://api.openai.com/v1"
	OpenAIModel   = "gpt-3.5-turbo"
)

// LLMConfig holds completion provider settings.
type LLMConfig struct {
	APIKey     string       `yaml:"api_key"`
	BaseURL    string       `yaml:"base_url"`
	Model      string       `yaml:"model"`
	Mock       bool         `yaml:"mock"` // true routes through the OpenAI-compatible router
	Referer    string       `yaml:"referer"`
	Title      string       `yaml:"title"`
	TimeoutSec int          `yaml:"timeout_sec"`
	Budget     BudgetConfig `yaml:"budget"`
}

// Provider returns the metrics label for the configured endpoint.
func (c LLMConfig) Provider() string {
	if c.Mock {
		return "openrouter"
	}
	return "openai"
}

// Headers returns the extra request headers the router expects. The direct
// OpenAI endpoint gets none.
func (c LLMConfig) Headers() map[string]string {
	if !c.Mock {
		return nil
	}
	h := map[string]string{}
	if c.Referer != "" {
		h["HTTP-Referer"] = c.Referer
	}
	if c.Title != "" {
		h["X-Title"] = c.Title
	}
	return h
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit      int64   `yaml:"daily_token_limit"`       // 0 = unlimited
	MonthlyTokenLimit    int64   `yaml:"monthly_token_limit"`     // 0 = unlimited
	CostPerMillionTokens float64 `yaml:"cost_per_million_tokens"` // for dashboards
	Action               string  `yaml:"action"`                  // "reject" | "warn" (default)
}

// RetryConfig holds rate-limit backoff settings.
type RetryConfig struct {
	InitialIntervalMs int     `yaml:"initial_interval_ms"`
	MaxIntervalMs     int     `yaml:"max_interval_ms"`
	Multiplier        float64 `yaml:"multiplier"`
	MaxAttempts       int     `yaml:"max_attempts"`
}

// RetrievalConfig holds encyclopedic and web search settings.
type RetrievalConfig struct {
	WikipediaURL string `yaml:"wikipedia_url"`
	SearxURL     string `yaml:"searx_url"`
	WordLimit    int    `yaml:"word_limit"`
	TimeoutSec   int    `yaml:"timeout_sec"`
	UserAgent    string `yaml:"user_agent"`
}

// PipelineConfig holds orchestration settings.
type PipelineConfig struct {
	Queries     int    `yaml:"queries"`
	Concurrency int    `yaml:"concurrency"`
	Relevance   string `yaml:"relevance"` // ignore (default), filter
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = DriverValkey
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = OpenAIBaseURL
		if c.LLM.Mock {
			c.LLM.BaseURL = RouterBaseURL
		}
	}
	if c.LLM.Model == "" {
		c.LLM.Model = OpenAIModel
		if c.LLM.Mock {
			c.LLM.Model = RouterModel
		}
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 60
	}
	if c.Retry.InitialIntervalMs <= 0 {
		c.Retry.InitialIntervalMs = 2000
	}
	if c.Retry.MaxIntervalMs <= 0 {
		c.Retry.MaxIntervalMs = 10000
	}
	if c.Retry.Multiplier <= 0 {
		c.Retry.Multiplier = 2
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 6
	}
	if c.Retrieval.WordLimit <= 0 {
		c.Retrieval.WordLimit = 400
	}
	if c.Retrieval.TimeoutSec <= 0 {
		c.Retrieval.TimeoutSec = 15
	}
	if c.Retrieval.UserAgent == "" {
		c.Retrieval.UserAgent = "bshr/1.0"
	}
	if c.Pipeline.Queries <= 0 {
		c.Pipeline.Queries = 4
	}
	if c.Pipeline.Concurrency <= 0 {
		c.Pipeline.Concurrency = 4
	}
	if c.Pipeline.Relevance == "" {
		c.Pipeline.Relevance = "ignore"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Cache.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver %q", c.Cache.Driver)
		}
	case DriverNone:
	default:
		return fmt.Errorf("cache.driver must be \"valkey\", \"redis\" or \"none\", got %q", c.Cache.Driver)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	switch c.LLM.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf("llm.budget.action must be \"warn\" or \"reject\", got %q", c.LLM.Budget.Action)
	}
	if c.Retrieval.SearxURL == "" {
		return fmt.Errorf("retrieval.searx_url is required")
	}
	switch c.Pipeline.Relevance {
	case "ignore", "filter":
	default:
		return fmt.Errorf("pipeline.relevance must be \"ignore\" or \"filter\", got %q", c.Pipeline.Relevance)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
