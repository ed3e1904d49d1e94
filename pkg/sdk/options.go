package bshr

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey", "redis" or "" (no cache)
	addrs    []string
	password string
	cacheTTL time.Duration

	completer Completer
	apiKey    string
	baseURL   string
	model     string

	wikipediaURL string
	searxURL     string

	queries     int
	concurrency int
	filter      bool
	maxAttempts int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey caches completions and retrievals in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis caches completions and retrievals in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithCacheTTL sets how long cached completions and retrievals live.
// Default: 24h.
func WithCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithOpenAI uses an OpenAI-compatible endpoint. Empty baseURL and model
// select the OpenAI API and gpt-3.5-turbo.
func WithOpenAI(apiKey, baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = apiKey
		c.baseURL = baseURL
		c.model = model
	})
}

// WithCompleter sets a custom language model. It takes precedence over WithOpenAI.
func WithCompleter(cm Completer) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = cm
	})
}

// WithWikipedia overrides the MediaWiki API endpoint.
func WithWikipedia(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.wikipediaURL = url
	})
}

// WithSearx sets the searx search endpoint. Required.
func WithSearx(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.searxURL = url
	})
}

// WithQueries sets how many search queries are brainstormed per topic.
// Default: 4.
func WithQueries(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.queries = n
	})
}

// WithConcurrency caps concurrent lookups, item pipelines and merges.
// Default: 4.
func WithConcurrency(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.concurrency = n
	})
}

// WithRelevanceFilter drops items the model judges irrelevant before they
// become hypotheses. By default verdicts are only reported.
func WithRelevanceFilter() Option {
	return optionFunc(func(c *clientConfig) {
		c.filter = true
	})
}

// WithMaxAttempts sets how many times a rate-limited call is tried.
// Default: 6.
func WithMaxAttempts(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxAttempts = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
