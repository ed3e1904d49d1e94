package bshr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bshr/internal/db"
	dbRedis "github.com/kailas-cloud/bshr/internal/db/redis"
	"github.com/kailas-cloud/bshr/internal/domain"
	"github.com/kailas-cloud/bshr/internal/metrics"
	"github.com/kailas-cloud/bshr/internal/repository/llmcache"
	"github.com/kailas-cloud/bshr/internal/repository/retrievalcache"
	openaiLLM "github.com/kailas-cloud/bshr/internal/transport/openai"
	"github.com/kailas-cloud/bshr/internal/transport/searx"
	"github.com/kailas-cloud/bshr/internal/transport/wikipedia"
	"github.com/kailas-cloud/bshr/internal/usecase/brainstorm"
	completionuc "github.com/kailas-cloud/bshr/internal/usecase/completion"
	healthuc "github.com/kailas-cloud/bshr/internal/usecase/health"
	"github.com/kailas-cloud/bshr/internal/usecase/pipeline"
	"github.com/kailas-cloud/bshr/internal/usecase/processing"
	"github.com/kailas-cloud/bshr/internal/usecase/respond"
	"github.com/kailas-cloud/bshr/internal/usecase/retrieval"
	"github.com/kailas-cloud/bshr/internal/usecase/tournament"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultCacheTTL         = 24 * time.Hour
	sdkProvider             = "sdk"
)

// Internal interfaces for substitution in tests.
type pipelineUseCase interface {
	Run(ctx context.Context, topic string) (domain.Report, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the bshr SDK entry point.
type Client struct {
	store     db.Store
	runner    pipelineUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client. A cache is optional; when configured, the provided
// context is used for its readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{cacheTTL: defaultCacheTTL}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.completer == nil && cfg.apiKey == "" {
		return nil, errors.New("bshr: language model required (use WithOpenAI or WithCompleter)")
	}
	if cfg.searxURL == "" {
		return nil, errors.New("bshr: searx endpoint required (use WithSearx)")
	}

	var store db.Store
	if cfg.driver != "" {
		s, err := createStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("bshr: cache not ready: %w", err)
		}
		store = s
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	return wireClient(store, cfg, obs), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("bshr: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("bshr: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	logger := zap.NewNop()

	var base domain.Completer
	var checker healthuc.LLMChecker = noopChecker{}
	model := cfg.model
	if cfg.completer != nil {
		base = &completerAdapter{inner: cfg.completer}
		if hc, ok := cfg.completer.(domain.HealthChecker); ok {
			checker = hc
		}
		if model == "" {
			model = sdkProvider
		}
	} else {
		oc := openaiLLM.NewCompleter(&openaiLLM.Config{
			APIKey:   cfg.apiKey,
			BaseURL:  cfg.baseURL,
			Model:    cfg.model,
			Provider: sdkProvider,
			Logger:   logger,
		})
		base, checker, model = oc, oc, oc.Model()
	}

	llm := base
	if store != nil {
		llm = llmcache.New(llm, store, model, cfg.cacheTTL, metrics.CompletionCacheTotal, logger)
	}
	policy := completionuc.DefaultRetryPolicy()
	if cfg.maxAttempts > 0 {
		policy.MaxAttempts = cfg.maxAttempts
	}
	llm = completionuc.NewRetryingCompleter(llm, policy, sdkProvider, logger)
	llm = completionuc.NewInstrumentedCompleter(llm, sdkProvider, model, nil, logger)

	var encyclopedia, web domain.Retriever
	encyclopedia = wikipedia.New(wikipedia.Config{URL: cfg.wikipediaURL, Logger: logger})
	web = searx.New(searx.Config{URL: cfg.searxURL, Logger: logger})
	if store != nil {
		encyclopedia = retrievalcache.New(encyclopedia, store, domain.SourceEncyclopedia, cfg.cacheTTL,
			metrics.RetrievalCacheTotal, logger)
		web = retrievalcache.New(web, store, domain.SourceWeb, cfg.cacheTTL, metrics.RetrievalCacheTotal, logger)
	}

	concurrency := cfg.concurrency
	if concurrency <= 0 {
		concurrency = domain.DefaultConcurrency
	}
	proc := processing.New(llm)
	runner := pipeline.New(
		brainstorm.New(llm),
		retrieval.New(encyclopedia, web).WithConcurrency(concurrency),
		proc,
		tournament.New(llm, proc).WithConcurrency(concurrency),
		respond.New(llm),
	).WithConcurrency(concurrency)
	if cfg.queries > 0 {
		runner = runner.WithQueries(cfg.queries)
	}
	if cfg.filter {
		runner = runner.WithRelevanceMode(domain.RelevanceFilter)
	}

	var pinger healthuc.CachePinger
	if store != nil {
		pinger = store
	}

	return &Client{
		store:     store,
		runner:    runner,
		healthSvc: healthuc.New(pinger, checker),
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Answer runs the whole pipeline for topic. Either a report with an answer
// or an error is returned, never a partial answer.
func (c *Client) Answer(ctx context.Context, topic string) (rep Report, err error) {
	start := time.Now()
	defer func() {
		c.obs.observe("answer", start, err, "run_id", rep.RunID, "tokens", rep.TotalTokens)
	}()

	r, err := c.runner.Run(ctx, topic)
	c.obs.addTokens(r.TotalTokens)
	if err != nil {
		return Report{RunID: r.RunID}, fmt.Errorf("answer: %w", err)
	}
	return reportFromDomain(r), nil
}

// Ping checks cache connectivity. Without a cache it always succeeds.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if c.store == nil {
		return nil
	}
	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Health checks the health of all system components.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// completerAdapter wraps a public Completer to satisfy domain.Completer.
type completerAdapter struct {
	inner Completer
}

func (a *completerAdapter) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	r, err := a.inner.Complete(ctx, req.System, req.User)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("complete: %w", err)
	}
	return domain.Completion{Text: r.Text, TotalTokens: r.TotalTokens}, nil
}

// noopChecker reports a custom completer without a health check as healthy.
type noopChecker struct{}

func (noopChecker) HealthCheck(context.Context) error { return nil }
