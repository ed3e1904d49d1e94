package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bshr/internal/config"
	"github.com/kailas-cloud/bshr/internal/db"
	dbRedis "github.com/kailas-cloud/bshr/internal/db/redis"
	"github.com/kailas-cloud/bshr/internal/domain"
	logpkg "github.com/kailas-cloud/bshr/internal/logger"
	"github.com/kailas-cloud/bshr/internal/metrics"
	budgetrepo "github.com/kailas-cloud/bshr/internal/repository/budget"
	"github.com/kailas-cloud/bshr/internal/repository/llmcache"
	"github.com/kailas-cloud/bshr/internal/repository/retrievalcache"
	chiTransport "github.com/kailas-cloud/bshr/internal/transport/chi"
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
	usageuc "github.com/kailas-cloud/bshr/internal/usecase/usage"
	"github.com/kailas-cloud/bshr/internal/version"
)

func main() {
	topic := flag.String("topic", "", "answer one topic, print the report and exit")
	flag.Parse()

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting bshr",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
		zap.String("llm_provider", cfg.LLM.Provider()),
		zap.String("llm_model", cfg.LLM.Model),
	)

	metrics.RegisterHTTPMetrics()
	metrics.RegisterCompletionMetrics()
	metrics.RegisterPipelineMetrics()

	ctx := context.Background()

	// Cache store is optional: driver "none" runs every call uncached.
	var store db.Store
	if cfg.Cache.Enabled() {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:          cfg.Cache.Addrs,
			Username:       cfg.Cache.Username,
			Password:       cfg.Cache.Password,
			DB:             cfg.Cache.DB,
			ClientCacheTTL: time.Duration(cfg.Cache.ClientCacheTTLSec) * time.Second,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer s.Close()

		if err := s.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to cache", zap.String("driver", cfg.Cache.Driver))
		store = s
	}

	budget := buildBudget(ctx, cfg.LLM, store, logger)

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	var budgetChecker completionuc.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetChecker = budget
		budgetReader = budget
	}

	base := openaiLLM.NewCompleter(&openaiLLM.Config{
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		Provider: cfg.LLM.Provider(),
		Headers:  cfg.LLM.Headers(),
		Timeout:  time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		Logger:   logger,
	})
	llm := buildCompleter(base, cfg, store, budgetChecker, logger)

	encyclopedia, web := buildRetrievers(cfg, store, logger)

	// Use cases
	proc := processing.New(llm)
	orchestrator := pipeline.New(
		brainstorm.New(llm),
		retrieval.New(encyclopedia, web).WithConcurrency(cfg.Pipeline.Concurrency),
		proc,
		tournament.New(llm, proc).WithConcurrency(cfg.Pipeline.Concurrency),
		respond.New(llm),
	).
		WithQueries(cfg.Pipeline.Queries).
		WithConcurrency(cfg.Pipeline.Concurrency).
		WithRelevanceMode(domain.RelevanceMode(cfg.Pipeline.Relevance))

	if *topic != "" {
		code := runOnce(ctx, orchestrator, *topic, os.Stdout, logger)
		if store != nil {
			store.Close()
		}
		_ = logger.Sync()
		os.Exit(code)
	}

	var pinger healthuc.CachePinger
	if store != nil {
		pinger = store
	}
	healthSvc := healthuc.New(pinger, base)
	usageSvc := usageuc.New(budgetReader)

	server := chiTransport.NewServer(orchestrator, usageSvc, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildBudget returns nil when no limit is configured.
func buildBudget(
	ctx context.Context, llmCfg config.LLMConfig, store db.Store, logger *zap.Logger,
) *completionuc.BudgetTracker {
	b := llmCfg.Budget
	if b.DailyTokenLimit <= 0 && b.MonthlyTokenLimit <= 0 {
		return nil
	}

	action := completionuc.BudgetActionWarn
	if b.Action == "reject" {
		action = completionuc.BudgetActionReject
	}
	tracker := completionuc.NewBudgetTracker(
		llmCfg.Provider(), b.DailyTokenLimit, b.MonthlyTokenLimit, action, logger,
	)
	if store != nil {
		// Loads the current counters from the store.
		tracker.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
	}
	return tracker
}

// buildCompleter assembles the decorator chain: OpenAI -> Cached -> Retrying -> Instrumented.
// The cache sits innermost so a hit never sleeps on a rate limit.
func buildCompleter(
	base domain.Completer,
	cfg config.Config,
	store db.Store,
	budget completionuc.BudgetChecker,
	logger *zap.Logger,
) domain.Completer {
	llm := base
	if store != nil && cfg.Cache.CompletionTTLSec > 0 {
		llm = llmcache.New(llm, store, cfg.LLM.Model,
			time.Duration(cfg.Cache.CompletionTTLSec)*time.Second, metrics.CompletionCacheTotal, logger)
	}

	llm = completionuc.NewRetryingCompleter(llm, completionuc.RetryPolicy{
		InitialInterval: time.Duration(cfg.Retry.InitialIntervalMs) * time.Millisecond,
		MaxInterval:     time.Duration(cfg.Retry.MaxIntervalMs) * time.Millisecond,
		Multiplier:      cfg.Retry.Multiplier,
		MaxAttempts:     cfg.Retry.MaxAttempts,
	}, cfg.LLM.Provider(), logger)

	return completionuc.NewInstrumentedCompleter(llm, cfg.LLM.Provider(), cfg.LLM.Model, budget, logger)
}

func buildRetrievers(cfg config.Config, store db.Store, logger *zap.Logger) (encyclopedia, web domain.Retriever) {
	timeout := time.Duration(cfg.Retrieval.TimeoutSec) * time.Second

	encyclopedia = wikipedia.New(wikipedia.Config{
		URL:       cfg.Retrieval.WikipediaURL,
		UserAgent: cfg.Retrieval.UserAgent,
		Timeout:   timeout,
		Logger:    logger,
	})
	web = searx.New(searx.Config{
		URL:       cfg.Retrieval.SearxURL,
		WordLimit: cfg.Retrieval.WordLimit,
		UserAgent: cfg.Retrieval.UserAgent,
		Timeout:   timeout,
		Logger:    logger,
	})

	if store != nil && cfg.Cache.RetrievalTTLSec > 0 {
		ttl := time.Duration(cfg.Cache.RetrievalTTLSec) * time.Second
		encyclopedia = retrievalcache.New(encyclopedia, store, domain.SourceEncyclopedia, ttl,
			metrics.RetrievalCacheTotal, logger)
		web = retrievalcache.New(web, store, domain.SourceWeb, ttl, metrics.RetrievalCacheTotal, logger)
	}
	return encyclopedia, web
}

// runOnce answers one topic and writes the report to out. Returns the process exit code.
func runOnce(ctx context.Context, o *pipeline.Orchestrator, topic string, out io.Writer, logger *zap.Logger) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := o.Run(logpkg.ContextWithLogger(ctx, logger), topic)
	if err != nil {
		logger.Error("Run failed", zap.Error(err))
		return 1
	}

	_, _ = fmt.Fprintf(out, "Topic: %s\n", rep.Topic)
	_, _ = fmt.Fprintf(out, "Queries: %d, retrieved: %d, hypotheses: %d\n",
		len(rep.Queries), rep.Retrieved, len(rep.Hypotheses))
	_, _ = fmt.Fprintf(out, "Tournament: %d rounds, %d merges, sizes %v\n", rep.Rounds, rep.Merges, rep.RoundSizes)
	_, _ = fmt.Fprintf(out, "Model calls: %d, tokens: %d, took %s\n\n",
		rep.ModelCalls, rep.TotalTokens, rep.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintln(out, rep.Answer)
	return 0
}
