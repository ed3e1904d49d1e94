package llmcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bshr/internal/db"
	"github.com/kailas-cloud/bshr/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "llm_cache:"

// store is the consumer interface for the completion cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedCompleter caches completion text in a key-value store.
type CachedCompleter struct {
	inner      domain.Completer
	store      store
	model      string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. The model id is part of the cache key.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Completer,
	s store,
	model string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedCompleter {
	return &CachedCompleter{
		inner:      inner,
		store:      s,
		model:      model,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Complete returns a cached completion or calls the inner completer.
// Cache hit: zero token counts (no real tokens consumed).
func (c *CachedCompleter) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	key := c.cacheKey(req)

	if data, err := c.store.Get(ctx, key); err == nil && len(data) > 0 {
		c.incCache("hit")
		return domain.Completion{Text: string(data)}, nil
	} else if err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		c.logger.Warn("Failed to get cached completion", zap.String("key", key), zap.Error(err))
	}

	c.incCache("miss")

	res, err := c.inner.Complete(ctx, req)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("complete: %w", err)
	}

	// Empty text is not worth remembering: a later call may do better.
	if res.Text != "" {
		if err := c.store.SetWithTTL(ctx, key, []byte(res.Text), c.ttl); err != nil {
			c.logger.Warn("Failed to cache completion", zap.String("key", key), zap.Error(err))
		}
	}
	return res, nil
}

func (c *CachedCompleter) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// cacheKey hashes model, system and user prompt with NUL separators.
func (c *CachedCompleter) cacheKey(req domain.CompletionRequest) string {
	h := sha256.New()
	h.Write([]byte(c.model))
	h.Write([]byte{0})
	h.Write([]byte(req.System))
	h.Write([]byte{0})
	h.Write([]byte(req.User))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
