package retrievalcache

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

// Stored values carry a one-byte tag so a cached miss is distinguishable from empty text.
const (
	tagFound byte = 'F'
	tagMiss  byte = 'M'
)

// store is the consumer interface for the retrieval cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedRetriever caches retrieval outcomes, misses included, per source and query.
type CachedRetriever struct {
	inner      domain.Retriever
	store      store
	source     domain.Source
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator around one retrieval source.
// cacheTotal has labels "source" and "result" ("hit"/"miss"), may be nil.
func New(
	inner domain.Retriever,
	s store,
	source domain.Source,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedRetriever {
	return &CachedRetriever{
		inner:      inner,
		store:      s,
		source:     source,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Retrieve returns a cached outcome or asks the inner retriever. Errors are never cached.
func (c *CachedRetriever) Retrieve(ctx context.Context, query string) (domain.Retrieved, error) {
	key := c.cacheKey(query)

	if r, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return r, nil
	}
	c.incCache("miss")

	r, err := c.inner.Retrieve(ctx, query)
	if err != nil {
		return domain.Retrieved{}, fmt.Errorf("retrieve %s: %w", c.source, err)
	}

	if err := c.store.SetWithTTL(ctx, key, encode(r), c.ttl); err != nil {
		c.logger.Warn("Failed to cache retrieval",
			zap.String("source", string(c.source)), zap.String("key", key), zap.Error(err))
	}
	return r, nil
}

func (c *CachedRetriever) getFromCache(ctx context.Context, key string) (domain.Retrieved, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached retrieval",
				zap.String("source", string(c.source)), zap.String("key", key), zap.Error(err))
		}
		return domain.Retrieved{}, false
	}

	r, err := decode(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached retrieval", zap.String("key", key), zap.Error(err))
		return domain.Retrieved{}, false
	}
	return r, true
}

func (c *CachedRetriever) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(string(c.source), result).Inc()
	}
}

func (c *CachedRetriever) cacheKey(query string) string {
	h := sha256.Sum256([]byte(query))
	return domain.KeyPrefix + "retrieval:" + string(c.source) + ":" + hex.EncodeToString(h[:])
}

func encode(r domain.Retrieved) []byte {
	text, ok := r.Text()
	if !ok {
		return []byte{tagMiss}
	}
	buf := make([]byte, 0, len(text)+1)
	buf = append(buf, tagFound)
	return append(buf, text...)
}

func decode(data []byte) (domain.Retrieved, error) {
	if len(data) == 0 {
		return domain.Retrieved{}, fmt.Errorf("empty cache entry")
	}
	switch data[0] {
	case tagMiss:
		return domain.Miss(), nil
	case tagFound:
		return domain.Found(string(data[1:])), nil
	default:
		return domain.Retrieved{}, fmt.Errorf("unknown cache tag %q", data[0])
	}
}
