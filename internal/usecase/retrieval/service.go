package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bshr/internal/domain"
	"github.com/kailas-cloud/bshr/internal/domain/query"
	"github.com/kailas-cloud/bshr/internal/fanout"
	logpkg "github.com/kailas-cloud/bshr/internal/logger"
)

// Service queries the encyclopedic and web sources for every query.
type Service struct {
	encyclopedia Source
	web          Source
	concurrency  int
}

// New creates a retrieval stage.
func New(encyclopedia, web Source) *Service {
	return &Service{encyclopedia: encyclopedia, web: web, concurrency: domain.DefaultConcurrency}
}

// WithConcurrency caps the lookups in flight.
func (s *Service) WithConcurrency(n int) *Service {
	s.concurrency = n
	return s
}

type lookup struct {
	query  string
	source domain.Source
	from   Source
}

// Retrieve normalizes queries and looks each up on both sources. The result
// lists encyclopedic hits in query order, then web hits in query order.
// Misses contribute nothing. A failed lookup is logged and skipped so the
// other queries still count; only context cancellation aborts the stage.
func (s *Service) Retrieve(ctx context.Context, queries []string) ([]domain.Content, error) {
	logger := logpkg.FromContext(ctx)

	cleaned := make([]string, 0, len(queries))
	for _, q := range queries {
		if n := query.Normalize(q); n != "" {
			cleaned = append(cleaned, n)
		} else {
			logger.Warn("Dropping empty query after normalization", zap.String("raw", q))
		}
	}

	lookups := make([]lookup, 0, 2*len(cleaned))
	for _, q := range cleaned {
		lookups = append(lookups, lookup{query: q, source: domain.SourceEncyclopedia, from: s.encyclopedia})
	}
	for _, q := range cleaned {
		lookups = append(lookups, lookup{query: q, source: domain.SourceWeb, from: s.web})
	}

	results, err := fanout.Map(ctx, s.concurrency, lookups,
		func(ctx context.Context, _ int, l lookup) (domain.Retrieved, error) {
			r, err := l.from.Retrieve(ctx, l.query)
			if err == nil {
				return r, nil
			}
			if ctx.Err() != nil {
				return domain.Retrieved{}, ctx.Err()
			}
			logger.Warn("Retrieval failed, skipping",
				zap.String("source", string(l.source)),
				zap.String("query", l.query),
				zap.Error(err),
			)
			return domain.Miss(), nil
		})
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	contents := make([]domain.Content, 0, len(results))
	for i, r := range results {
		if text, ok := r.Text(); ok {
			contents = append(contents, domain.NewContent(lookups[i].query, lookups[i].source, text))
		}
	}

	logger.Info("Retrieval finished",
		zap.Int("queries", len(cleaned)),
		zap.Int("lookups", len(lookups)),
		zap.Int("found", len(contents)),
	)
	return contents, nil
}
