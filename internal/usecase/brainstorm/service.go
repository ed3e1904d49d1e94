package brainstorm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bshr/internal/domain"
	"github.com/kailas-cloud/bshr/internal/domain/query"
	logpkg "github.com/kailas-cloud/bshr/internal/logger"
	"github.com/kailas-cloud/bshr/internal/prompt"
)

// Service turns a topic into search queries.
type Service struct {
	llm Completer
}

// New creates a brainstorm service.
func New(llm Completer) *Service {
	return &Service{llm: llm}
}

// GenerateQueries asks the model for n search queries about topic. The result
// holds at most n queries in model order; fewer are accepted as is.
// Queries are returned raw, normalization happens at retrieval.
func (s *Service) GenerateQueries(ctx context.Context, topic string, n int) ([]string, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, domain.ErrInvalidTopic
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidQueryCount, n)
	}

	res, err := s.llm.Complete(ctx, prompt.Brainstorm(topic, n))
	if err != nil {
		return nil, fmt.Errorf("brainstorm queries: %w", err)
	}

	queries := query.ParseList(res.Text, n)
	logpkg.FromContext(ctx).Info("Generated search queries",
		zap.Int("requested", n),
		zap.Strings("queries", queries),
	)
	return queries, nil
}
