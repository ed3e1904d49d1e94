package processing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bshr/internal/domain"
	logpkg "github.com/kailas-cloud/bshr/internal/logger"
	"github.com/kailas-cloud/bshr/internal/prompt"
)

// Service condenses content, judges relevance and drafts hypotheses.
// Each operation is one model call.
type Service struct {
	llm Completer
}

// New creates a content processing service.
func New(llm Completer) *Service {
	return &Service{llm: llm}
}

// Condense distills content with respect to topic. An unusable model result
// yields an absent Text, not an error.
func (s *Service) Condense(ctx context.Context, content domain.Text, topic string) (domain.Text, error) {
	res, err := s.llm.Complete(ctx, prompt.Condense(content, topic))
	if err != nil {
		if errors.Is(err, domain.ErrMalformedCompletion) {
			logpkg.FromContext(ctx).Warn("Condensation returned no usable text", zap.Error(err))
			return domain.NoText(), nil
		}
		return domain.NoText(), fmt.Errorf("condense: %w", err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		logpkg.FromContext(ctx).Warn("Condensation returned empty text")
		return domain.NoText(), nil
	}
	return domain.SomeText(text), nil
}

// RelevancyCheck asks whether content answers query within topic. Only an
// answer containing "yes" or "relevant" counts; anything else is irrelevant.
func (s *Service) RelevancyCheck(ctx context.Context, content domain.Text, query, topic string) (bool, error) {
	res, err := s.llm.Complete(ctx, prompt.Relevance(content, query, topic))
	if err != nil {
		if errors.Is(err, domain.ErrMalformedCompletion) {
			return false, nil
		}
		return false, fmt.Errorf("relevancy check: %w", err)
	}
	return IsAffirmative(res.Text), nil
}

// GenerateHypothesis drafts a candidate answer to topic grounded in content.
func (s *Service) GenerateHypothesis(ctx context.Context, content domain.Text, topic string) (domain.Text, error) {
	res, err := s.llm.Complete(ctx, prompt.Hypothesize(content, topic))
	if err != nil {
		return domain.NoText(), fmt.Errorf("generate hypothesis: %w", err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return domain.NoText(), nil
	}
	return domain.SomeText(text), nil
}

// IsAffirmative reports whether a validator answer contains "yes" or "relevant", case-insensitively.
func IsAffirmative(answer string) bool {
	a := strings.ToLower(answer)
	return strings.Contains(a, "yes") || strings.Contains(a, "relevant")
}
