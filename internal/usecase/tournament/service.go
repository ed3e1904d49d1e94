package tournament

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bshr/internal/domain"
	"github.com/kailas-cloud/bshr/internal/fanout"
	logpkg "github.com/kailas-cloud/bshr/internal/logger"
	"github.com/kailas-cloud/bshr/internal/prompt"
)

// Result is the outcome of a tournament.
type Result struct {
	Winner domain.Text
	Rounds int
	Merges int
	// History holds the size of every round, starting with the input and ending with 1.
	History []int
}

// Service reduces hypotheses to one through repeated pairwise merging.
type Service struct {
	llm         Completer
	condenser   Condenser
	concurrency int
}

// New creates a tournament service.
func New(llm Completer, condenser Condenser) *Service {
	return &Service{llm: llm, condenser: condenser, concurrency: domain.DefaultConcurrency}
}

// WithConcurrency caps the merges running at once within a round.
func (s *Service) WithConcurrency(n int) *Service {
	s.concurrency = n
	return s
}

// Run pairs (0,1), (2,3)... in every round. An odd element out advances
// unchanged after the pairwise winners. Rounds run strictly in sequence.
func (s *Service) Run(ctx context.Context, hypotheses []domain.Text, topic string) (Result, error) {
	if len(hypotheses) == 0 {
		return Result{}, domain.ErrNoHypotheses
	}

	logger := logpkg.FromContext(ctx)
	current := hypotheses
	res := Result{History: []int{len(current)}}

	for len(current) > 1 {
		res.Rounds++
		pairs := len(current) / 2

		logger.Debug("Tournament round",
			zap.Int("round", res.Rounds),
			zap.Int("size", len(current)),
			zap.Bool("bye", len(current)%2 == 1),
		)

		round := current
		winners, err := fanout.Map(ctx, s.concurrency, make([]struct{}, pairs),
			func(ctx context.Context, i int, _ struct{}) (domain.Text, error) {
				return s.Compete(ctx, round[2*i], round[2*i+1], topic)
			})
		if err != nil {
			return Result{}, fmt.Errorf("round %d: %w", res.Rounds, err)
		}
		res.Merges += pairs

		next := make([]domain.Text, 0, pairs+1)
		next = append(next, winners...)
		if len(round)%2 == 1 {
			next = append(next, round[len(round)-1])
		}
		current = next
		res.History = append(res.History, len(current))
	}

	res.Winner = current[0]
	logger.Info("Tournament finished",
		zap.Int("hypotheses", len(hypotheses)),
		zap.Int("rounds", res.Rounds),
		zap.Int("merges", res.Merges),
	)
	return res, nil
}

// Compete merges a and b into one refined hypothesis, then condenses it.
func (s *Service) Compete(ctx context.Context, a, b domain.Text, topic string) (domain.Text, error) {
	merged, err := s.llm.Complete(ctx, prompt.Refine(a, b, topic))
	if err != nil {
		return domain.NoText(), fmt.Errorf("merge hypotheses: %w", err)
	}
	return s.condenser.Condense(ctx, domain.SomeText(merged.Text), topic)
}
